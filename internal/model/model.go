package model

import "time"

// Position is a player's roster position.
type Position string

const (
	PositionCenter     Position = "C"
	PositionLeftWing   Position = "LW"
	PositionRightWing  Position = "RW"
	PositionDefense    Position = "D"
	PositionGoaltender Position = "G"
)

// IsForward reports whether p is a forward position.
func (p Position) IsForward() bool {
	return p == PositionCenter || p == PositionLeftWing || p == PositionRightWing
}

// Group collapses positions into the forward/defense/goalie buckets used for
// position averages and leaderboard filters.
func (p Position) Group() string {
	switch {
	case p.IsForward():
		return "F"
	case p == PositionDefense:
		return "D"
	case p == PositionGoaltender:
		return "G"
	default:
		return "?"
	}
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	switch p {
	case PositionCenter, PositionLeftWing, PositionRightWing, PositionDefense, PositionGoaltender:
		return true
	}
	return false
}

// Team is directory metadata for a team.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is directory metadata for a player.
type Player struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	JerseyNumber int      `json:"jerseyNumber"`
	Position     Position `json:"position"`
}

// GameStatus values stored by the directory.
const (
	GameStatusScheduled = "scheduled"
	GameStatusLive      = "live"
	GameStatusCompleted = "completed"
)

// GameResult is the directory's record of one game.
type GameResult struct {
	ID         string    `json:"id"`
	Season     string    `json:"season"`
	Date       time.Time `json:"date"`
	HomeTeamID string    `json:"homeTeamId"`
	AwayTeamID string    `json:"awayTeamId"`
	HomeScore  int       `json:"homeScore"`
	AwayScore  int       `json:"awayScore"`
	Overtime   bool      `json:"overtime"`
	Shootout   bool      `json:"shootout"`
	Status     string    `json:"status"`
}

// Completed reports whether the game has a final score.
func (g *GameResult) Completed() bool {
	return g.Status == GameStatusCompleted
}

// IsHome reports whether teamID was the home side.
func (g *GameResult) IsHome(teamID string) bool {
	return g.HomeTeamID == teamID
}

// Involves reports whether teamID played in the game.
func (g *GameResult) Involves(teamID string) bool {
	return g.HomeTeamID == teamID || g.AwayTeamID == teamID
}

// Opponent returns the other team's ID.
func (g *GameResult) Opponent(teamID string) string {
	if g.HomeTeamID == teamID {
		return g.AwayTeamID
	}
	return g.HomeTeamID
}

// ScoreFor returns teamID's final score.
func (g *GameResult) ScoreFor(teamID string) int {
	if g.HomeTeamID == teamID {
		return g.HomeScore
	}
	return g.AwayScore
}

// ScoreAgainst returns the opponent's final score.
func (g *GameResult) ScoreAgainst(teamID string) int {
	if g.HomeTeamID == teamID {
		return g.AwayScore
	}
	return g.HomeScore
}

// Decision classifies the game from teamID's perspective.
func (g *GameResult) Decision(teamID string) Decision {
	if !g.Completed() {
		return DecisionNone
	}
	gf, ga := g.ScoreFor(teamID), g.ScoreAgainst(teamID)
	switch {
	case gf > ga:
		return DecisionWin
	case gf < ga && (g.Overtime || g.Shootout):
		return DecisionOvertimeLoss
	case gf < ga:
		return DecisionLoss
	default:
		return DecisionNone
	}
}

// Decision is a game outcome from one team's perspective.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionWin
	DecisionLoss
	DecisionOvertimeLoss
)

// ---- Aggregated statistics ----

// BasePlayerStats holds raw per-player counters folded from events.
type BasePlayerStats struct {
	PlayerID       string `json:"playerId"`
	TeamID         string `json:"teamId"`
	Season         string `json:"season"`
	GamesPlayed    int    `json:"gamesPlayed"`
	Goals          int    `json:"goals"`
	Assists        int    `json:"assists"`
	Points         int    `json:"points"`
	Shots          int    `json:"shots"`
	ShotsOnGoal    int    `json:"shotsOnGoal"`
	PenaltyMinutes int    `json:"penaltyMinutes"`
	PlusMinus      int    `json:"plusMinus"`
	FaceoffsWon    int    `json:"faceoffsWon"`
	FaceoffsLost   int    `json:"faceoffsLost"`
	Hits           int    `json:"hits"`
	Blocked        int    `json:"blocked"`
	Giveaways      int    `json:"giveaways"`
	Takeaways      int    `json:"takeaways"`
}

// TotalFaceoffs returns faceoffs taken.
func (s *BasePlayerStats) TotalFaceoffs() int {
	return s.FaceoffsWon + s.FaceoffsLost
}

// SkaterStats extends base counters for forwards and defensemen.
type SkaterStats struct {
	Position            Position `json:"position"`
	TimeOnIceSeconds    int      `json:"timeOnIceSeconds"`
	Shifts              int      `json:"shifts"`
	PowerPlayGoals      int      `json:"powerPlayGoals"`
	PowerPlayAssists    int      `json:"powerPlayAssists"`
	ShortHandedGoals    int      `json:"shortHandedGoals"`
	ShortHandedAssists  int      `json:"shortHandedAssists"`
	EvenStrengthGoals   int      `json:"evenStrengthGoals"`
	GameWinningGoals    int      `json:"gameWinningGoals"`
	OvertimeGoals       int      `json:"overtimeGoals"`
	PrimaryAssists      int      `json:"primaryAssists"`
	SecondaryAssists    int      `json:"secondaryAssists"`
	MissedShots         int      `json:"missedShots"`
	OffensiveZoneStarts int      `json:"offensiveZoneStarts"`
	NeutralZoneStarts   int      `json:"neutralZoneStarts"`
	DefensiveZoneStarts int      `json:"defensiveZoneStarts"`
	// FaceoffPct is nil when no faceoffs were taken or the position does not
	// track faceoffs.
	FaceoffPct *float64 `json:"faceoffPct,omitempty"`
	// BlockedShots is only tracked for defensemen.
	BlockedShots int `json:"blockedShots"`
}

// PowerPlayPoints returns power-play goals plus assists.
func (s *SkaterStats) PowerPlayPoints() int {
	return s.PowerPlayGoals + s.PowerPlayAssists
}

// ShortHandedPoints returns shorthanded goals plus assists.
func (s *SkaterStats) ShortHandedPoints() int {
	return s.ShortHandedGoals + s.ShortHandedAssists
}

// GoalieGame is the per-game record kept by the goaltender state machine.
type GoalieGame struct {
	GameID           string   `json:"gameId"`
	ShotsAgainst     int      `json:"shotsAgainst"`
	Saves            int      `json:"saves"`
	GoalsAgainst     int      `json:"goalsAgainst"`
	TimeOnIceSeconds int      `json:"timeOnIceSeconds"`
	Decision         Decision `json:"decision"`
	Shutout          bool     `json:"shutout"`
}

// GoalieStats extends base counters for goaltenders.
type GoalieStats struct {
	GamesPlayed      int          `json:"gamesPlayed"`
	TimeOnIceSeconds int          `json:"timeOnIceSeconds"`
	ShotsAgainst     int          `json:"shotsAgainst"`
	Saves            int          `json:"saves"`
	GoalsAgainst     int          `json:"goalsAgainst"`
	Shutouts         int          `json:"shutouts"`
	Wins             int          `json:"wins"`
	Losses           int          `json:"losses"`
	OvertimeLosses   int          `json:"overtimeLosses"`
	Games            []GoalieGame `json:"games,omitempty"`
}

// Decisions returns wins + losses + overtime losses.
func (g *GoalieStats) Decisions() int {
	return g.Wins + g.Losses + g.OvertimeLosses
}

// DerivedStats are ratios computed from base and skill stats.
type DerivedStats struct {
	PointsPerGame         float64  `json:"pointsPerGame"`
	GoalsPerGame          float64  `json:"goalsPerGame"`
	AssistsPerGame        float64  `json:"assistsPerGame"`
	ShootingPct           float64  `json:"shootingPct"`
	FaceoffPct            *float64 `json:"faceoffPct,omitempty"`
	PenaltyMinutesPerGame float64  `json:"penaltyMinutesPerGame"`
	TimeOnIcePerGame      float64  `json:"timeOnIcePerGame"`
	PowerPlayPoints       int      `json:"powerPlayPoints"`
	ShortHandedPoints     int      `json:"shortHandedPoints"`

	SavePct             float64 `json:"savePct"`
	GoalsAgainstAverage float64 `json:"goalsAgainstAverage"`
	WinPct              float64 `json:"winPct"`
}

// AdvancedMetrics are normalised or shot-quality weighted statistics.
type AdvancedMetrics struct {
	GoalsPer60          float64 `json:"goalsPer60"`
	AssistsPer60        float64 `json:"assistsPer60"`
	PointsPer60         float64 `json:"pointsPer60"`
	ShotsPer60          float64 `json:"shotsPer60"`
	ShotAttemptsPer60   float64 `json:"shotAttemptsPer60"`
	BlocksPer60         float64 `json:"blocksPer60"`
	ZoneStartPct        float64 `json:"zoneStartPct"`
	ExpectedGoals       float64 `json:"expectedGoals"`
	GoalsDifference     float64 `json:"goalsDifference"`
	PrimaryAssistPct    float64 `json:"primaryAssistPct"`
	TakeawayGiveawayPct float64 `json:"takeawayGiveawayPct"`
	// TimeOnIceKnown is false when no shifts were recorded and every per-60
	// rate is therefore reported as 0.
	TimeOnIceKnown bool `json:"timeOnIceKnown"`
}

// PlayerStatsComplete bundles everything computed for one player.
type PlayerStatsComplete struct {
	Player        Player           `json:"player"`
	Base          BasePlayerStats  `json:"base"`
	Skater        *SkaterStats     `json:"skater,omitempty"`
	Goalie        *GoalieStats     `json:"goalie,omitempty"`
	Derived       DerivedStats     `json:"derived"`
	Advanced      *AdvancedMetrics `json:"advanced,omitempty"`
	SkippedEvents int              `json:"skippedEvents"`
	ComputedAt    time.Time        `json:"computedAt"`
}

// Record is a W/L/OTL line.
type Record struct {
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`
	OvertimeLosses int `json:"overtimeLosses"`
}

// GamesPlayed returns the number of decided games in the record.
func (r Record) GamesPlayed() int {
	return r.Wins + r.Losses + r.OvertimeLosses
}

// StandingsPoints returns 2 per win plus 1 per overtime loss.
func (r Record) StandingsPoints() int {
	return 2*r.Wins + r.OvertimeLosses
}

// TeamStats aggregates a team's completed games for a season.
type TeamStats struct {
	TeamID                 string  `json:"teamId"`
	Season                 string  `json:"season"`
	GamesPlayed            int     `json:"gamesPlayed"`
	Record                 Record  `json:"record"`
	HomeRecord             Record  `json:"homeRecord"`
	AwayRecord             Record  `json:"awayRecord"`
	Points                 int     `json:"points"`
	PointsPct              float64 `json:"pointsPct"`
	GoalsFor               int     `json:"goalsFor"`
	GoalsAgainst           int     `json:"goalsAgainst"`
	GoalDifferential       int     `json:"goalDifferential"`
	GoalsForPerGame        float64 `json:"goalsForPerGame"`
	GoalsAgainstPerGame    float64 `json:"goalsAgainstPerGame"`
	ShotsFor               int     `json:"shotsFor"`
	ShotsAgainst           int     `json:"shotsAgainst"`
	PowerPlayGoals         int     `json:"powerPlayGoals"`
	PowerPlayOpportunities int     `json:"powerPlayOpportunities"`
	PowerPlayPct           float64 `json:"powerPlayPct"`
	PowerPlayGoalsAgainst  int     `json:"powerPlayGoalsAgainst"`
	TimesShorthanded       int     `json:"timesShorthanded"`
	PenaltyKillPct         float64 `json:"penaltyKillPct"`
	PenaltyMinutes         int     `json:"penaltyMinutes"`
	SkippedEvents          int     `json:"skippedEvents"`
}

// GameSummary is the per-game view of one team's players.
type GameSummary struct {
	Game    GameResult        `json:"game"`
	TeamID  string            `json:"teamId"`
	Players []BasePlayerStats `json:"players"`
}
