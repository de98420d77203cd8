package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/model"
	"github.com/pable/rinkstats/internal/notify"
)

// dateLayout is the format of the from/to query parameters.
const dateLayout = "2006-01-02"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type compareRequest struct {
	PlayerIDs  []string `json:"playerIds"`
	Categories []string `json:"categories"`
}

type invalidateRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"cache":     s.engine.CacheStats(),
	})
}

func (s *Server) teamStats(w http.ResponseWriter, r *http.Request) {
	ts, err := s.engine.GetTeamStats(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "season"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ts)
}

// playerStats accepts from, to (YYYY-MM-DD), strength, venue and repeated
// opponent query parameters.
func (s *Server) playerStats(w http.ResponseWriter, r *http.Request) {
	opts, err := filterOptions(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	stats, err := s.engine.GetPlayerStats(r.Context(),
		chi.URLParam(r, "player"), chi.URLParam(r, "team"), chi.URLParam(r, "season"), opts)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) gameStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.GetGameStats(r.Context(),
		chi.URLParam(r, "team"), chi.URLParam(r, "season"), chi.URLParam(r, "game"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// leaderboard accepts position, minGames and limit query parameters.
func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	opts := s.engine.LeaderboardOptions()
	opts.Position = r.URL.Query().Get("position")
	var err error
	if opts.MinGamesPlayed, err = parseIntParam(r, "minGames", opts.MinGamesPlayed); err != nil {
		s.respondError(w, err)
		return
	}
	if opts.Limit, err = parseIntParam(r, "limit", 0); err != nil {
		s.respondError(w, err)
		return
	}
	lb, err := s.engine.CreateLeaderboard(r.Context(),
		chi.URLParam(r, "team"), chi.URLParam(r, "season"), chi.URLParam(r, "category"), opts)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lb)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	cmp, err := s.engine.ComparePlayersDetailed(r.Context(), req.PlayerIDs,
		chi.URLParam(r, "team"), chi.URLParam(r, "season"), req.Categories)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cmp)
}

// invalidate drops cached results for a game. The body may list the affected
// players; otherwise they are looked up from the game's events.
func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	team, season, game := chi.URLParam(r, "team"), chi.URLParam(r, "season"), chi.URLParam(r, "game")

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if len(req.PlayerIDs) == 0 && s.players != nil {
		ids, err := s.players.PlayersInGame(r.Context(), game)
		if err != nil {
			s.respondError(w, err)
			return
		}
		req.PlayerIDs = ids
	}

	removed := s.engine.Invalidate(team, season, game, req.PlayerIDs)
	if s.publisher != nil {
		n := notify.Notice{TeamID: team, Season: season, GameID: game, PlayerIDs: req.PlayerIDs}
		if err := s.publisher.Publish(r.Context(), n); err != nil {
			s.log.Warn("publish invalidation", zap.String("game", game), zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"removed":   removed,
		"playerIds": req.PlayerIDs,
	})
}

func filterOptions(r *http.Request) (model.FilterOptions, error) {
	q := r.URL.Query()
	opts := model.FilterOptions{
		Strength:  model.SituationalStrength(q.Get("strength")),
		Venue:     model.Venue(q.Get("venue")),
		Opponents: q["opponent"],
	}
	from, err := parseDateParam(r, "from")
	if err != nil {
		return opts, err
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		return opts, err
	}
	if !from.IsZero() || !to.IsZero() {
		if !to.IsZero() {
			// Inclusive of the whole final day.
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		opts.DateRange = &model.DateRange{From: from, To: to}
	}
	return opts, opts.Validate()
}

func parseDateParam(r *http.Request, param string) (time.Time, error) {
	v := r.URL.Query().Get(param)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be YYYY-MM-DD, got %q", param, v)
	}
	return t, nil
}

func parseIntParam(r *http.Request, param string, defaultValue int) (int, error) {
	v := r.URL.Query().Get(param)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer, got %q", param, v)
	}
	return n, nil
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(code),
		Message: msg,
	})
}
