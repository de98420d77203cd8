// Package notify fans cache invalidations out to every running engine
// instance over a Redis stream.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is the Redis stream invalidation notices are published to.
const Stream = "rinkstats.invalidations"

const (
	batchSize     = 50
	blockDuration = time.Second
	retryDelay    = time.Second
)

// Notice announces that a game's data changed.
type Notice struct {
	TeamID    string   `json:"teamId"`
	Season    string   `json:"season"`
	GameID    string   `json:"gameId,omitempty"`
	PlayerIDs []string `json:"playerIds,omitempty"`
}

// Encode renders a notice as stream entry values.
func Encode(n Notice) (map[string]any, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notice: %w", err)
	}
	return map[string]any{
		"data":    string(data),
		"team_id": n.TeamID,
		"game_id": n.GameID,
	}, nil
}

// Decode parses the values of a stream entry written by Encode.
func Decode(values map[string]any) (Notice, error) {
	var n Notice
	data, ok := values["data"].(string)
	if !ok {
		return n, errors.New("notice has no data field")
	}
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		return n, fmt.Errorf("unmarshal notice: %w", err)
	}
	if n.TeamID == "" || n.Season == "" {
		return n, errors.New("notice missing team or season")
	}
	return n, nil
}

// NewClient connects to the Redis server at url (redis://host:port/db) and
// verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Publisher writes notices to the invalidation stream.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a publisher on client.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish appends one notice to the stream.
func (p *Publisher) Publish(ctx context.Context, n Notice) error {
	values, err := Encode(n)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: Stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

// Invalidator is the cache side of a notice.
type Invalidator interface {
	Invalidate(teamID, season, gameID string, playerIDs []string) int
}

// Subscriber tails the invalidation stream and applies each notice locally.
// Each subscriber reads through its own consumer group so every instance sees
// every notice.
type Subscriber struct {
	client   *redis.Client
	target   Invalidator
	log      *zap.Logger
	group    string
	consumer string
}

// NewSubscriber creates a subscriber that applies notices to target.
func NewSubscriber(client *redis.Client, target Invalidator, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Subscriber{
		client:   client,
		target:   target,
		log:      log,
		group:    "rinkstats-" + id,
		consumer: id,
	}
}

// Run consumes notices until ctx is cancelled. Only notices published after
// Run starts are applied. The consumer group is removed on return.
func (s *Subscriber) Run(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, Stream, s.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() {
		// ctx is already done here.
		cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.client.XGroupDestroy(cleanup, Stream, s.group).Err(); err != nil {
			s.log.Warn("destroy consumer group", zap.String("group", s.group), zap.Error(err))
		}
	}()

	s.log.Info("invalidation subscriber started", zap.String("stream", Stream), zap.String("group", s.group))
	for {
		if ctx.Err() != nil {
			return nil
		}
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{Stream, ">"},
			Count:    batchSize,
			Block:    blockDuration,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.log.Warn("stream read", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		for _, st := range streams {
			for _, msg := range st.Messages {
				s.handle(ctx, msg)
			}
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, msg redis.XMessage) {
	n, err := Decode(msg.Values)
	if err != nil {
		s.log.Warn("drop malformed notice", zap.String("id", msg.ID), zap.Error(err))
	} else {
		removed := s.target.Invalidate(n.TeamID, n.Season, n.GameID, n.PlayerIDs)
		s.log.Debug("applied invalidation",
			zap.String("team", n.TeamID),
			zap.String("season", n.Season),
			zap.String("game", n.GameID),
			zap.Int("removed", removed))
	}
	if err := s.client.XAck(ctx, Stream, s.group, msg.ID).Err(); err != nil {
		s.log.Warn("ack notice", zap.String("id", msg.ID), zap.Error(err))
	}
}
