package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"exam-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResultStore persists scored results as JSON values with a TTL.
// Results are stored as: SET attempt:{sessionID}:result {json} EX ttl
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
	board  *RankSource
}

// NewResultStore builds a store; board may be nil when live ranking is off.
func NewResultStore(client *redis.Client, ttl time.Duration, board *RankSource) *ResultStore {
	return &ResultStore{client: client, ttl: ttl, board: board}
}

func (s *ResultStore) SaveResult(ctx context.Context, sessionID string, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if s.board != nil {
		// Best effort: the result stays authoritative even if the board write fails.
		_ = s.board.PublishScore(ctx, result.TestID, result.UserID, result.Score)
	}
	return nil
}

// GetResult loads a previously saved result.
func (s *ResultStore) GetResult(ctx context.Context, sessionID string) (domain.Result, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		return domain.Result{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) key(sessionID string) string {
	return "attempt:" + sessionID + ":result"
}
