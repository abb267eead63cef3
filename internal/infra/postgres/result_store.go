package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-session-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore writes scored results into the results table as JSONB.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, sessionID string, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (session_id, test_id, user_id, data)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, result.TestID, result.UserID, string(raw))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
