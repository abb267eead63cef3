package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"exam-session-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TestLoader loads test-set JSONB from Postgres.
type TestLoader struct {
	pool *pgxpool.Pool
}

func NewTestLoader(pool *pgxpool.Pool) *TestLoader {
	return &TestLoader{pool: pool}
}

func (l *TestLoader) LoadTestSet(ctx context.Context, testID string) (domain.TestSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM tests WHERE id=$1`, testID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TestSet{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.TestSet{}, fmt.Errorf("load test: %w", err)
	}
	var set domain.TestSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.TestSet{}, fmt.Errorf("unmarshal test: %w", err)
	}
	return set, nil
}
