package redis

import (
	"context"
	"time"

	"exam-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RankSource reads the live leaderboard for a test from a Redis sorted set.
// Scores are written by the scoring pipeline as: ZADD test:{testID}:board score member
type RankSource struct {
	client *redis.Client
	limit  int64
}

func NewRankSource(client *redis.Client, limit int64) *RankSource {
	if limit <= 0 {
		limit = 50
	}
	return &RankSource{client: client, limit: limit}
}

func (r *RankSource) FetchRankSnapshot(ctx context.Context, testID, userID string) (domain.RankSnapshot, error) {
	key := r.key(testID)

	rows, err := r.client.ZRevRangeWithScores(ctx, key, 0, r.limit-1).Result()
	if err != nil {
		return domain.RankSnapshot{}, err
	}

	entries := make([]domain.RankEntry, 0, len(rows))
	for i, row := range rows {
		member, _ := row.Member.(string)
		entries = append(entries, domain.RankEntry{
			ParticipantID: member,
			Score:         int(row.Score),
			Rank:          i + 1,
		})
	}

	snapshot := domain.RankSnapshot{
		TestID:  testID,
		Entries: entries,
		TakenAt: time.Now(),
	}
	if rank, err := r.client.ZRevRank(ctx, key, userID).Result(); err == nil {
		snapshot.UserRank = int(rank) + 1
	}
	return snapshot, nil
}

// PublishScore records a participant's score on the board so other live
// attempts see it on their next refresh.
func (r *RankSource) PublishScore(ctx context.Context, testID, userID string, score int) error {
	return r.client.ZAdd(ctx, r.key(testID), redis.Z{Score: float64(score), Member: userID}).Err()
}

func (r *RankSource) key(testID string) string {
	return "test:" + testID + ":board"
}
