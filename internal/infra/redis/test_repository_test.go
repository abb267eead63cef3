package redis

import (
	"context"
	"testing"
	"time"

	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTestRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		TestLoader: memory.NewStaticTestLoader(map[string]domain.TestSet{
			"test-1": sampleTestSet(),
		}),
	}
	repo := NewTestRepository(client, loader, time.Minute)

	set, err := repo.GetTestSet(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("get test set: %v", err)
	}
	if len(set.Questions) != 1 || set.Questions[0].Correct != "B" {
		t.Fatalf("unexpected test set: %+v", set)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("test:test-1") {
		t.Fatalf("expected cache key in redis")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.GetTestSet(context.Background(), "test-1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.TestLoader
	calls int
}

func (l *countingLoader) LoadTestSet(ctx context.Context, testID string) (domain.TestSet, error) {
	l.calls++
	return l.TestLoader.LoadTestSet(ctx, testID)
}

func sampleTestSet() domain.TestSet {
	return domain.TestSet{
		ID:              "test-1",
		DurationSeconds: 60,
		Questions: []domain.Question{
			{
				ID:      "q1",
				Ordinal: 1,
				Prompt:  "What is 2 + 2?",
				Options: []domain.Option{
					{Label: "A", Text: "3"},
					{Label: "B", Text: "4"},
					{Label: "C", Text: "5"},
					{Label: "D", Text: "22"},
				},
				Correct: "B",
				Subject: "Maths",
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
