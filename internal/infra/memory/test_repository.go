package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"exam-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TestLoader fetches test content from a backing store (e.g., Postgres).
type TestLoader interface {
	LoadTestSet(ctx context.Context, testID string) (domain.TestSet, error)
}

// TestRepository caches test sets with TTL to avoid repeated store hits.
type TestRepository struct {
	loader TestLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTestSet
}

type cachedTestSet struct {
	set       domain.TestSet
	expiresAt time.Time
}

func NewTestRepository(loader TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTestSet),
	}
}

func (r *TestRepository) GetTestSet(ctx context.Context, testID string) (domain.TestSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(testID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadTestSet(ctx, testID)
		if err != nil {
			return domain.TestSet{}, err
		}

		r.mu.Lock()
		r.cache[testID] = cachedTestSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.TestSet{}, err
	}
	return result.(domain.TestSet), nil
}

func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticTestLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticTestLoader struct {
	sets map[string]domain.TestSet
}

func NewStaticTestLoader(sets map[string]domain.TestSet) *StaticTestLoader {
	return &StaticTestLoader{sets: sets}
}

func (l *StaticTestLoader) LoadTestSet(_ context.Context, testID string) (domain.TestSet, error) {
	if set, ok := l.sets[testID]; ok {
		return set, nil
	}
	return domain.TestSet{}, domain.ErrTestNotFound
}
