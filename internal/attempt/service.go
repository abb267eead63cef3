package attempt

import (
	"context"
	"log"
	"strconv"
	"time"

	"exam-session-service/internal/domain"
)

// TestRepository loads test content (from cache/backing store).
type TestRepository interface {
	GetTestSet(ctx context.Context, testID string) (domain.TestSet, error)
}

// ResultStore persists the scored result, exactly once per session.
type ResultStore interface {
	SaveResult(ctx context.Context, sessionID string, result domain.Result) error
}

// SessionStore abstracts how running sessions are tracked for lookup.
type SessionStore interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// Config carries the periodic cadences of the engine.
type Config struct {
	TickInterval time.Duration // countdown granularity, defaults to 1s
	RankInterval time.Duration // live rank refresh, defaults to 30s
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.RankInterval <= 0 {
		c.RankInterval = 30 * time.Second
	}
	return c
}

// Service contains the attempt use cases: starting a session, looking one up
// and wiring the periodic jobs around it.
type Service struct {
	sessions SessionStore
	tests    TestRepository
	results  ResultStore
	ranks    RankSource
	sched    Scheduler
	cfg      Config
}

func NewService(store SessionStore, tests TestRepository, results ResultStore, ranks RankSource, sched Scheduler, cfg Config) *Service {
	return &Service{
		sessions: store,
		tests:    tests,
		results:  results,
		ranks:    ranks,
		sched:    sched,
		cfg:      cfg.withDefaults(),
	}
}

// Start fetches the question set and opens a running session. A fetch
// failure means no session is created. durationSeconds <= 0 falls back to the
// test's configured duration. In live mode the rank feed is started alongside
// the countdown; both are cancelled at the terminal transition.
func (s *Service) Start(ctx context.Context, testID, userID string, mode domain.AttemptMode, durationSeconds int) (*Session, error) {
	set, err := s.tests.GetTestSet(ctx, testID)
	if err != nil {
		return nil, err
	}
	if durationSeconds <= 0 {
		durationSeconds = set.DurationSeconds
	}

	sessionID := testID + ":" + userID + ":" + strconv.FormatInt(time.Now().UnixNano(), 36)
	sess, err := NewSession(sessionID, testID, userID, mode, set.Questions, durationSeconds)
	if err != nil {
		return nil, err
	}

	sess.OnTerminal(func(result domain.Result) {
		// Persistence failure never alters the computed result.
		if err := s.results.SaveResult(context.Background(), sess.ID(), result); err != nil {
			log.Printf("persist result for session %s: %v", sess.ID(), err)
		}
		s.sessions.Delete(sess.ID())
	})

	s.sessions.Put(sess)
	sess.Begin()
	sess.AddStop(s.sched.Every(s.cfg.TickInterval, sess.Tick))
	if mode == domain.ModeLive && s.ranks != nil {
		sess.AddStop(watchRank(sess, s.sched, s.cfg.RankInterval, s.ranks))
	}
	return sess, nil
}

// Get looks up a running session by ID.
func (s *Service) Get(sessionID string) (*Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}
