package memory

import (
	"context"
	"sync"
	"time"

	"exam-session-service/internal/domain"
)

// ScriptedRankSource replays a fixed sequence of leaderboard snapshots,
// repeating the last one once exhausted. It stands in for a real ranking
// backend in dev mode and tests.
type ScriptedRankSource struct {
	mu        sync.Mutex
	snapshots []domain.RankSnapshot
	next      int
	calls     int
}

func NewScriptedRankSource(snapshots ...domain.RankSnapshot) *ScriptedRankSource {
	return &ScriptedRankSource{snapshots: snapshots}
}

func (s *ScriptedRankSource) FetchRankSnapshot(_ context.Context, testID, _ string) (domain.RankSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.snapshots) == 0 {
		return domain.RankSnapshot{TestID: testID, TakenAt: time.Now()}, nil
	}
	snapshot := s.snapshots[s.next]
	if s.next < len(s.snapshots)-1 {
		s.next++
	}
	snapshot.TestID = testID
	snapshot.TakenAt = time.Now()
	return snapshot, nil
}

// Calls reports how many fetches were made.
func (s *ScriptedRankSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
