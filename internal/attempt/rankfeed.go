package attempt

import (
	"context"
	"log"
	"time"

	"exam-session-service/internal/domain"
)

// RankSource supplies leaderboard snapshots for live tests.
type RankSource interface {
	FetchRankSnapshot(ctx context.Context, testID, userID string) (domain.RankSnapshot, error)
}

// watchRank polls the rank source on the given cadence and pushes each
// snapshot into the session, replacing the previous one wholesale. A failed
// fetch keeps the last-known-good snapshot. The returned stop cancels both
// the schedule and any fetch in flight.
func watchRank(sess *Session, sched Scheduler, interval time.Duration, source RankSource) func() {
	ctx, cancel := context.WithCancel(context.Background())
	stop := sched.Every(interval, func() {
		snapshot, err := source.FetchRankSnapshot(ctx, sess.TestID(), sess.UserID())
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("rank refresh failed for test %s: %v", sess.TestID(), err)
			}
			return
		}
		sess.SetRank(snapshot)
	})
	return func() {
		cancel()
		stop()
	}
}
