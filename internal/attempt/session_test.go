package attempt_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"exam-session-service/internal/attempt"
	"exam-session-service/internal/domain"
)

func newRunningSession(t *testing.T, n, durationSeconds int) *attempt.Session {
	t.Helper()
	sess, err := attempt.NewSession("s1", "test-1", "u1", domain.ModePractice, makeQuestions(n, "Maths"), durationSeconds)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	sess.Begin()
	return sess
}

func TestNewSessionValidation(t *testing.T) {
	if _, err := attempt.NewSession("s1", "t1", "u1", domain.ModePractice, nil, 60); !errors.Is(err, domain.ErrEmptyTest) {
		t.Fatalf("expected empty test error, got %v", err)
	}
	if _, err := attempt.NewSession("s1", "t1", "u1", domain.ModePractice, makeQuestions(1, "Maths"), 0); !errors.Is(err, domain.ErrInvalidDuration) {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestTickDrivesExpiry(t *testing.T) {
	sess := newRunningSession(t, 3, 4)
	for i := 0; i < 4; i++ {
		if sess.Status() != domain.StatusRunning {
			t.Fatalf("expired after %d ticks, want 4", i)
		}
		sess.Tick()
	}
	if sess.Status() != domain.StatusExpired {
		t.Fatalf("expected expired, got %s", sess.Status())
	}
	if _, ok := sess.Result(); !ok {
		t.Fatalf("expected a result after expiry")
	}

	// Further ticks are no-ops against the terminal session.
	sess.Tick()
	if view := sess.View(); view.Remaining != 0 {
		t.Fatalf("expected remaining pinned at 0, got %d", view.Remaining)
	}
}

func TestSubmitIdempotent(t *testing.T) {
	sess := newRunningSession(t, 3, 60)
	if err := sess.SelectAnswer("Maths-q1", "B"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := sess.SaveAndAdvance(); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, err := sess.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := sess.Submit()
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
	if sess.Status() != domain.StatusSubmitted {
		t.Fatalf("expected submitted, got %s", sess.Status())
	}
}

func TestExpiryAndSubmitRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		sess := newRunningSession(t, 2, 1)
		terminal := make(chan domain.Result, 4)
		sess.OnTerminal(func(r domain.Result) { terminal <- r })

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sess.Tick()
		}()
		go func() {
			defer wg.Done()
			if _, err := sess.Submit(); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
		wg.Wait()

		if !sess.Status().Terminal() {
			t.Fatalf("expected terminal status, got %s", sess.Status())
		}
		select {
		case <-terminal:
		case <-time.After(time.Second):
			t.Fatalf("terminal callback never fired")
		}
		select {
		case r := <-terminal:
			t.Fatalf("terminal callback fired twice: %+v", r)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestNavigationBounds(t *testing.T) {
	sess := newRunningSession(t, 3, 60)

	if err := sess.GoToQuestion(-1); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected out-of-range for -1, got %v", err)
	}
	if err := sess.GoToQuestion(3); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected out-of-range for 3, got %v", err)
	}
	if view := sess.View(); view.Cursor != 0 {
		t.Fatalf("cursor moved on rejected navigation: %d", view.Cursor)
	}

	if err := sess.GoToQuestion(2); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if view := sess.View(); view.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", view.Cursor)
	}

	// Back at the first question, another previous is a no-op.
	if err := sess.GoToQuestion(0); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if err := sess.GoToPrevious(); err != nil {
		t.Fatalf("previous at zero: %v", err)
	}
	if view := sess.View(); view.Cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", view.Cursor)
	}
}

func TestSaveAndAdvanceStopsAtLastQuestion(t *testing.T) {
	sess := newRunningSession(t, 2, 60)
	if err := sess.SaveAndAdvance(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := sess.SaveAndAdvance(); err != nil {
		t.Fatalf("save on last: %v", err)
	}
	if view := sess.View(); view.Cursor != 1 {
		t.Fatalf("expected cursor to stay at 1, got %d", view.Cursor)
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	sess := newRunningSession(t, 2, 60)

	if err := sess.SelectAnswer("nope", "A"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question error, got %v", err)
	}
	if err := sess.SelectAnswer("Maths-q1", "Z"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option error, got %v", err)
	}
	// Rejected input must leave state untouched.
	res, _ := sess.Submit()
	if res.Attempted != 0 {
		t.Fatalf("expected nothing attempted after rejected input, got %+v", res)
	}
}

func TestMarkingIndependentOfAnswering(t *testing.T) {
	sess := newRunningSession(t, 3, 60)
	if err := sess.ToggleMark("Maths-q2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	view := sess.View()
	if !view.Questions[1].Marked || view.Questions[1].Answered {
		t.Fatalf("expected marked and unanswered, got %+v", view.Questions[1])
	}

	res, err := sess.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Unattempted != 3 || res.Incorrect != 0 {
		t.Fatalf("marked-only question must stay unattempted: %+v", res)
	}

	// Marking after terminal is a silent no-op.
	if err := sess.ToggleMark("Maths-q1"); err != nil {
		t.Fatalf("post-terminal mark: %v", err)
	}
	if view := sess.View(); view.Questions[0].Marked {
		t.Fatalf("mark applied after terminal state")
	}
}

func TestTerminalMutationsRejected(t *testing.T) {
	sess := newRunningSession(t, 2, 60)
	if _, err := sess.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := sess.SelectAnswer("Maths-q1", "A"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if err := sess.SaveAndAdvance(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if err := sess.GoToQuestion(1); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	res, _ := sess.Result()
	if res.Attempted != 0 {
		t.Fatalf("terminal state mutated: %+v", res)
	}
}

func TestStagedSelectionCommittedOnExpiry(t *testing.T) {
	// Start a 3-question, 5-second attempt; pick the correct option on the
	// first question and let the clock run out.
	sess := newRunningSession(t, 3, 5)
	if err := sess.SelectAnswer("Maths-q1", "B"); err != nil {
		t.Fatalf("select: %v", err)
	}
	for i := 0; i < 5; i++ {
		sess.Tick()
	}

	if sess.Status() != domain.StatusExpired {
		t.Fatalf("expected expired, got %s", sess.Status())
	}
	res, ok := sess.Result()
	if !ok {
		t.Fatalf("expected a result")
	}
	if res.Attempted != 1 || res.Correct != 1 || res.Incorrect != 0 || res.Unattempted != 2 || res.Score != 4 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAddStopAfterTerminalCancelsImmediately(t *testing.T) {
	sess := newRunningSession(t, 2, 60)
	if _, err := sess.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stopped := false
	sess.AddStop(func() { stopped = true })
	if !stopped {
		t.Fatalf("job registered after terminal state must be stopped immediately")
	}
}

func TestRankSnapshotReplacedWholesaleAndFrozenAtTerminal(t *testing.T) {
	sess := newRunningSession(t, 2, 60)

	sess.SetRank(domain.RankSnapshot{TestID: "test-1", UserRank: 5})
	sess.SetRank(domain.RankSnapshot{TestID: "test-1", UserRank: 2})
	if view := sess.View(); view.Rank == nil || view.Rank.UserRank != 2 {
		t.Fatalf("expected latest snapshot, got %+v", view.Rank)
	}

	if _, err := sess.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	sess.SetRank(domain.RankSnapshot{TestID: "test-1", UserRank: 9})
	if view := sess.View(); view.Rank.UserRank != 2 {
		t.Fatalf("in-flight refresh applied after terminal: %+v", view.Rank)
	}
}

func TestSubscribeReceivesTerminalView(t *testing.T) {
	sess := newRunningSession(t, 2, 60)
	ch, cancel := sess.Subscribe()
	defer cancel()

	<-ch // initial snapshot

	if _, err := sess.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case view := <-ch:
			if view.Result != nil {
				if view.Status != domain.StatusSubmitted {
					t.Fatalf("terminal view with wrong status: %s", view.Status)
				}
				return
			}
		case <-deadline:
			t.Fatalf("never received terminal view")
		}
	}
}
