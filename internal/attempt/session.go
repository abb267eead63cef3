package attempt

import (
	"sync"
	"time"

	"exam-session-service/internal/domain"
)

// View is the read-only snapshot exposed to the presentation boundary.
type View struct {
	SessionID string                 `json:"sessionId"`
	TestID    string                 `json:"testId"`
	Mode      domain.AttemptMode     `json:"mode"`
	Status    domain.AttemptStatus   `json:"status"`
	Cursor    int                    `json:"cursor"`
	Remaining int                    `json:"remaining"`
	Questions []domain.QuestionState `json:"questions"`
	Rank      *domain.RankSnapshot   `json:"rank,omitempty"`
	Result    *domain.Result         `json:"result,omitempty"`
}

// Session is one timed attempt at a fixed question sequence. All transitions
// run under a single mutex, so the running→terminal transition executes
// exactly once no matter whether the countdown, the user, or both trigger it.
type Session struct {
	id        string
	testID    string
	userID    string
	mode      domain.AttemptMode
	questions []domain.Question
	byID      map[string]int
	duration  int
	now       func() time.Time

	mu          sync.Mutex
	status      domain.AttemptStatus
	remaining   int
	cursor      int
	answers     map[string]string
	staged      map[string]string
	marked      map[string]struct{}
	visited     map[string]struct{}
	rank        *domain.RankSnapshot
	result      *domain.Result
	stops       []func()
	onTerminal  []func(domain.Result)
	subscribers map[chan View]struct{}
}

// NewSession validates the inputs and builds a session in the not_started
// state. Begin moves it to running.
func NewSession(id, testID, userID string, mode domain.AttemptMode, questions []domain.Question, durationSeconds int) (*Session, error) {
	return newSessionWithClock(id, testID, userID, mode, questions, durationSeconds, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id, testID, userID string, mode domain.AttemptMode, questions []domain.Question, durationSeconds int, now func() time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyTest
	}
	if durationSeconds <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		byID[q.ID] = i
	}
	return &Session{
		id:          id,
		testID:      testID,
		userID:      userID,
		mode:        mode,
		questions:   questions,
		byID:        byID,
		duration:    durationSeconds,
		now:         now,
		status:      domain.StatusNotStarted,
		remaining:   durationSeconds,
		answers:     make(map[string]string),
		staged:      make(map[string]string),
		marked:      make(map[string]struct{}),
		visited:     make(map[string]struct{}),
		subscribers: make(map[chan View]struct{}),
	}, nil
}

func (s *Session) ID() string               { return s.id }
func (s *Session) TestID() string           { return s.testID }
func (s *Session) UserID() string           { return s.userID }
func (s *Session) Mode() domain.AttemptMode { return s.mode }

// Questions returns the immutable question sequence. Callers must not mutate.
func (s *Session) Questions() []domain.Question { return s.questions }

// Begin transitions not_started → running and marks the first question
// visited. The caller wires the countdown via AddStop afterwards.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusNotStarted {
		return
	}
	s.status = domain.StatusRunning
	s.visited[s.questions[0].ID] = struct{}{}
	s.broadcastLocked()
}

// AddStop registers a cancellation for a periodic job tied to this session
// (countdown tick, rank feed). If the session already reached a terminal
// state the job is stopped immediately instead of leaking.
func (s *Session) AddStop(stop func()) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		stop()
		return
	}
	s.stops = append(s.stops, stop)
	s.mu.Unlock()
}

// OnTerminal registers a callback invoked once with the Result when the
// session finalizes. Callbacks run outside the session lock and may suspend
// (result persistence lives here).
func (s *Session) OnTerminal(fn func(domain.Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTerminal = append(s.onTerminal, fn)
}

// SelectAnswer stages a selection for the question. The stage is committed to
// the ledger by SaveAndAdvance, or at finalization so a selection made just
// before expiry still counts. Invalid input leaves state untouched.
func (s *Session) SelectAnswer(questionID, optionLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusRunning {
		return domain.ErrSessionClosed
	}
	idx, ok := s.byID[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !s.questions[idx].HasOption(optionLabel) {
		return domain.ErrOptionNotFound
	}
	s.staged[questionID] = optionLabel
	return nil
}

// SaveAndAdvance commits the staged selection for the current question (if
// any) and moves the cursor forward. On the last question the cursor stays.
func (s *Session) SaveAndAdvance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusRunning {
		return domain.ErrSessionClosed
	}
	qid := s.questions[s.cursor].ID
	if label, ok := s.staged[qid]; ok {
		s.answers[qid] = label
		delete(s.staged, qid)
	}
	if s.cursor < len(s.questions)-1 {
		s.cursor++
		s.visited[s.questions[s.cursor].ID] = struct{}{}
	}
	s.broadcastLocked()
	return nil
}

// GoToPrevious moves the cursor back one question; at the first question it
// is a no-op, matching the disabled back control.
func (s *Session) GoToPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusRunning {
		return domain.ErrSessionClosed
	}
	if s.cursor > 0 {
		s.cursor--
		s.visited[s.questions[s.cursor].ID] = struct{}{}
		s.broadcastLocked()
	}
	return nil
}

// GoToQuestion jumps to an absolute index. Out-of-range targets are rejected
// and the cursor does not move.
func (s *Session) GoToQuestion(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusRunning {
		return domain.ErrSessionClosed
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrIndexOutOfRange
	}
	s.cursor = index
	s.visited[s.questions[index].ID] = struct{}{}
	s.broadcastLocked()
	return nil
}

// ToggleMark flips review-marking for a question. Marking is independent of
// answering. Once terminal it is a silent no-op.
func (s *Session) ToggleMark(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return nil
	}
	if _, ok := s.byID[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	if _, ok := s.marked[questionID]; ok {
		delete(s.marked, questionID)
	} else {
		s.marked[questionID] = struct{}{}
	}
	s.broadcastLocked()
	return nil
}

// Tick decrements the countdown by one second. The tick count is the
// authoritative clock: exactly durationSeconds ticks force expiry regardless
// of wall-clock skew. Ticks against a terminal session are no-ops.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.status != domain.StatusRunning {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.finalizeLocked(domain.StatusExpired)
		s.mu.Unlock()
		return
	}
	s.broadcastLocked()
	s.mu.Unlock()
}

// Submit finalizes the attempt. Idempotent: a second call (or a call racing
// the expiry tick) returns the already-computed Result with no side effects.
func (s *Session) Submit() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return *s.result, nil
	}
	if s.status != domain.StatusRunning {
		return domain.Result{}, domain.ErrSessionClosed
	}
	s.finalizeLocked(domain.StatusSubmitted)
	return *s.result, nil
}

// finalizeLocked is the single running→terminal path shared by expiry and
// submission. It commits staged selections, cancels periodic jobs, computes
// the Result exactly once and fans out terminal callbacks off-lock.
func (s *Session) finalizeLocked(status domain.AttemptStatus) {
	if s.status.Terminal() {
		return
	}
	for qid, label := range s.staged {
		s.answers[qid] = label
		delete(s.staged, qid)
	}
	s.status = status

	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil

	res := Score(s.questions, s.answers)
	res.SessionID = s.id
	res.TestID = s.testID
	res.UserID = s.userID
	res.CompletedAt = s.now()
	s.result = &res

	s.broadcastLocked()
	for _, fn := range s.onTerminal {
		go fn(res)
	}
	s.onTerminal = nil
}

// SetRank replaces the live rank snapshot wholesale. A refresh landing after
// the terminal transition is discarded, never applied.
func (s *Session) SetRank(snapshot domain.RankSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusRunning {
		return
	}
	s.rank = &snapshot
	s.broadcastLocked()
}

// Status returns the current lifecycle state.
func (s *Session) Status() domain.AttemptStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Result returns the computed result once the session is terminal.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// View builds the read-only snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe returns a channel of view snapshots, seeded with the current
// view. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.viewLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	view := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale snapshot so a slow consumer never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) viewLocked() View {
	states := make([]domain.QuestionState, len(s.questions))
	for i, q := range s.questions {
		_, answered := s.answers[q.ID]
		_, marked := s.marked[q.ID]
		_, visited := s.visited[q.ID]
		states[i] = domain.QuestionState{
			QuestionID: q.ID,
			Answered:   answered,
			Marked:     marked,
			Visited:    visited,
		}
	}
	return View{
		SessionID: s.id,
		TestID:    s.testID,
		Mode:      s.mode,
		Status:    s.status,
		Cursor:    s.cursor,
		Remaining: s.remaining,
		Questions: states,
		Rank:      s.rank,
		Result:    s.result,
	}
}
