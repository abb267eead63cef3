package domain

import "time"

// AttemptMode selects the flavour of a test attempt.
type AttemptMode string

const (
	// ModePractice is a solo timed attempt.
	ModePractice AttemptMode = "practice"
	// ModeLive additionally polls a shared leaderboard while running.
	ModeLive AttemptMode = "live"
)

// AttemptStatus is the lifecycle state of an attempt session.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "not_started"
	StatusRunning    AttemptStatus = "running"
	StatusExpired    AttemptStatus = "expired"
	StatusSubmitted  AttemptStatus = "submitted"
)

// Terminal reports whether no further mutation is permitted.
func (s AttemptStatus) Terminal() bool {
	return s == StatusExpired || s == StatusSubmitted
}

// Option is one of the four labelled choices of a question.
type Option struct {
	Label string `json:"label"` // "A".."D"
	Text  string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
// Immutable once loaded; sessions reference it, never copy-and-mutate.
type Question struct {
	ID         string   `json:"id"`
	Ordinal    int      `json:"ordinal"`
	Prompt     string   `json:"prompt"`
	Options    []Option `json:"options"`
	Correct    string   `json:"correct"` // label of the correct option
	Subject    string   `json:"subject"`
	Difficulty string   `json:"difficulty"`
}

// HasOption reports whether label is one of the question's options.
func (q Question) HasOption(label string) bool {
	for _, opt := range q.Options {
		if opt.Label == label {
			return true
		}
	}
	return false
}

// TestSet is an ordered, immutable sequence of questions plus timing defaults.
type TestSet struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationSeconds int        `json:"durationSeconds"`
	Questions       []Question `json:"questions"`
}

// Result is the immutable scored summary produced once per attempt.
type Result struct {
	SessionID   string         `json:"sessionId"`
	TestID      string         `json:"testId"`
	UserID      string         `json:"userId"`
	Total       int            `json:"total"`
	Attempted   int            `json:"attempted"`
	Correct     int            `json:"correct"`
	Incorrect   int            `json:"incorrect"`
	Unattempted int            `json:"unattempted"`
	Score       int            `json:"score"`
	Percentage  float64        `json:"percentage"`
	Accuracy    float64        `json:"accuracy"`
	Subjects    []SubjectScore `json:"subjects"`
	CompletedAt time.Time      `json:"completedAt"`
}

// SubjectScore groups counts and a percentage for one subject tag.
type SubjectScore struct {
	Subject     string  `json:"subject"`
	Total       int     `json:"total"`
	Attempted   int     `json:"attempted"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	Unattempted int     `json:"unattempted"`
	Percentage  float64 `json:"percentage"`
}

// RankEntry is one row of a live leaderboard snapshot.
type RankEntry struct {
	ParticipantID string `json:"participantId"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

// RankSnapshot is the point-in-time leaderboard for a live test.
// Superseded wholesale on each refresh, never patched.
type RankSnapshot struct {
	TestID   string      `json:"testId"`
	Entries  []RankEntry `json:"entries"`
	UserRank int         `json:"userRank"` // 0 when unknown
	TakenAt  time.Time   `json:"takenAt"`
}

// QuestionState classifies one question for the presentation boundary.
type QuestionState struct {
	QuestionID string `json:"questionId"`
	Answered   bool   `json:"answered"`
	Marked     bool   `json:"marked"`
	Visited    bool   `json:"visited"`
}
