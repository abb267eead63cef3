package domain

import "errors"

var (
	// ErrTestNotFound indicates the test content could not be loaded.
	ErrTestNotFound = errors.New("test not found")
	// ErrSessionNotFound is returned when an attempt session does not exist.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrSessionClosed is returned for mutations against a terminal session.
	ErrSessionClosed = errors.New("attempt session is closed")
	// ErrQuestionNotFound indicates a question ID outside the session's set.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a label that is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrIndexOutOfRange indicates a navigation target outside the question sequence.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrEmptyTest indicates an attempt was started against a test with no questions.
	ErrEmptyTest = errors.New("test has no questions")
	// ErrInvalidDuration indicates a non-positive attempt duration.
	ErrInvalidDuration = errors.New("duration must be positive")
)
