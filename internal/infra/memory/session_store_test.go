package memory

import (
	"testing"

	"exam-session-service/internal/attempt"
	"exam-session-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	sess, err := attempt.NewSession("s1", "test-1", "u1", domain.ModePractice, []domain.Question{
		{ID: "q1", Options: []domain.Option{{Label: "A"}, {Label: "B"}}, Correct: "A", Subject: "Maths"},
	}, 60)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	store.Put(sess)
	if got, ok := store.Get("s1"); !ok || got != sess {
		t.Fatalf("expected session present")
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
