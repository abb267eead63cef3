package memory

import (
	"sync"

	"exam-session-service/internal/attempt"
)

// SessionStore is an in-memory implementation of attempt.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*attempt.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*attempt.Session),
	}
}

func (s *SessionStore) Put(session *attempt.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*attempt.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
