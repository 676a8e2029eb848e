package memory

import (
	"context"
	"sync"
	"time"

	"quizboard/internal/identity"
)

// SessionStore is an in-memory implementation of identity.SessionStore.
// Sessions live for ttl after they are saved; zero ttl keeps them forever.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]storedSession
}

type storedSession struct {
	session   identity.Session
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
	}
}

func (s *SessionStore) Save(_ context.Context, session identity.Session) error {
	entry := storedSession{session: session}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = entry
	return nil
}

func (s *SessionStore) Load(_ context.Context, id string) (identity.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return identity.Session{}, identity.ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return identity.Session{}, identity.ErrSessionNotFound
	}
	return entry.session, nil
}
