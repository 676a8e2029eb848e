package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// User is a resolved identity.
type User struct {
	ID        string `json:"id"`
	Anonymous bool   `json:"anonymous"`
}

// Session is a persisted sign-in that a client can resume on reconnect.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStore persists sessions (in-memory, Redis, etc).
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Load(ctx context.Context, id string) (Session, error)
}

// Service is the shared identity provider. Each connected client signs in
// through its own Auth handle.
type Service struct {
	tokens   *TokenIssuer
	sessions SessionStore
	log      *logrus.Entry
	now      func() time.Time
	newID    func() string
}

func NewService(tokens *TokenIssuer, sessions SessionStore, log *logrus.Logger) *Service {
	return &Service{
		tokens:   tokens,
		sessions: sessions,
		log:      log.WithField("component", "identity"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewAuth returns a per-client auth handle with no signed-in user.
func (s *Service) NewAuth() *Auth {
	return &Auth{svc: s, listeners: make(map[int]func(*User))}
}

// Auth tracks the signed-in user of one client and notifies listeners on change.
type Auth struct {
	svc *Service

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(*User)
	nextID    int
}

// SignInWithCustomToken exchanges a one-time token for a new persisted session.
func (a *Auth) SignInWithCustomToken(ctx context.Context, token string) (Session, error) {
	claims, err := a.svc.tokens.Verify(token)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		ID:        a.svc.newID(),
		User:      User{ID: claims.UserID},
		CreatedAt: a.svc.now(),
	}
	if err := a.svc.sessions.Save(ctx, session); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	a.setSession(session)
	return session, nil
}

// SignInAnonymously resumes the persisted session named by resumeID when it
// still exists; otherwise it creates a new anonymous user.
func (a *Auth) SignInAnonymously(ctx context.Context, resumeID string) (Session, error) {
	if resumeID != "" {
		session, err := a.svc.sessions.Load(ctx, resumeID)
		switch {
		case err == nil:
			a.setSession(session)
			return session, nil
		case !errors.Is(err, ErrSessionNotFound):
			a.svc.log.WithError(err).Warn("load persisted session failed, starting a new one")
		}
	}

	session := Session{
		ID:        a.svc.newID(),
		User:      User{ID: a.svc.newID(), Anonymous: true},
		CreatedAt: a.svc.now(),
	}
	if err := a.svc.sessions.Save(ctx, session); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	a.setSession(session)
	return session, nil
}

// CurrentUser returns the signed-in user, or nil.
func (a *Auth) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	user := a.session.User
	return &user
}

// OnAuthStateChanged registers fn, calls it once with the current user and on
// every later change. The returned func unregisters it.
func (a *Auth) OnAuthStateChanged(fn func(*User)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	var current *User
	if a.session != nil {
		user := a.session.User
		current = &user
	}
	a.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *Auth) setSession(session Session) {
	a.mu.Lock()
	a.session = &session
	listeners := make([]func(*User), 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		user := session.User
		fn(&user)
	}
}
