package app

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"quizboard/internal/identity"
)

// AuthClient is the identity provider as seen by one client.
type AuthClient interface {
	SignInWithCustomToken(ctx context.Context, token string) (identity.Session, error)
	SignInAnonymously(ctx context.Context, resumeID string) (identity.Session, error)
	OnAuthStateChanged(fn func(*identity.User)) func()
}

// Bootstrapper resolves the identity of one client. Reads and writes must wait
// for Ready: saved quizzes are tagged with the resolved user id.
type Bootstrapper struct {
	auth AuthClient
	log  *logrus.Entry

	mu          sync.RWMutex
	user        *identity.User
	session     identity.Session
	ready       bool
	readyOnce   sync.Once
	done        chan struct{}
	unsubscribe func()
}

func NewBootstrapper(auth AuthClient, log *logrus.Entry) (*Bootstrapper, error) {
	if auth == nil {
		return nil, ErrBootstrapMisconfigured
	}
	b := &Bootstrapper{
		auth: auth,
		log:  log,
		done: make(chan struct{}),
	}
	b.unsubscribe = auth.OnAuthStateChanged(func(user *identity.User) {
		b.mu.Lock()
		b.user = user
		b.mu.Unlock()
	})
	return b, nil
}

// Start signs in with customToken when given, falling back to anonymous
// sign-in (resuming resumeID if it is still persisted) when the exchange fails.
// The fallback is logged, not returned. An error means no identity could be
// established at all.
func (b *Bootstrapper) Start(ctx context.Context, customToken, resumeID string) (identity.Session, error) {
	if b.Ready() {
		return b.Session(), nil
	}

	var (
		session identity.Session
		err     error
	)
	if customToken != "" {
		session, err = b.auth.SignInWithCustomToken(ctx, customToken)
		if err != nil {
			b.log.WithError(err).Warn("custom token sign-in failed, falling back to anonymous")
		}
	}
	if customToken == "" || err != nil {
		session, err = b.auth.SignInAnonymously(ctx, resumeID)
		if err != nil {
			return identity.Session{}, err
		}
	}

	b.readyOnce.Do(func() {
		b.mu.Lock()
		b.session = session
		user := session.User
		b.user = &user
		b.ready = true
		b.mu.Unlock()
		close(b.done)
	})
	b.log.WithFields(logrus.Fields{
		"user_id":   session.User.ID,
		"anonymous": session.User.Anonymous,
	}).Info("identity resolved")
	return b.Session(), nil
}

// UserID returns the current user id; ok is false before the identity resolves.
func (b *Bootstrapper) UserID() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.ready || b.user == nil {
		return "", false
	}
	return b.user.ID, true
}

func (b *Bootstrapper) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// Done is closed once the identity is resolved.
func (b *Bootstrapper) Done() <-chan struct{} {
	return b.done
}

func (b *Bootstrapper) Session() identity.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Close releases the identity-change listener.
func (b *Bootstrapper) Close() {
	b.unsubscribe()
}

func (b *Bootstrapper) userView() *UserView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.ready || b.user == nil {
		return nil
	}
	return &UserView{ID: b.user.ID, Anonymous: b.user.Anonymous, SessionID: b.session.ID}
}
