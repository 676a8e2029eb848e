package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizboard/internal/domain"
)

// Collection is an in-process quiz collection with snapshot subscriptions.
// Documents keep insertion order per namespace.
type Collection struct {
	now   func() time.Time
	newID func() string

	mu          sync.RWMutex
	docs        map[string][]domain.Quiz
	subscribers map[string]map[chan domain.Snapshot]struct{}
}

func NewCollection() *Collection {
	return NewCollectionWithClock(time.Now)
}

// NewCollectionWithClock allows deterministic delivery timestamps in tests.
func NewCollectionWithClock(now func() time.Time) *Collection {
	return &Collection{
		now:         now,
		newID:       uuid.NewString,
		docs:        make(map[string][]domain.Quiz),
		subscribers: make(map[string]map[chan domain.Snapshot]struct{}),
	}
}

// Create stores quiz under namespace, assigns its id and notifies subscribers.
func (c *Collection) Create(_ context.Context, namespace string, quiz domain.Quiz) (string, error) {
	if namespace == "" {
		return "", domain.ErrNamespaceRequired
	}
	doc := quiz.Clone()
	doc.ID = c.newID()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[namespace] = append(c.docs[namespace], doc)
	c.broadcastLocked(namespace, nil)
	return doc.ID, nil
}

// List returns the current documents of namespace.
func (c *Collection) List(_ context.Context, namespace string) ([]domain.Quiz, error) {
	if namespace == "" {
		return nil, domain.ErrNamespaceRequired
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneQuizzes(c.docs[namespace]), nil
}

// Subscribe delivers the current snapshot immediately and again after every change.
// The caller must invoke the returned cancel function to avoid leaks; canceling
// ctx has the same effect.
func (c *Collection) Subscribe(ctx context.Context, namespace string) (<-chan domain.Snapshot, func(), error) {
	if namespace == "" {
		return nil, nil, domain.ErrNamespaceRequired
	}
	ch := make(chan domain.Snapshot, 8)

	c.mu.Lock()
	subs, ok := c.subscribers[namespace]
	if !ok {
		subs = make(map[chan domain.Snapshot]struct{})
		c.subscribers[namespace] = subs
	}
	subs[ch] = struct{}{}
	ch <- c.snapshotLocked(namespace, nil)
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subscribers[namespace][ch]; ok {
				delete(c.subscribers[namespace], ch)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}

// Interrupt delivers err to every subscriber of namespace, the way a dropped
// connection surfaces on a remote store.
func (c *Collection) Interrupt(namespace string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastLocked(namespace, err)
}

func (c *Collection) broadcastLocked(namespace string, err error) {
	for ch := range c.subscribers[namespace] {
		snapshot := c.snapshotLocked(namespace, err)
		select {
		case ch <- snapshot:
		default:
			// drop the stale snapshot so a slow subscriber never blocks a writer
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (c *Collection) snapshotLocked(namespace string, err error) domain.Snapshot {
	snapshot := domain.Snapshot{Namespace: namespace, Err: err, DeliveredAt: c.now()}
	if err == nil {
		snapshot.Quizzes = domain.CloneQuizzes(c.docs[namespace])
	}
	return snapshot
}
