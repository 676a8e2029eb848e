package memory

import (
	"context"
	"sync"
)

// Notifier fans out "namespace changed" signals inside one process. It backs the
// Postgres collection when no Redis is configured.
type Notifier struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (n *Notifier) Publish(_ context.Context, namespace string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.listeners[namespace] {
		// a pending signal already means "reload"
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (n *Notifier) Listen(ctx context.Context, namespace string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.listeners[namespace] == nil {
		n.listeners[namespace] = make(map[chan struct{}]struct{})
	}
	n.listeners[namespace][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners[namespace], ch)
			close(ch)
			n.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}
