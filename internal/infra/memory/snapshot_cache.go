package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizboard/internal/domain"
)

// SnapshotCache keeps the last loaded quiz list per namespace with TTL to avoid
// repeated DB hits when many clients subscribe at once.
type SnapshotCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	quizzes   []domain.Quiz
	expiresAt time.Time
}

func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedSnapshot),
	}
}

func (c *SnapshotCache) Get(_ context.Context, namespace string) ([]domain.Quiz, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[namespace]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return domain.CloneQuizzes(entry.quizzes), true
}

func (c *SnapshotCache) Put(_ context.Context, namespace string, quizzes []domain.Quiz) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[namespace] = cachedSnapshot{
		quizzes:   domain.CloneQuizzes(quizzes),
		expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
	}
}

func (c *SnapshotCache) Invalidate(_ context.Context, namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, namespace)
}

func (c *SnapshotCache) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
