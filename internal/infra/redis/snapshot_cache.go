package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizboard/internal/domain"
)

// SnapshotCache shares the last loaded quiz list of a namespace across service
// instances. Snapshots are stored as: SET quiz:snapshot:{namespace} {json array} EX ttl
// Cache errors are treated as misses.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SnapshotCache) Get(ctx context.Context, namespace string) ([]domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(namespace)).Bytes()
	if err != nil {
		return nil, false
	}
	var quizzes []domain.Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return nil, false
	}
	return quizzes, true
}

func (c *SnapshotCache) Put(ctx context.Context, namespace string, quizzes []domain.Quiz) {
	if c.ttl <= 0 {
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	data, err := json.Marshal(quizzes)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(namespace), data, c.ttlWithJitter()).Err()
}

func (c *SnapshotCache) Invalidate(ctx context.Context, namespace string) {
	_ = c.client.Del(ctx, c.key(namespace)).Err()
}

func (c *SnapshotCache) key(namespace string) string {
	return "quiz:snapshot:" + namespace
}

func (c *SnapshotCache) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
