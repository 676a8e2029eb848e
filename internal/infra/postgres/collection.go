package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"quizboard/internal/domain"
)

// ErrSubscriptionClosed is delivered when change notifications stop unexpectedly.
var ErrSubscriptionClosed = errors.New("change notifications closed")

// Notifier signals that a namespace changed (Redis pub/sub, in-process, etc).
type Notifier interface {
	Publish(ctx context.Context, namespace string) error
	Listen(ctx context.Context, namespace string) (<-chan struct{}, func(), error)
}

// SnapshotCache holds recently loaded quiz lists per namespace.
type SnapshotCache interface {
	Get(ctx context.Context, namespace string) ([]domain.Quiz, bool)
	Put(ctx context.Context, namespace string, quizzes []domain.Quiz)
	Invalidate(ctx context.Context, namespace string)
}

// Collection stores quiz documents as JSONB rows and serves snapshot
// subscriptions by reloading the namespace on every change signal.
type Collection struct {
	pool     *pgxpool.Pool
	notifier Notifier
	cache    SnapshotCache
	log      *logrus.Entry
	sf       singleflight.Group
	now      func() time.Time
	newID    func() string
	loadFn   func(ctx context.Context, namespace string) ([]domain.Quiz, error)

	genMu sync.Mutex
	gens  map[string]uint64
}

// loadTimeout bounds a shared load, which runs detached from the caller that started it.
const loadTimeout = 30 * time.Second

func NewCollection(pool *pgxpool.Pool, notifier Notifier, cache SnapshotCache, log *logrus.Logger) *Collection {
	c := &Collection{
		pool:     pool,
		notifier: notifier,
		cache:    cache,
		log:      log.WithField("component", "postgres-collection"),
		now:      time.Now,
		newID:    uuid.NewString,
		gens:     make(map[string]uint64),
	}
	c.loadFn = c.load
	return c
}

// Create inserts quiz and returns its assigned id. The stored JSON omits the id;
// it lives in the primary key column.
func (c *Collection) Create(ctx context.Context, namespace string, quiz domain.Quiz) (string, error) {
	if namespace == "" {
		return "", domain.ErrNamespaceRequired
	}
	doc := quiz.Clone()
	doc.ID = ""
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = c.now()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %w", err)
	}

	id := c.newID()
	_, err = c.pool.Exec(ctx,
		`INSERT INTO quiz_documents (id, namespace, data, created_at) VALUES ($1, $2, $3, $4)`,
		id, namespace, data, doc.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert quiz: %w", err)
	}

	c.invalidate(ctx, namespace)
	if err := c.notifier.Publish(ctx, namespace); err != nil {
		// the row is committed; subscribers pick it up on the next change
		c.log.WithError(err).WithField("namespace", namespace).Warn("publish change failed")
	}
	return id, nil
}

// List returns all documents of namespace in creation order. Concurrent loads
// of the same namespace share one query.
func (c *Collection) List(ctx context.Context, namespace string) ([]domain.Quiz, error) {
	if namespace == "" {
		return nil, domain.ErrNamespaceRequired
	}
	if quizzes, ok := c.cache.Get(ctx, namespace); ok {
		return quizzes, nil
	}

	result, err, _ := c.sf.Do(namespace, func() (interface{}, error) {
		gen := c.generation(namespace)
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		if quizzes, ok := c.cache.Get(loadCtx, namespace); ok {
			return quizzes, nil
		}
		quizzes, err := c.loadFn(loadCtx, namespace)
		if err != nil {
			return nil, err
		}
		c.putIfCurrent(loadCtx, namespace, gen, quizzes)
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return domain.CloneQuizzes(result.([]domain.Quiz)), nil
}

// invalidate drops the cached list and detaches any load already running, so
// the next List reads rows committed after this call.
func (c *Collection) invalidate(ctx context.Context, namespace string) {
	c.genMu.Lock()
	c.gens[namespace]++
	c.cache.Invalidate(ctx, namespace)
	c.genMu.Unlock()
	c.sf.Forget(namespace)
}

func (c *Collection) generation(namespace string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gens[namespace]
}

// putIfCurrent caches quizzes unless namespace was invalidated after gen was read.
func (c *Collection) putIfCurrent(ctx context.Context, namespace string, gen uint64, quizzes []domain.Quiz) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.gens[namespace] != gen {
		return
	}
	c.cache.Put(ctx, namespace, quizzes)
}

func (c *Collection) load(ctx context.Context, namespace string) ([]domain.Quiz, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id::text, data FROM quiz_documents WHERE namespace = $1 ORDER BY created_at, id`,
		namespace)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []domain.Quiz{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz %s: %w", id, err)
		}
		quiz.ID = id
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read quizzes: %w", err)
	}
	return quizzes, nil
}

// Subscribe delivers the current snapshot and a fresh one after every change
// signal. Load failures are delivered as snapshots carrying Err. Only the latest
// undelivered snapshot is kept. The caller must invoke the returned cancel function.
func (c *Collection) Subscribe(ctx context.Context, namespace string) (<-chan domain.Snapshot, func(), error) {
	if namespace == "" {
		return nil, nil, domain.ErrNamespaceRequired
	}
	subCtx, cancelSub := context.WithCancel(ctx)
	// listen before the first load so no change slips between them
	signals, stopListen, err := c.notifier.Listen(subCtx, namespace)
	if err != nil {
		cancelSub()
		return nil, nil, err
	}

	out := make(chan domain.Snapshot, 1)
	go func() {
		defer close(out)
		if !c.deliverFresh(subCtx, out, namespace) {
			return
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					if subCtx.Err() == nil {
						c.deliver(out, domain.Snapshot{Namespace: namespace, Err: ErrSubscriptionClosed, DeliveredAt: c.now()})
					}
					return
				}
				// the writer may live in another instance with its own cache
				c.invalidate(subCtx, namespace)
				if !c.deliverFresh(subCtx, out, namespace) {
					return
				}
			}
		}
	}()

	return out, func() {
		cancelSub()
		stopListen()
	}, nil
}

// deliverFresh loads and delivers a snapshot; it reports false once the
// subscription is canceled.
func (c *Collection) deliverFresh(ctx context.Context, out chan domain.Snapshot, namespace string) bool {
	snapshot := c.snapshot(ctx, namespace)
	if ctx.Err() != nil {
		return false
	}
	c.deliver(out, snapshot)
	return true
}

func (c *Collection) snapshot(ctx context.Context, namespace string) domain.Snapshot {
	quizzes, err := c.List(ctx, namespace)
	if err != nil {
		c.log.WithError(err).WithField("namespace", namespace).Warn("load snapshot failed")
		return domain.Snapshot{Namespace: namespace, Err: err, DeliveredAt: c.now()}
	}
	return domain.Snapshot{Namespace: namespace, Quizzes: quizzes, DeliveredAt: c.now()}
}

func (c *Collection) deliver(out chan domain.Snapshot, snapshot domain.Snapshot) {
	select {
	case out <- snapshot:
	default:
		select {
		case <-out:
		default:
		}
		out <- snapshot
	}
}
