package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"quizboard/internal/domain"
)

// DefaultSuccessDelay is how long the "quiz saved" notice stays visible.
const DefaultSuccessDelay = 3 * time.Second

// QuizCollection is the shared quiz document store.
type QuizCollection interface {
	Create(ctx context.Context, namespace string, quiz domain.Quiz) (string, error)
	Subscribe(ctx context.Context, namespace string) (<-chan domain.Snapshot, func(), error)
}

// ClientOptions tune a Client.
type ClientOptions struct {
	Namespace    string
	SuccessDelay time.Duration
	Now          func() time.Time
}

// Client runs the view state of one connection. Commands, snapshot deliveries,
// save completions and notice expiry are applied one at a time on the Run
// goroutine; everything else only posts events to it.
type Client struct {
	boot       *Bootstrapper
	collection QuizCollection
	runtime    *Runtime
	log        *logrus.Entry
	namespace  string
	delay      time.Duration
	now        func() time.Time

	events chan func()
	views  chan View
	done   chan struct{}
}

func NewClient(boot *Bootstrapper, collection QuizCollection, log *logrus.Entry, opts ClientOptions) *Client {
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = DefaultSuccessDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		boot:       boot,
		collection: collection,
		runtime:    NewRuntime(),
		log:        log,
		namespace:  opts.Namespace,
		delay:      opts.SuccessDelay,
		now:        opts.Now,
		events:     make(chan func(), 16),
		views:      make(chan View, 1),
		done:       make(chan struct{}),
	}
}

// Views delivers the latest view after every event. Stale views are dropped
// when the reader falls behind. The channel closes when Run returns.
func (c *Client) Views() <-chan View {
	return c.views
}

// Dispatch queues a user command. It is a no-op once Run has returned.
func (c *Client) Dispatch(cmd Command) {
	c.post(func() { c.handle(cmd) })
}

// Run subscribes to the quiz collection and applies events until ctx is done.
// The identity must be resolved first.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.views)
	defer close(c.done)

	if !c.boot.Ready() {
		return ErrNotReady
	}

	snapshots, unsubscribe, err := c.collection.Subscribe(ctx, c.namespace)
	if err != nil {
		c.log.WithError(err).Warn("subscribe to quizzes failed")
		c.runtime.ApplySnapshot(domain.Snapshot{Namespace: c.namespace, Err: err, DeliveredAt: c.now()})
	} else {
		defer unsubscribe()
	}
	c.publish()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-c.events:
			event()
		case snapshot, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			if snapshot.Err != nil {
				c.log.WithError(snapshot.Err).Warn("quiz subscription error")
			}
			c.runtime.ApplySnapshot(snapshot)
		}
		c.publish()
	}
}

func (c *Client) handle(cmd Command) {
	if cmd.Type == CmdSave {
		c.save()
		return
	}
	if err := c.runtime.Apply(cmd); err != nil {
		c.log.WithError(err).WithField("command", cmd.Type).Debug("command ignored")
	}
}

func (c *Client) save() {
	userID, ok := c.boot.UserID()
	if !ok {
		c.runtime.errorText = ErrNotReady.Error()
		return
	}
	ticket, err := c.runtime.BeginSave(userID, c.now())
	if err != nil {
		var invalid *ValidationError
		if !errors.As(err, &invalid) {
			c.log.WithError(err).Debug("save ignored")
		}
		return
	}

	quiz := ticket.Quiz
	log := c.log.WithFields(logrus.Fields{"title": quiz.Title, "questions": len(quiz.Questions)})
	go func() {
		// not tied to the connection: an issued write runs to completion
		id, err := c.collection.Create(context.Background(), c.namespace, quiz)
		if err != nil {
			log.WithError(err).Error("save quiz failed")
		} else {
			log.WithField("quiz_id", id).Info("quiz saved")
		}
		c.post(func() {
			seq, ok := c.runtime.FinishSave(ticket, err)
			if !ok {
				return
			}
			time.AfterFunc(c.delay, func() {
				c.post(func() { c.runtime.ClearSuccess(seq) })
			})
		})
	}()
}

func (c *Client) post(event func()) {
	select {
	case c.events <- event:
	case <-c.done:
	}
}

func (c *Client) publish() {
	view := c.runtime.View(c.boot.userView())
	select {
	case c.views <- view:
	default:
		select {
		case <-c.views:
		default:
		}
		c.views <- view
	}
}
