package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Notifier fans out collection change signals across service instances via
// Redis pub/sub on channel quiz:changes:{namespace}.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Publish(ctx context.Context, namespace string) error {
	return n.client.Publish(ctx, n.channel(namespace), "changed").Err()
}

// Listen returns once the subscription is confirmed, so a Publish issued after
// it returns is never missed. Bursts of signals coalesce into one.
func (n *Notifier) Listen(ctx context.Context, namespace string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", namespace, err)
	}

	out := make(chan struct{}, 1)
	messages := pubsub.Channel()
	go func() {
		defer close(out)
		for range messages {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = pubsub.Close() })
	return out, func() {
		stop()
		_ = pubsub.Close()
	}, nil
}

func (n *Notifier) channel(namespace string) string {
	return "quiz:changes:" + namespace
}
