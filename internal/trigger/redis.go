package trigger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber listens on the trigger channels of a Redis server.
type Subscriber struct {
	rdb    *redis.Client
	router *Router
}

// NewSubscriber returns a Subscriber feeding router.
func NewSubscriber(rdb *redis.Client, router *Router) *Subscriber {
	return &Subscriber{rdb: rdb, router: router}
}

// Run subscribes and handles messages one at a time until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, Channels...)
	defer pubsub.Close()

	// Wait for the subscription confirmation so that errors surface here.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %v: %w", Channels, err)
	}
	s.router.log.Info("subscribed", zap.Strings("channels", Channels))

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.router.handleLogged(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}
