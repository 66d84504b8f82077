package trigger

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultQueue is the durable queue trigger messages are consumed from.
const DefaultQueue = "match_triggers"

// Consumer reads trigger messages from a RabbitMQ queue.
type Consumer struct {
	conn   *amqp.Connection
	queue  string
	router *Router
}

// NewConsumer returns a Consumer on queue. An empty queue selects
// DefaultQueue.
func NewConsumer(conn *amqp.Connection, queue string, router *Router) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Consumer{conn: conn, queue: queue, router: router}
}

// Run declares the queue and handles deliveries until ctx is done or the
// channel closes. Messages whose scan hit a transient failure are requeued;
// malformed messages and scans of missing records are dropped.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		c.queue, // queue name
		true,    // durable
		false,   // auto-delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	msgs, err := ch.Consume(
		c.queue, // queue name
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.router.log.Info("consuming", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if _, err := c.router.Handle(ctx, "", d.Body); err != nil {
				requeue := Retryable(err)
				c.router.log.Warn("trigger message rejected",
					zap.String("queue", c.queue), zap.Bool("requeue", requeue), zap.Error(err))
				_ = d.Nack(false, requeue)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
