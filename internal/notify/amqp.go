package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// NotificationsExchange is the topic exchange notifications are copied to
// for the e-mail and push workers.
const NotificationsExchange = "notifications"

// AMQP copies notifications to a RabbitMQ topic exchange. The routing key is
// "notification.<type>".
type AMQP struct {
	conn     *amqp.Connection
	exchange string
}

// NewAMQP returns a publisher on conn. An empty exchange selects
// NotificationsExchange.
func NewAMQP(conn *amqp.Connection, exchange string) *AMQP {
	if exchange == "" {
		exchange = NotificationsExchange
	}
	return &AMQP{conn: conn, exchange: exchange}
}

// Declare creates the exchange if it does not exist yet.
func (a *AMQP) Declare() error {
	ch, err := a.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(a.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", a.exchange, err)
	}
	return nil
}

func (a *AMQP) CreateNotification(_ context.Context, n Notification) error {
	ch, err := a.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return ch.Publish(
		a.exchange,
		"notification."+n.Kind,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   n.ID.String(),
			Timestamp:   n.CreatedAt,
			Body:        body,
		},
	)
}
