package db

import (
	"fmt"

	"github.com/streadway/amqp"
)

// NewAMQPConnection dials the broker at amqpURL and opens a throwaway
// channel to confirm it accepts work.
func NewAMQPConnection(amqpURL string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	ch.Close()
	return conn, nil
}
