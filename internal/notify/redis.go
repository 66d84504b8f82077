package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelNotificationCreated carries every notification written by the
// service so that the gateway can push it to connected clients.
const ChannelNotificationCreated = "EVENT_NOTIFICATION_CREATED"

// Events publishes JSON payloads on Redis pub/sub channels.
type Events struct {
	rdb *redis.Client
}

// NewEvents returns an Events publisher using rdb.
func NewEvents(rdb *redis.Client) *Events {
	return &Events{rdb: rdb}
}

// Publish marshals payload and publishes it on channel.
func (e *Events) Publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", channel, err)
	}
	if err := e.rdb.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// CreateNotification mirrors n on ChannelNotificationCreated.
func (e *Events) CreateNotification(ctx context.Context, n Notification) error {
	return e.Publish(ctx, ChannelNotificationCreated, n)
}
