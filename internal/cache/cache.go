// Package cache stores JSON values with a TTL and caches on-demand match
// scores.
package cache

import (
	"context"
	"time"
)

// Cache is a JSON key/value store with expiry.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
