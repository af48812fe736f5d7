// Package cache defines the port interface for an expiring read cache
// placed in front of a slower store.
package cache

import (
	"context"
	"time"
)

// Cache is a best-effort key-value cache. Entries may disappear at any
// time, so callers must treat it as an accelerator and never as the
// source of truth.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
