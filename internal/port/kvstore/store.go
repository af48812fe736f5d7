// Package kvstore defines the port interface for key-value persistence.
package kvstore

import "context"

// Store is a flat key-value namespace. Values are opaque bytes.
type Store interface {
	// Get returns the value stored under key. A missing key is reported
	// with ok=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Keys lists every stored key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Scan returns every key starting with prefix together with its value,
	// in as few backend round trips as the store allows.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// Tiers groups the two persistence tiers. Synced holds small user state
// such as settings and favorites; Local holds cache entries.
type Tiers struct {
	Synced Store
	Local  Store
}
