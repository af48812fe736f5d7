// Package natskv implements the kvstore port on a NATS JetStream KeyValue bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Store wraps a JetStream KeyValue bucket.
type Store struct {
	kv jetstream.KeyValue
}

// New creates a Store on an existing bucket.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Get returns the latest value of key.
func (s *Store) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("nats kv get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set puts a new revision of key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("nats kv put %s: %w", key, err)
	}
	return nil
}

// Delete places delete markers on keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		err := s.kv.Delete(ctx, key)
		if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("nats kv delete %s: %w", key, err)
		}
	}
	return nil
}

// Scan replays the latest value of every matching key through a single
// watcher. The watch subject is narrowed to prefix when it ends at a
// token boundary.
func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	subject := ">"
	if strings.HasSuffix(prefix, ".") {
		subject = prefix + ">"
	}
	w, err := s.kv.Watch(ctx, subject, jetstream.IgnoreDeletes())
	if err != nil {
		return nil, fmt.Errorf("nats kv watch %s: %w", subject, err)
	}
	defer func() { _ = w.Stop() }()

	out := make(map[string][]byte)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-w.Updates():
			// A nil entry marks the end of the initial values.
			if !ok || entry == nil {
				return out, nil
			}
			if entry.Operation() == jetstream.KeyValuePut && strings.HasPrefix(entry.Key(), prefix) {
				out[entry.Key()] = entry.Value()
			}
		}
	}
}

// Keys lists live keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("nats kv list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
