// Package tiered implements a kvstore that keeps a read cache (L1) in
// front of a persistent store (L2).
package tiered

import (
	"context"
	"time"

	"github.com/Strob0t/TravelTime/internal/port/cache"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// Store serves reads from L1 when possible and falls back to L2,
// backfilling L1 on an L2 hit. Writes go to L2 first so L1 never holds a
// value that failed to persist. Key listing always consults L2.
type Store struct {
	l1       cache.Cache
	l2       kvstore.Store
	l1Expire time.Duration
}

// New creates a tiered store. l1Expire bounds how long L1 may serve a
// value without consulting L2.
func New(l1 cache.Cache, l2 kvstore.Store, l1Expire time.Duration) *Store {
	return &Store{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2.
func (s *Store) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	val, found, err := s.l1.Get(ctx, key)
	if err == nil && found {
		return val, true, nil
	}

	val, found, err = s.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		_ = s.l1.Set(ctx, key, val, s.l1Expire)
		return val, true, nil
	}
	return nil, false, nil
}

// Set writes L2 and then refreshes L1.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.l2.Set(ctx, key, value); err != nil {
		return err
	}
	_ = s.l1.Set(ctx, key, value, s.l1Expire)
	return nil
}

// Delete evicts keys from L1 and removes them from L2.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		_ = s.l1.Delete(ctx, k)
	}
	return s.l2.Delete(ctx, keys...)
}

// Scan reads L2 directly; a bulk read would only churn L1.
func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	return s.l2.Scan(ctx, prefix)
}

// Keys lists keys from L2.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.l2.Keys(ctx, prefix)
}
