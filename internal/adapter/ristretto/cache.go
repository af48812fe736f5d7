// Package ristretto implements the cache port with dgraph-io/ristretto as
// the in-process L1 in front of a remote storage tier.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// minCost keeps tiny configurations usable; ristretto rejects most admissions
// when MaxCost is close to a single value's size.
const minCost = 1 << 20

// Cache is a cost-bounded L1 cache. The cost of an entry is its value size.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// Stats is a snapshot of the L1 hit counters.
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// New creates a cache holding at most maxBytes of values.
func New(maxBytes int64) (*Cache, error) {
	maxBytes = max(maxBytes, minCost)
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Roughly ten counters per expected entry of ~100 bytes.
		NumCounters:        maxBytes / 10,
		MaxCost:            maxBytes,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
		Cost:               func(v []byte) int64 { return int64(len(v)) },
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.c.Get(key)
	return v, ok, nil
}

// Set admits value for ttl. Admission is asynchronous and may be refused,
// so a Get right afterwards can still miss. Call Wait to flush.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, 0, ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Stats reports hits and misses since creation.
func (c *Cache) Stats() Stats {
	m := c.c.Metrics
	return Stats{Hits: m.Hits(), Misses: m.Misses(), HitRatio: m.Ratio()}
}

func (c *Cache) Wait() { c.c.Wait() }

func (c *Cache) Close() { c.c.Close() }
