package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/TravelTime/internal/adapter/otel"
	"github.com/Strob0t/TravelTime/internal/domain/cacheentry"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/pool"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// CacheManager owns the cache entries of the local store. Every operation
// runs as one task on a FIFO queue so that scan-then-delete sequences never
// interleave: a get and the prune that follows it cannot race a
// concurrent put and its own prune.
//
// Reads fail soft. A corrupt, mismatched or stale entry reads as a miss
// and is removed on the spot.
type CacheManager struct {
	store      kvstore.Store
	maxEntries int
	queue      *pool.Pool
	metrics    *cfotel.Metrics
	now        func() time.Time // for testing
}

// NewCacheManager creates a CacheManager over store keeping at most
// maxEntries entries. A non-positive maxEntries uses the default of 250.
func NewCacheManager(store kvstore.Store, maxEntries int) *CacheManager {
	if maxEntries < 1 {
		maxEntries = cacheentry.DefaultMaxEntries
	}
	return &CacheManager{
		store:      store,
		maxEntries: maxEntries,
		queue:      pool.NewPool(1),
		now:        time.Now,
	}
}

// SetMetrics enables eviction counting.
func (m *CacheManager) SetMetrics(metrics *cfotel.Metrics) { m.metrics = metrics }

// Lookup returns the fresh payload cached under key. A hit also prunes the
// cache inside the same queued task; a failed prune does not hide the hit.
func (m *CacheManager) Lookup(ctx context.Context, key string, ttl time.Duration) (directions.Result, bool) {
	var (
		entry cacheentry.Entry
		found bool
	)
	_ = m.enqueue(ctx, "lookup", func(ctx context.Context) error {
		entry, found = m.get(ctx, key, ttl)
		if !found {
			return nil
		}
		return m.prune(ctx, ttl)
	})
	if !found {
		return directions.Result{}, false
	}
	return entry.Payload, true
}

// Store writes payload under key and prunes the cache in one queued task.
func (m *CacheManager) Store(ctx context.Context, key string, payload directions.Result, ttl time.Duration) error {
	return m.enqueue(ctx, "store", func(ctx context.Context) error {
		if err := m.put(ctx, key, payload); err != nil {
			return err
		}
		return m.prune(ctx, ttl)
	})
}

// Get returns the fresh entry stored under key.
func (m *CacheManager) Get(ctx context.Context, key string, ttl time.Duration) (cacheentry.Entry, bool) {
	var (
		entry cacheentry.Entry
		found bool
	)
	_ = m.enqueue(ctx, "get", func(ctx context.Context) error {
		entry, found = m.get(ctx, key, ttl)
		return nil
	})
	return entry, found
}

// Put stamps payload with the current time and stores it under key,
// replacing any previous entry.
func (m *CacheManager) Put(ctx context.Context, key string, payload directions.Result) error {
	return m.enqueue(ctx, "put", func(ctx context.Context) error {
		return m.put(ctx, key, payload)
	})
}

// Prune removes expired and invalid entries, keeps the newest maxEntries
// of the rest and removes the legacy single-blob cache.
func (m *CacheManager) Prune(ctx context.Context, ttl time.Duration) error {
	return m.enqueue(ctx, "prune", func(ctx context.Context) error {
		return m.prune(ctx, ttl)
	})
}

// Clear removes every cache entry and the legacy single-blob cache.
func (m *CacheManager) Clear(ctx context.Context) error {
	return m.enqueue(ctx, "clear", func(ctx context.Context) error {
		keys, err := m.store.Keys(ctx, cacheentry.Prefix)
		if err != nil {
			return fmt.Errorf("list cache keys: %w", err)
		}
		if err := m.store.Delete(ctx, append(keys, cacheentry.LegacyKey)...); err != nil {
			return fmt.Errorf("delete cache keys: %w", err)
		}
		slog.Info("cache cleared", "entries", len(keys))
		return nil
	})
}

// enqueue runs fn as one task on the queue. A started task is not
// cancelled with the caller's context. Failures are logged here and
// returned; the queue itself always moves on to the next task.
func (m *CacheManager) enqueue(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := cfotel.StartCacheSpan(ctx, op)
	defer span.End()

	err := m.queue.Run(ctx, func() error {
		return fn(context.WithoutCancel(ctx))
	})
	if err != nil {
		span.RecordError(err)
		slog.Warn("cache task failed", "op", op, "error", err)
	}
	return err
}

// get must run on the queue.
func (m *CacheManager) get(ctx context.Context, key string, ttl time.Duration) (cacheentry.Entry, bool) {
	skey := cacheentry.StorageKey(key)
	data, ok, err := m.store.Get(ctx, skey)
	if err != nil {
		slog.Warn("cache read failed", "error", err)
		return cacheentry.Entry{}, false
	}
	if !ok {
		return cacheentry.Entry{}, false
	}

	entry, err := cacheentry.Decode(data)
	switch {
	case err != nil:
		slog.Debug("dropping corrupt cache entry", "error", err)
	case entry.RequestKey != key:
		slog.Debug("dropping mismatched cache entry")
	case entry.Expired(m.now(), ttl):
		slog.Debug("dropping stale cache entry", "age", m.now().Sub(entry.WrittenAt()))
	default:
		return entry, true
	}

	if err := m.store.Delete(ctx, skey); err != nil {
		slog.Warn("cache cleanup failed", "error", err)
	}
	return cacheentry.Entry{}, false
}

// put must run on the queue.
func (m *CacheManager) put(ctx context.Context, key string, payload directions.Result) error {
	data, err := cacheentry.New(key, payload, m.now()).Encode()
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := m.store.Set(ctx, cacheentry.StorageKey(key), data); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// prune must run on the queue.
func (m *CacheManager) prune(ctx context.Context, ttl time.Duration) error {
	entries, err := m.store.Scan(ctx, cacheentry.Prefix)
	if err != nil {
		return fmt.Errorf("scan cache entries: %w", err)
	}

	type live struct {
		key       string
		timestamp int64
	}
	now := m.now()
	valid := make([]live, 0, len(entries))
	var drop []string

	for k, data := range entries {
		entry, err := cacheentry.Decode(data)
		if err != nil || cacheentry.StorageKey(entry.RequestKey) != k || entry.Expired(now, ttl) {
			drop = append(drop, k)
			continue
		}
		valid = append(valid, live{key: k, timestamp: entry.Timestamp})
	}

	if len(valid) > m.maxEntries {
		sort.SliceStable(valid, func(i, j int) bool {
			if valid[i].timestamp != valid[j].timestamp {
				return valid[i].timestamp > valid[j].timestamp
			}
			return valid[i].key < valid[j].key
		})
		for _, v := range valid[m.maxEntries:] {
			drop = append(drop, v.key)
		}
	}

	if err := m.store.Delete(ctx, append(drop, cacheentry.LegacyKey)...); err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	if len(drop) > 0 {
		slog.Debug("cache pruned", "removed", len(drop), "kept", min(len(valid), m.maxEntries))
		if m.metrics != nil {
			m.metrics.CacheEvictions.Add(ctx, int64(len(drop)), metric.WithAttributes(attribute.String("op", "prune")))
		}
	}
	return nil
}
