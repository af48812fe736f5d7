package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/TravelTime/internal/adapter/otel"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/domain/settings"
	"github.com/Strob0t/TravelTime/internal/port/broadcast"
	directionsport "github.com/Strob0t/TravelTime/internal/port/directions"
)

// LookupService answers direction lookups from the cache when it can and
// from the upstream directions service otherwise. Concurrent misses for
// the same lookup share one upstream call, and only OK results are
// written back.
type LookupService struct {
	cache      *CacheManager
	fetcher    directionsport.Fetcher
	settings   *SettingsService
	events     broadcast.Broadcaster
	metrics    *cfotel.Metrics
	timeout    time.Duration
	defaultTTL time.Duration
	flight     singleflight.Group
}

// NewLookupService creates a LookupService. Each upstream call is bounded
// by timeout; defaultTTL applies when the settings hold no usable TTL.
func NewLookupService(
	cache *CacheManager,
	fetcher directionsport.Fetcher,
	settingsSvc *SettingsService,
	timeout, defaultTTL time.Duration,
) *LookupService {
	if defaultTTL <= 0 {
		defaultTTL = settings.DefaultCacheTTL
	}
	return &LookupService{
		cache:      cache,
		fetcher:    fetcher,
		settings:   settingsSvc,
		timeout:    timeout,
		defaultTTL: defaultTTL,
	}
}

// SetBroadcaster sets the event sink for cache.cleared events.
func (s *LookupService) SetBroadcaster(b broadcast.Broadcaster) { s.events = b }

// SetMetrics enables lookup metrics.
func (s *LookupService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// GetDirection resolves one lookup. It never returns a Go error: every
// failure, including a panic further down, comes back as a REQUEST_FAILED
// result. The result's cached flag tells whether it was served from cache.
func (s *LookupService) GetDirection(ctx context.Context, raw lookup.Raw) (res directions.Result) {
	ctx, span := cfotel.StartLookupSpan(ctx, raw.TransportMode)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("lookup panicked", "panic", r)
			span.SetStatus(codes.Error, "panic")
			s.count(ctx, "failed")
			res = directions.Failed(fmt.Sprint(r)).WithCached(false)
		}
	}()

	req, err := lookup.Normalize(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.count(ctx, "invalid")
		return directions.Failed(err.Error()).WithCached(false)
	}

	key := req.Key()
	ttl := s.ttl(ctx)

	if hit, ok := s.cache.Lookup(ctx, key, ttl); ok {
		span.SetAttributes(attribute.Bool("lookup.cached", true))
		s.count(ctx, "hit")
		return hit.WithCached(true)
	}

	v, _, shared := s.flight.Do(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("directions fetch panicked", "panic", r)
				v = directions.Failed(fmt.Sprint(r))
			}
		}()
		return s.fetchAndStore(ctx, req, key, ttl), nil
	})
	res = v.(directions.Result)

	span.SetAttributes(
		attribute.Bool("lookup.cached", false),
		attribute.Bool("lookup.shared", shared),
		attribute.String("lookup.status", res.Status),
	)
	if res.OK() {
		s.count(ctx, "miss")
	} else {
		span.SetStatus(codes.Error, res.Status)
		s.count(ctx, "failed")
	}
	return res.WithCached(false)
}

// ClearCache removes every cached result.
func (s *LookupService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if s.events != nil {
		s.events.BroadcastEvent(ctx, broadcast.EventCacheCleared, map[string]any{
			"cleared_at": time.Now().UnixMilli(),
		})
	}
	return nil
}

// fetchAndStore runs once per in-flight key. It is detached from the
// caller's cancellation because other callers may be waiting on it; the
// timeout bounds it instead.
func (s *LookupService) fetchAndStore(ctx context.Context, req lookup.Request, key string, ttl time.Duration) directions.Result {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	res := s.fetcher.Fetch(fctx, req)
	if res.OK() {
		// A failed write-back only costs a future cache hit.
		_ = s.cache.Store(context.WithoutCancel(ctx), key, res, ttl)
	} else {
		slog.Info("lookup not cached",
			"status", res.Status,
			"error_message", res.ErrorMessage,
			"transport_mode", string(req.TransportMode),
		)
	}
	return res
}

func (s *LookupService) ttl(ctx context.Context) time.Duration {
	if s.settings == nil {
		return s.defaultTTL
	}
	st, err := s.settings.Settings(ctx)
	if err != nil {
		slog.Warn("settings unavailable, using default cache ttl", "error", err)
		return s.defaultTTL
	}
	return st.CacheTTLOr(s.defaultTTL)
}

func (s *LookupService) count(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
