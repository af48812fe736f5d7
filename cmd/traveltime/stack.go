package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/TravelTime/internal/adapter/directionsapi"
	"github.com/Strob0t/TravelTime/internal/adapter/memkv"
	cfnats "github.com/Strob0t/TravelTime/internal/adapter/nats"
	"github.com/Strob0t/TravelTime/internal/adapter/natskv"
	cfotel "github.com/Strob0t/TravelTime/internal/adapter/otel"
	"github.com/Strob0t/TravelTime/internal/adapter/postgres"
	"github.com/Strob0t/TravelTime/internal/adapter/ristretto"
	"github.com/Strob0t/TravelTime/internal/adapter/tiered"
	"github.com/Strob0t/TravelTime/internal/config"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
	"github.com/Strob0t/TravelTime/internal/resilience"
	"github.com/Strob0t/TravelTime/internal/service"
)

// stack is the wired service graph shared by the server and the CLI.
type stack struct {
	bus          *cfnats.Bus // nil without NATS
	breaker      *resilience.Breaker
	l1           *ristretto.Cache // nil unless a remote backend has an L1
	settings     *service.SettingsService
	lookups      *service.LookupService
	destinations *service.DestinationService
	origins      *service.OriginService
	distances    *service.DistanceService
	dispatcher   *service.MessageDispatcher
	closers      []func()
}

// Close releases every resource in reverse order of acquisition.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStack(ctx context.Context, cfg *config.Config) (_ *stack, err error) {
	s := &stack{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if cfg.NATS.URL != "" {
		bus, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		s.bus = bus
		s.closers = append(s.closers, func() { _ = bus.Close() })
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	tiers, err := openTiers(ctx, cfg, s)
	if err != nil {
		return nil, err
	}

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	s.breaker = resilience.New(cfg.Breaker)
	client := directionsapi.NewClient(cfg.Directions.Endpoint, cfg.Directions.ClientID)
	client.SetBreaker(s.breaker)
	client.SetMetrics(metrics)

	cache := service.NewCacheManager(tiers.Local, cfg.Cache.MaxEntries)
	cache.SetMetrics(metrics)

	s.settings = service.NewSettingsService(tiers.Synced)
	if err := s.settings.EnsureDefaults(ctx); err != nil {
		return nil, fmt.Errorf("storage defaults: %w", err)
	}

	s.lookups = service.NewLookupService(cache, client, s.settings, cfg.Directions.Timeout, cfg.Cache.DefaultTTL)
	s.lookups.SetMetrics(metrics)
	s.destinations = service.NewDestinationService(tiers.Synced)
	s.origins = service.NewOriginService(tiers.Synced)
	s.distances = service.NewDistanceService(tiers.Synced, s.lookups, s.destinations, s.origins, s.settings, cfg.Directions.Concurrency)
	s.distances.SetMetrics(metrics)
	s.dispatcher = service.NewMessageDispatcher(s.lookups)
	return s, nil
}

// openTiers selects the storage backend. The synced tier of a remote backend
// gets a ristretto read cache in front of it.
func openTiers(ctx context.Context, cfg *config.Config, s *stack) (kvstore.Tiers, error) {
	var tiers kvstore.Tiers
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory storage; state is lost on restart")
		return kvstore.Tiers{Synced: memkv.New(), Local: memkv.New()}, nil

	case config.BackendNATS:
		if s.bus == nil {
			return tiers, fmt.Errorf("nats storage backend requires nats.url")
		}
		synced, err := s.bus.KeyValue(ctx, cfg.Storage.SyncedBucket, 0)
		if err != nil {
			return tiers, fmt.Errorf("nats kv %s: %w", cfg.Storage.SyncedBucket, err)
		}
		local, err := s.bus.KeyValue(ctx, cfg.Storage.LocalBucket, 0)
		if err != nil {
			return tiers, fmt.Errorf("nats kv %s: %w", cfg.Storage.LocalBucket, err)
		}
		tiers = kvstore.Tiers{Synced: natskv.New(synced), Local: natskv.New(local)}

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return tiers, fmt.Errorf("postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return tiers, fmt.Errorf("migrations: %w", err)
		}
		if v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN); err == nil {
			slog.Info("postgres connected, migrations applied", "schema_version", v)
		}
		tiers = kvstore.Tiers{
			Synced: postgres.NewKVStore(pool, postgres.TierSynced),
			Local:  postgres.NewKVStore(pool, postgres.TierLocal),
		}

	default:
		return tiers, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.L1MaxSizeMB > 0 {
		l1, err := ristretto.New(cfg.Storage.L1MaxSizeMB << 20)
		if err != nil {
			return tiers, fmt.Errorf("l1 cache: %w", err)
		}
		s.l1 = l1
		s.closers = append(s.closers, l1.Close)
		tiers.Synced = tiered.New(l1, tiers.Synced, cfg.Storage.L1TTL)
	}
	return tiers, nil
}

// shutdownTimeout bounds graceful shutdown of the HTTP server and exporters.
const shutdownTimeout = 10 * time.Second
