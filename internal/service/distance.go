package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cfotel "github.com/Strob0t/TravelTime/internal/adapter/otel"
	"github.com/Strob0t/TravelTime/internal/domain"
	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/pool"
	"github.com/Strob0t/TravelTime/internal/port/broadcast"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// DistanceService computes travel times from one origin to every saved
// destination and stores the ranked result.
type DistanceService struct {
	store        kvstore.Store
	lookups      *LookupService
	destinations *DestinationService
	origins      *OriginService
	settings     *SettingsService
	events       broadcast.Broadcaster
	metrics      *cfotel.Metrics
	concurrency  int
	now          func() time.Time // for testing
}

// NewDistanceService creates a DistanceService running at most concurrency
// lookups at once.
func NewDistanceService(
	store kvstore.Store,
	lookups *LookupService,
	destinations *DestinationService,
	origins *OriginService,
	settingsSvc *SettingsService,
	concurrency int,
) *DistanceService {
	return &DistanceService{
		store:        store,
		lookups:      lookups,
		destinations: destinations,
		origins:      origins,
		settings:     settingsSvc,
		concurrency:  concurrency,
		now:          time.Now,
	}
}

// SetBroadcaster sets the event sink for distances.computed events.
func (s *DistanceService) SetBroadcaster(b broadcast.Broadcaster) { s.events = b }

// SetMetrics enables batch size metrics.
func (s *DistanceService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Latest returns the last stored distance set.
func (s *DistanceService) Latest(ctx context.Context) (*destination.Distances, error) {
	d := destination.Distances{Destinations: []destination.Result{}}
	if err := readJSON(ctx, s.store, destination.DistancesKey, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ComputeDistances looks up every saved destination from req.Origin. One
// failing destination never fails the batch; it is ranked after the
// successful ones with its error attached.
func (s *DistanceService) ComputeDistances(ctx context.Context, req destination.ComputeRequest) (*destination.Distances, error) {
	origin := strings.TrimSpace(req.Origin)
	if origin == "" {
		return nil, fmt.Errorf("origin is required: %w", domain.ErrValidation)
	}

	st, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, err
	}
	mode := lookup.TransportMode(strings.ToLower(firstNonEmpty(req.TransportMode, st.DefaultTransportMode)))
	if !mode.Valid() {
		return nil, fmt.Errorf("unsupported transport_mode %q: %w", mode, domain.ErrValidation)
	}
	ref := lookup.TimeReference(strings.ToLower(firstNonEmpty(req.TimeReference, st.DefaultTimeReference)))
	if ref == lookup.TimeArrival && mode != lookup.ModeTransit {
		ref = lookup.TimeDeparture
	}
	timing, err := lookup.BuildTiming(ref,
		firstNonEmpty(req.Hour, st.DefaultHour),
		firstNonEmpty(req.Minutes, st.DefaultMinutes),
		s.now(),
	)
	if err != nil {
		return nil, err
	}

	list, err := s.destinations.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no destinations saved: %w", domain.ErrValidation)
	}

	ctx, span := cfotel.StartComputeSpan(ctx, string(mode), len(list))
	defer span.End()
	if s.metrics != nil {
		s.metrics.BatchSize.Record(ctx, int64(len(list)))
	}

	results := pool.RunBounded(ctx, list, s.concurrency,
		func(ctx context.Context, d destination.Destination) (destination.Result, error) {
			raw := timing.Apply(lookup.Raw{
				Origin:        origin,
				Destination:   d.Address,
				TransportMode: string(mode),
			})
			return destination.NewResult(d, s.lookups.GetDirection(ctx, raw)), nil
		},
		func(d destination.Destination, err error) destination.Result {
			return destination.NewResult(d, directions.Failed(err.Error()))
		},
	)

	ranked := destination.Rank(results)
	out := &destination.Distances{
		Origin:        origin,
		TransportMode: string(mode),
		Destinations:  ranked,
		ComputedAt:    s.now().UnixMilli(),
		Hidden:        destination.CountHidden(ranked, st.MaxDuration()),
	}
	for _, r := range ranked {
		if !r.OK() {
			out.Failed++
		}
	}

	if err := writeJSON(ctx, s.store, destination.DistancesKey, out); err != nil {
		return nil, err
	}
	if _, err := s.origins.Remember(ctx, origin); err != nil {
		slog.Warn("origin history not updated", "error", err)
	}

	slog.Info("distances computed",
		"destinations", len(ranked),
		"failed", out.Failed,
		"hidden", out.Hidden,
		"transport_mode", out.TransportMode,
	)
	if s.events != nil {
		s.events.BroadcastEvent(ctx, broadcast.EventDistancesComputed, out)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
