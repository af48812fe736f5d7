package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "traveltime"

// Metrics holds all TravelTime metric instruments.
type Metrics struct {
	Lookups        metric.Int64Counter // attribute "result": hit, miss, invalid, failed
	UpstreamCalls  metric.Int64Counter // attribute "status"
	CacheEvictions metric.Int64Counter
	FetchDuration  metric.Float64Histogram
	BatchSize      metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Lookups, err = meter.Int64Counter("traveltime.lookups",
		metric.WithDescription("Number of direction lookups by outcome"))
	if err != nil {
		return nil, err
	}

	m.UpstreamCalls, err = meter.Int64Counter("traveltime.upstream.calls",
		metric.WithDescription("Number of calls to the directions endpoint by status"))
	if err != nil {
		return nil, err
	}

	m.CacheEvictions, err = meter.Int64Counter("traveltime.cache.evictions",
		metric.WithDescription("Number of cache entries removed by prune"))
	if err != nil {
		return nil, err
	}

	m.FetchDuration, err = meter.Float64Histogram("traveltime.upstream.duration_seconds",
		metric.WithDescription("Directions endpoint latency in seconds"))
	if err != nil {
		return nil, err
	}

	m.BatchSize, err = meter.Int64Histogram("traveltime.distances.batch_size",
		metric.WithDescription("Destinations per distance computation"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// MustMetrics is NewMetrics for wiring code that cannot proceed without
// instruments. The global meter provider never fails to create them.
func MustMetrics() *Metrics {
	m, err := NewMetrics()
	if err != nil {
		panic(err)
	}
	return m
}
