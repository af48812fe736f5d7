package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Strob0t/TravelTime/internal/domain"
	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/domain/settings"
	"github.com/Strob0t/TravelTime/internal/port/broadcast"
)

type distanceStack struct {
	*lookupStack
	destinations *DestinationService
	origins      *OriginService
	distances    *DistanceService
	events       *recordingBroadcaster
}

func newDistanceStack(t *testing.T) *distanceStack {
	t.Helper()
	ls := newLookupStack(t)
	s := &distanceStack{
		lookupStack:  ls,
		destinations: NewDestinationService(ls.synced),
		origins:      NewOriginService(ls.synced),
		events:       &recordingBroadcaster{},
	}
	s.distances = NewDistanceService(ls.synced, ls.lookups, s.destinations, s.origins, ls.settings, 2)
	s.distances.now = ls.clock.Now
	s.distances.SetBroadcaster(s.events)
	return s
}

func (s *distanceStack) addDestinations(t *testing.T, addresses ...string) {
	t.Helper()
	for _, a := range addresses {
		if _, err := s.destinations.Add(context.Background(), destination.CreateRequest{Name: a, Address: a}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDistanceService_RanksAndIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s := newDistanceStack(t)
	s.addDestinations(t, "far", "broken", "near")

	s.fetcher.respond = func(req lookup.Request) directions.Result {
		switch req.Destination {
		case "far":
			return okResult(3600)
		case "near":
			return okResult(300)
		}
		return directions.Failed("connection reset")
	}

	got, err := s.distances.ComputeDistances(ctx, destination.ComputeRequest{Origin: "Home", TransportMode: "driving"})
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	for _, r := range got.Destinations {
		order = append(order, r.Address)
	}
	if len(order) != 3 || order[0] != "near" || order[1] != "far" || order[2] != "broken" {
		t.Fatalf("order = %v, want [near far broken]", order)
	}
	broken := got.Destinations[2]
	if broken.Status != directions.StatusRequestFailed || broken.ErrorMessage != "connection reset" {
		t.Errorf("unexpected failed entry: %+v", broken)
	}
	if broken.DurationSeconds != directions.UnknownSeconds {
		t.Errorf("failed entry duration = %d", broken.DurationSeconds)
	}
	if got.Failed != 1 {
		t.Errorf("failed = %d, want 1", got.Failed)
	}
	if got.Origin != "Home" || got.TransportMode != "driving" {
		t.Errorf("unexpected header: %+v", got)
	}
	if got.ComputedAt != s.clock.Now().UnixMilli() {
		t.Errorf("computed_at = %d", got.ComputedAt)
	}

	stored, err := s.distances.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Destinations) != 3 || stored.Destinations[0].Address != "near" {
		t.Errorf("distances not persisted: %+v", stored)
	}

	history, _ := s.origins.History(ctx)
	if len(history) != 1 || history[0] != "Home" {
		t.Errorf("history = %v", history)
	}
	if ev := s.events.types(); len(ev) != 1 || ev[0] != broadcast.EventDistancesComputed {
		t.Errorf("events = %v", ev)
	}
}

func TestDistanceService_TimingFromSettings(t *testing.T) {
	ctx := context.Background()
	s := newDistanceStack(t)
	s.addDestinations(t, "Office")

	// Defaults: transit, arrival at 08:00. The clock reads 07:00 UTC.
	if _, err := s.distances.ComputeDistances(ctx, destination.ComputeRequest{Origin: "Home"}); err != nil {
		t.Fatal(err)
	}
	want := strconv.FormatInt(s.clock.Now().Add(time.Hour).Unix(), 10)

	reqs := s.fetcher.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if reqs[0].TransportMode != lookup.ModeTransit || reqs[0].TimeReference != lookup.TimeArrival {
		t.Errorf("unexpected request: %+v", reqs[0])
	}
	if reqs[0].ArrivalTime != want || reqs[0].DepartureTime != "" {
		t.Errorf("arrival_time = %q, want %q", reqs[0].ArrivalTime, want)
	}
}

func TestDistanceService_ArrivalBecomesDepartureForDriving(t *testing.T) {
	ctx := context.Background()
	s := newDistanceStack(t)
	s.addDestinations(t, "Office")

	_, err := s.distances.ComputeDistances(ctx, destination.ComputeRequest{
		Origin: "Home", TransportMode: "driving", TimeReference: "arrival", Hour: "06", Minutes: "30",
	})
	if err != nil {
		t.Fatal(err)
	}

	req := s.fetcher.requests()[0]
	if req.TimeReference != lookup.TimeDeparture || req.ArrivalTime != "" {
		t.Fatalf("expected departure timing, got %+v", req)
	}
	// 06:30 has passed at 07:00, so the next day is used.
	want := time.Date(2024, 3, 12, 6, 30, 0, 0, time.UTC).Unix()
	if req.DepartureTime != strconv.FormatInt(want, 10) {
		t.Errorf("departure_time = %q, want %d", req.DepartureTime, want)
	}
}

func TestDistanceService_HiddenByFilter(t *testing.T) {
	ctx := context.Background()
	s := newDistanceStack(t)
	s.addDestinations(t, "near", "far")
	s.fetcher.respond = func(req lookup.Request) directions.Result {
		if req.Destination == "far" {
			return okResult(7200)
		}
		return okResult(600)
	}

	data, _ := json.Marshal(map[string]any{"max_duration_minutes": "30"})
	if err := s.synced.Set(ctx, settings.StorageKey, data); err != nil {
		t.Fatal(err)
	}

	got, err := s.distances.ComputeDistances(ctx, destination.ComputeRequest{Origin: "Home", TransportMode: "walking"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Hidden != 1 {
		t.Errorf("hidden = %d, want 1", got.Hidden)
	}
}

func TestDistanceService_Validation(t *testing.T) {
	ctx := context.Background()
	s := newDistanceStack(t)

	if _, err := s.distances.ComputeDistances(ctx, destination.ComputeRequest{Origin: "Home"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty address book: got %v, want validation error", err)
	}

	s.addDestinations(t, "Office")
	tests := []destination.ComputeRequest{
		{Origin: "  "},
		{Origin: "Home", TransportMode: "hovercraft"},
		{Origin: "Home", TimeReference: "someday"},
		{Origin: "Home", Hour: "25"},
	}
	for _, req := range tests {
		if _, err := s.distances.ComputeDistances(ctx, req); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ComputeDistances(%+v) = %v, want validation error", req, err)
		}
	}
	if s.fetcher.count() != 0 {
		t.Fatalf("invalid requests reached upstream %d times", s.fetcher.count())
	}
}

func TestDistanceService_LatestDefaultsToEmpty(t *testing.T) {
	s := newDistanceStack(t)
	got, err := s.distances.Latest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Destinations == nil || len(got.Destinations) != 0 {
		t.Fatalf("expected empty destinations, got %+v", got.Destinations)
	}
}
