package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/TravelTime/internal/adapter/memkv"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// testClock is a manually advanced clock shared by the services under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeFetcher records every request and answers with respond.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []lookup.Request
	respond func(req lookup.Request) directions.Result
}

func (f *fakeFetcher) Fetch(_ context.Context, req lookup.Request) directions.Result {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return okResult(600)
	}
	return respond(req)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) requests() []lookup.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]lookup.Request(nil), f.calls...)
}

// recordingBroadcaster captures broadcast events.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) BroadcastEvent(_ context.Context, eventType string, _ any) {
	b.mu.Lock()
	b.events = append(b.events, eventType)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func okResult(seconds int) directions.Result {
	r, err := directions.Parse([]byte(fmt.Sprintf(
		`{"status":"OK","api_source":"GOOGLE","routes":[{"legs":[{"duration":{"text":"%d mins","value":%d}}]}]}`,
		seconds/60, seconds)))
	if err != nil {
		panic(err)
	}
	return r
}

// lookupStack wires the lookup services over in-memory stores.
type lookupStack struct {
	synced   *memkv.Store
	local    *memkv.Store
	clock    *testClock
	fetcher  *fakeFetcher
	cache    *CacheManager
	settings *SettingsService
	lookups  *LookupService
}

func newLookupStack(t *testing.T) *lookupStack {
	t.Helper()
	s := &lookupStack{
		synced:  memkv.New(),
		local:   memkv.New(),
		clock:   newTestClock(),
		fetcher: &fakeFetcher{},
	}
	s.cache = NewCacheManager(s.local, 250)
	s.cache.now = s.clock.Now
	s.settings = NewSettingsService(s.synced)
	s.lookups = NewLookupService(s.cache, s.fetcher, s.settings, time.Second, 10*time.Minute)
	return s
}

func (s *lookupStack) cacheKeys(t *testing.T) []string {
	t.Helper()
	keys, err := s.local.Keys(context.Background(), "api_cache_entry.")
	if err != nil {
		t.Fatal(err)
	}
	return keys
}
