package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/TravelTime/internal/adapter/memkv"
	"github.com/Strob0t/TravelTime/internal/adapter/tiered"
	"github.com/Strob0t/TravelTime/internal/port/kvstore/kvstoretest"
)

// memCache is a simple in-memory cache.Cache for testing.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// failingStore rejects every write.
type failingStore struct{ *memkv.Store }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestCompliance(t *testing.T) {
	kvstoretest.Run(t, tiered.New(newMemCache(), memkv.New(), time.Minute))
}

func TestL1Hit(t *testing.T) {
	l1 := newMemCache()
	s := tiered.New(l1, memkv.New(), time.Minute)

	l1.data["user_settings"] = []byte("l1")
	got, ok, err := s.Get(context.Background(), "user_settings")
	if err != nil || !ok || string(got) != "l1" {
		t.Fatalf("expected L1 hit, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestL2HitBackfillsL1(t *testing.T) {
	l1 := newMemCache()
	l2 := memkv.New()
	s := tiered.New(l1, l2, time.Minute)
	ctx := context.Background()

	_ = l2.Set(ctx, "address_list", []byte("[]"))
	got, ok, err := s.Get(ctx, "address_list")
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("expected L2 hit, got %q ok=%v err=%v", got, ok, err)
	}
	if string(l1.data["address_list"]) != "[]" {
		t.Fatal("expected L1 backfill")
	}
}

func TestFailedWriteLeavesL1Untouched(t *testing.T) {
	l1 := newMemCache()
	s := tiered.New(l1, failingStore{memkv.New()}, time.Minute)

	if err := s.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatal("expected L2 error")
	}
	if _, ok := l1.data["k"]; ok {
		t.Fatal("L1 must not hold a value that failed to persist")
	}
}

func TestDeleteEvictsBoth(t *testing.T) {
	l1 := newMemCache()
	l2 := memkv.New()
	s := tiered.New(l1, l2, time.Minute)
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"))
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := l1.data["k"]; ok {
		t.Fatal("L1 still holds key")
	}
	if l2.Len() != 0 {
		t.Fatal("L2 still holds key")
	}
}
