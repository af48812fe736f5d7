// Package kvstoretest provides a behavioural test suite for kvstore.Store
// implementations.
package kvstoretest

import (
	"context"
	"sort"
	"testing"

	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// Run exercises s against the kvstore.Store contract. s must start empty.
func Run(t *testing.T, s kvstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := s.Set(ctx, "compliance.key", []byte("value")); err != nil {
			t.Fatal(err)
		}
		got, ok, err := s.Get(ctx, "compliance.key")
		if err != nil {
			t.Fatal(err)
		}
		if !ok || string(got) != "value" {
			t.Fatalf("expected value, got %q (ok=%v)", got, ok)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = s.Set(ctx, "compliance.over", []byte("one"))
		_ = s.Set(ctx, "compliance.over", []byte("two"))
		got, _, err := s.Get(ctx, "compliance.over")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "two" {
			t.Fatalf("expected two, got %q", got)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "compliance.missing")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("expected miss")
		}
	})

	t.Run("DeleteMany", func(t *testing.T) {
		_ = s.Set(ctx, "compliance.del1", []byte("x"))
		_ = s.Set(ctx, "compliance.del2", []byte("y"))
		if err := s.Delete(ctx, "compliance.del1", "compliance.del2", "compliance.never"); err != nil {
			t.Fatal(err)
		}
		for _, k := range []string{"compliance.del1", "compliance.del2"} {
			if _, ok, _ := s.Get(ctx, k); ok {
				t.Fatalf("%s still present after Delete", k)
			}
		}
	})

	t.Run("DeleteNothing", func(t *testing.T) {
		if err := s.Delete(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("KeysByPrefix", func(t *testing.T) {
		_ = s.Set(ctx, "scan.a", []byte("1"))
		_ = s.Set(ctx, "scan.b", []byte("2"))
		_ = s.Set(ctx, "other.c", []byte("3"))

		keys, err := s.Keys(ctx, "scan.")
		if err != nil {
			t.Fatal(err)
		}
		sort.Strings(keys)
		if len(keys) != 2 || keys[0] != "scan.a" || keys[1] != "scan.b" {
			t.Fatalf("unexpected keys %v", keys)
		}

		_ = s.Delete(ctx, "scan.a")
		keys, err = s.Keys(ctx, "scan.")
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 1 || keys[0] != "scan.b" {
			t.Fatalf("deleted key still listed: %v", keys)
		}
	})

	t.Run("ScanByPrefix", func(t *testing.T) {
		_ = s.Set(ctx, "bulk.a", []byte("1"))
		_ = s.Set(ctx, "bulk.b", []byte("2"))
		_ = s.Set(ctx, "bulkhead", []byte("3"))
		_ = s.Set(ctx, "bulk.gone", []byte("4"))
		_ = s.Delete(ctx, "bulk.gone")

		got, err := s.Scan(ctx, "bulk.")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || string(got["bulk.a"]) != "1" || string(got["bulk.b"]) != "2" {
			t.Fatalf("unexpected scan result %q", got)
		}
	})
}
