package memkv_test

import (
	"context"
	"testing"

	"github.com/Strob0t/TravelTime/internal/adapter/memkv"
	"github.com/Strob0t/TravelTime/internal/port/kvstore/kvstoretest"
)

func TestCompliance(t *testing.T) {
	kvstoretest.Run(t, memkv.New())
}

func TestValuesAreCopied(t *testing.T) {
	s := memkv.New()
	ctx := context.Background()

	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
	got[1] = 'x'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased stored value: %q", again)
	}
}
