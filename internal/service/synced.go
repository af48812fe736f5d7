package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// readJSON decodes the value under key into dst. A missing key or a value
// that does not decode leaves dst unchanged and is not an error.
func readJSON(ctx context.Context, store kvstore.Store, key string, dst any) error {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	_ = json.Unmarshal(data, dst)
	return nil
}

func writeJSON(ctx context.Context, store kvstore.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
