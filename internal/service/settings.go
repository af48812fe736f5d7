package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/settings"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// SettingsService reads and writes the user settings held in the synced store.
type SettingsService struct {
	store kvstore.Store
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store kvstore.Store) *SettingsService {
	return &SettingsService{store: store}
}

// Settings returns the stored settings merged over the defaults.
func (s *SettingsService) Settings(ctx context.Context) (settings.Settings, error) {
	data, _, err := s.store.Get(ctx, settings.StorageKey)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return settings.Decode(data), nil
}

// Update validates req and replaces the stored settings.
func (s *SettingsService) Update(ctx context.Context, req settings.UpdateRequest) (settings.Settings, error) {
	st, err := settings.Validate(req)
	if err != nil {
		return settings.Settings{}, err
	}
	if err := s.save(ctx, st); err != nil {
		return settings.Settings{}, err
	}
	slog.Info("settings updated",
		"transport_mode", st.DefaultTransportMode,
		"cache_ttl_minutes", st.CacheTTLMinutes,
	)
	return st, nil
}

// Reset restores the default settings.
func (s *SettingsService) Reset(ctx context.Context) (settings.Settings, error) {
	st := settings.Defaults()
	if err := s.save(ctx, st); err != nil {
		return settings.Settings{}, err
	}
	return st, nil
}

// EnsureDefaults seeds every synced key that is missing and repairs values
// of the wrong shape: the list keys must hold arrays, distances must be a
// result set, and the settings are rewritten merged over the defaults.
func (s *SettingsService) EnsureDefaults(ctx context.Context) error {
	seeds := []struct {
		key   string
		value any
		valid func([]byte) bool
	}{
		{destination.AddressListKey, []destination.Destination{}, isJSONArray},
		{destination.DistancesKey, destination.Distances{Destinations: []destination.Result{}}, destination.ValidDistances},
		{destination.OriginHistoryKey, []string{}, isJSONArray},
		{destination.FavoriteOriginsKey, []string{}, isJSONArray},
	}

	for _, seed := range seeds {
		data, ok, err := s.store.Get(ctx, seed.key)
		if err != nil {
			return fmt.Errorf("read %s: %w", seed.key, err)
		}
		if ok && seed.valid(data) {
			continue
		}
		if err := writeJSON(ctx, s.store, seed.key, seed.value); err != nil {
			return err
		}
		slog.Debug("seeded synced key", "key", seed.key, "repaired", ok)
	}

	data, _, err := s.store.Get(ctx, settings.StorageKey)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	merged, err := json.Marshal(settings.Decode(data))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if bytes.Equal(merged, data) {
		return nil
	}
	if err := s.store.Set(ctx, settings.StorageKey, merged); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	slog.Debug("seeded synced key", "key", settings.StorageKey, "repaired", len(data) > 0)
	return nil
}

func isJSONArray(data []byte) bool {
	var v []json.RawMessage
	return json.Unmarshal(data, &v) == nil && v != nil
}

func (s *SettingsService) save(ctx context.Context, st settings.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.store.Set(ctx, settings.StorageKey, data); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
