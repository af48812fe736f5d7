package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Strob0t/TravelTime/internal/domain"
	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// OriginService keeps the recently used and favorite origins.
type OriginService struct {
	store kvstore.Store
	mu    sync.Mutex
}

// NewOriginService creates a new OriginService.
func NewOriginService(store kvstore.Store) *OriginService {
	return &OriginService{store: store}
}

// History returns recently used origins, newest first.
func (s *OriginService) History(ctx context.Context) ([]string, error) {
	return s.read(ctx, destination.OriginHistoryKey)
}

// Favorites returns favorite origins, most recently added first.
func (s *OriginService) Favorites(ctx context.Context) ([]string, error) {
	return s.read(ctx, destination.FavoriteOriginsKey)
}

// Remember pushes origin onto the history.
func (s *OriginService) Remember(ctx context.Context, origin string) ([]string, error) {
	if strings.TrimSpace(origin) == "" {
		return nil, fmt.Errorf("origin is required: %w", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.read(ctx, destination.OriginHistoryKey)
	if err != nil {
		return nil, err
	}
	history = destination.PushHistory(history, origin)
	if err := writeJSON(ctx, s.store, destination.OriginHistoryKey, history); err != nil {
		return nil, err
	}
	return history, nil
}

// ClearHistory forgets every recently used origin.
func (s *OriginService) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(ctx, s.store, destination.OriginHistoryKey, []string{})
}

// ToggleFavorite adds origin to the favorites or removes it when already
// present. It reports whether origin is a favorite afterwards.
func (s *OriginService) ToggleFavorite(ctx context.Context, origin string) ([]string, bool, error) {
	if strings.TrimSpace(origin) == "" {
		return nil, false, fmt.Errorf("origin is required: %w", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites, err := s.read(ctx, destination.FavoriteOriginsKey)
	if err != nil {
		return nil, false, err
	}
	favorites, on := destination.ToggleFavorite(favorites, strings.TrimSpace(origin))
	if err := writeJSON(ctx, s.store, destination.FavoriteOriginsKey, favorites); err != nil {
		return nil, false, err
	}
	return favorites, on, nil
}

func (s *OriginService) read(ctx context.Context, key string) ([]string, error) {
	var values []string
	if err := readJSON(ctx, s.store, key, &values); err != nil {
		return nil, err
	}
	return destination.Dedupe(values), nil
}
