package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Strob0t/TravelTime/internal/domain"
	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/port/kvstore"
)

// DestinationService manages the saved address book.
type DestinationService struct {
	store kvstore.Store
	mu    sync.Mutex // serializes read-modify-write of the address list
}

// NewDestinationService creates a new DestinationService.
func NewDestinationService(store kvstore.Store) *DestinationService {
	return &DestinationService{store: store}
}

// List returns every saved destination in insertion order.
func (s *DestinationService) List(ctx context.Context) ([]destination.Destination, error) {
	list := []destination.Destination{}
	if err := readJSON(ctx, s.store, destination.AddressListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Add validates req and appends a new destination.
func (s *DestinationService) Add(ctx context.Context, req destination.CreateRequest) (*destination.Destination, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if destination.HasAddress(list, req.Address, "") {
		return nil, fmt.Errorf("address %q already saved: %w", req.Address, domain.ErrValidation)
	}

	d := destination.Destination{ID: uuid.New().String(), Name: req.Name, Address: req.Address}
	if err := writeJSON(ctx, s.store, destination.AddressListKey, append(list, d)); err != nil {
		return nil, err
	}
	slog.Info("destination added", "id", d.ID)
	return &d, nil
}

// Update replaces the name and address of destination id.
func (s *DestinationService) Update(ctx context.Context, id string, req destination.CreateRequest) (*destination.Destination, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if destination.HasAddress(list, req.Address, id) {
		return nil, fmt.Errorf("address %q already saved: %w", req.Address, domain.ErrValidation)
	}

	for i := range list {
		if list[i].ID != id {
			continue
		}
		list[i].Name = req.Name
		list[i].Address = req.Address
		if err := writeJSON(ctx, s.store, destination.AddressListKey, list); err != nil {
			return nil, err
		}
		d := list[i]
		return &d, nil
	}
	return nil, fmt.Errorf("destination %s: %w", id, domain.ErrNotFound)
}

// Delete removes destination id.
func (s *DestinationService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := make([]destination.Destination, 0, len(list))
	for _, d := range list {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(list) {
		return fmt.Errorf("destination %s: %w", id, domain.ErrNotFound)
	}
	if err := writeJSON(ctx, s.store, destination.AddressListKey, kept); err != nil {
		return err
	}
	slog.Info("destination deleted", "id", id)
	return nil
}
