// Package destination defines saved destinations, computed distance sets
// and the origin history kept alongside them.
package destination

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Strob0t/TravelTime/internal/domain"
)

// Synced-store keys owned by this package.
const (
	AddressListKey     = "address_list"
	DistancesKey       = "distances"
	OriginHistoryKey   = "origin_history"
	FavoriteOriginsKey = "favorite_origins"
)

// Destination is a saved address the user compares travel times against.
type Destination struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreateRequest holds the fields for adding or editing a destination.
type CreateRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Validate trims req and checks required fields.
func (req *CreateRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)

	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if req.Address == "" {
		return fmt.Errorf("address is required: %w", domain.ErrValidation)
	}
	if len(req.Name) > 255 || len(req.Address) > 1024 {
		return fmt.Errorf("name or address too long: %w", domain.ErrValidation)
	}
	for _, r := range req.Name + req.Address {
		if unicode.IsControl(r) {
			return fmt.Errorf("name and address must not contain control characters: %w", domain.ErrValidation)
		}
	}
	return nil
}

// HasAddress reports whether list already holds address, ignoring case and
// surrounding whitespace. The entry with id skip is ignored.
func HasAddress(list []Destination, address, skip string) bool {
	needle := strings.ToLower(strings.TrimSpace(address))
	for _, d := range list {
		if d.ID == skip {
			continue
		}
		if strings.ToLower(strings.TrimSpace(d.Address)) == needle {
			return true
		}
	}
	return false
}
