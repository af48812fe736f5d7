package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Strob0t/TravelTime/internal/domain"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// Bounds for the user-configurable cache TTL, in minutes.
const (
	MinCacheTTLMinutes = 1
	MaxCacheTTLMinutes = 120
)

// UpdateRequest carries a full settings replacement from the caller.
type UpdateRequest struct {
	DefaultTransportMode string  `json:"default_transport_mode"`
	DefaultTimeReference string  `json:"default_time_reference"`
	DefaultHour          string  `json:"default_hour"`
	DefaultMinutes       string  `json:"default_minutes"`
	MaxDurationMinutes   string  `json:"max_duration_minutes"`
	CacheTTLMinutes      float64 `json:"cache_ttl_minutes"`
}

// Validate checks req and returns the Settings to persist. The TTL is
// rounded to whole minutes and an arrival reference is turned into a
// departure one for every mode except transit.
func Validate(req UpdateRequest) (Settings, error) {
	mode := lookup.TransportMode(strings.ToLower(strings.TrimSpace(req.DefaultTransportMode)))
	if !mode.Valid() {
		return Settings{}, fmt.Errorf("unsupported default_transport_mode %q: %w", req.DefaultTransportMode, domain.ErrValidation)
	}

	ref := lookup.TimeReference(strings.ToLower(strings.TrimSpace(req.DefaultTimeReference)))
	if !ref.Valid() {
		return Settings{}, fmt.Errorf("unsupported default_time_reference %q: %w", req.DefaultTimeReference, domain.ErrValidation)
	}
	if ref == lookup.TimeArrival && mode != lookup.ModeTransit {
		ref = lookup.TimeDeparture
	}

	hour, err := clockField(req.DefaultHour, 23)
	if err != nil {
		return Settings{}, fmt.Errorf("default_hour %w", err)
	}
	minutes, err := clockField(req.DefaultMinutes, 59)
	if err != nil {
		return Settings{}, fmt.Errorf("default_minutes %w", err)
	}

	maxDuration := strings.TrimSpace(req.MaxDurationMinutes)
	if maxDuration != "" {
		n, err := strconv.Atoi(maxDuration)
		if err != nil || n <= 0 {
			return Settings{}, fmt.Errorf("max_duration_minutes must be a positive integer: %w", domain.ErrValidation)
		}
		maxDuration = strconv.Itoa(n)
	}

	ttl := math.Round(req.CacheTTLMinutes)
	if math.IsNaN(ttl) || ttl < MinCacheTTLMinutes || ttl > MaxCacheTTLMinutes {
		return Settings{}, fmt.Errorf("cache_ttl_minutes must be between %d and %d: %w",
			MinCacheTTLMinutes, MaxCacheTTLMinutes, domain.ErrValidation)
	}

	return Settings{
		DefaultTransportMode: string(mode),
		DefaultTimeReference: string(ref),
		DefaultHour:          hour,
		DefaultMinutes:       minutes,
		MaxDurationMinutes:   maxDuration,
		CacheTTLMinutes:      ttl,
	}, nil
}

// MaxDuration returns the duration filter in seconds, or 0 when unset.
func (s Settings) MaxDuration() int64 {
	n, err := strconv.Atoi(strings.TrimSpace(s.MaxDurationMinutes))
	if err != nil || n <= 0 {
		return 0
	}
	return int64(n) * 60
}

// clockField validates a numeric clock component and zero-pads it.
func clockField(v string, upper int) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 || n > upper {
		return "", fmt.Errorf("must be between 00 and %02d: %w", upper, domain.ErrValidation)
	}
	return fmt.Sprintf("%02d", n), nil
}
