// Package settings defines the user preferences that drive lookups.
package settings

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// StorageKey is the synced-store key holding the settings blob.
const StorageKey = "user_settings"

// DefaultCacheTTL applies when the stored TTL is absent or unusable.
const DefaultCacheTTL = 10 * time.Minute

// Settings holds the user's lookup preferences. Hours and minutes are
// kept as zero-padded strings and MaxDurationMinutes is empty when no
// filter is set.
type Settings struct {
	DefaultTransportMode string  `json:"default_transport_mode"`
	DefaultTimeReference string  `json:"default_time_reference"`
	DefaultHour          string  `json:"default_hour"`
	DefaultMinutes       string  `json:"default_minutes"`
	MaxDurationMinutes   string  `json:"max_duration_minutes"`
	CacheTTLMinutes      float64 `json:"cache_ttl_minutes"`
}

// Defaults returns the settings used for any field that is not stored.
func Defaults() Settings {
	return Settings{
		DefaultTransportMode: string(lookup.ModeTransit),
		DefaultTimeReference: string(lookup.TimeArrival),
		DefaultHour:          "08",
		DefaultMinutes:       "00",
		MaxDurationMinutes:   "",
		CacheTTLMinutes:      10,
	}
}

// CacheTTLOr returns the stored TTL when it is finite and positive and
// fallback otherwise.
func (s Settings) CacheTTLOr(fallback time.Duration) time.Duration {
	m := s.CacheTTLMinutes
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return fallback
	}
	return time.Duration(m * float64(time.Minute))
}

// Decode overlays a stored blob onto Defaults field by field. A blob that
// is not an object, or a field of the wrong type, leaves the defaults in
// place, so Decode never fails.
func Decode(data []byte) Settings {
	s := Defaults()
	var fields map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &fields) != nil {
		return s
	}

	overlayString(fields, "default_transport_mode", &s.DefaultTransportMode)
	overlayString(fields, "default_time_reference", &s.DefaultTimeReference)
	overlayString(fields, "default_hour", &s.DefaultHour)
	overlayString(fields, "default_minutes", &s.DefaultMinutes)
	overlayString(fields, "max_duration_minutes", &s.MaxDurationMinutes)

	if raw, ok := fields["cache_ttl_minutes"]; ok {
		if f, ok := numberField(raw); ok {
			s.CacheTTLMinutes = f
		}
	}
	return s
}

// numberField reads a JSON number, or a string holding one, as older
// clients stored the TTL from a text input.
func numberField(raw json.RawMessage) (float64, bool) {
	var f float64
	if json.Unmarshal(raw, &f) == nil && string(raw) != "null" {
		return f, true
	}
	var str string
	if json.Unmarshal(raw, &str) != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func overlayString(fields map[string]json.RawMessage, name string, dst *string) {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return
	}
	var v string
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}
