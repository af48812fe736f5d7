package lookup

import (
	"fmt"
	"strings"

	"github.com/Strob0t/TravelTime/internal/domain"
)

// Normalize canonicalizes raw into a Request. Strings are trimmed, enum
// values lower-cased, and the time fields resolved so that the chosen time
// reference alone decides which of arrival_time and departure_time is sent.
// A reference without a usable time value collapses to TimeNone.
func Normalize(raw Raw) (Request, error) {
	req := Request{
		Origin:        strings.TrimSpace(raw.Origin),
		Destination:   strings.TrimSpace(raw.Destination),
		TransportMode: TransportMode(strings.ToLower(strings.TrimSpace(raw.TransportMode))),
		TimeReference: TimeReference(strings.ToLower(strings.TrimSpace(raw.TimeReference))),
	}

	if req.Origin == "" {
		return Request{}, fmt.Errorf("origin is required: %w", domain.ErrValidation)
	}
	if req.Destination == "" {
		return Request{}, fmt.Errorf("destination is required: %w", domain.ErrValidation)
	}
	if req.TransportMode == "" {
		return Request{}, fmt.Errorf("transport_mode is required: %w", domain.ErrValidation)
	}
	if !req.TransportMode.Valid() {
		return Request{}, fmt.Errorf("unsupported transport_mode %q: %w", raw.TransportMode, domain.ErrValidation)
	}
	if req.TimeReference == "" {
		req.TimeReference = TimeNone
	}
	if !req.TimeReference.Valid() {
		return Request{}, fmt.Errorf("unsupported time_reference %q: %w", raw.TimeReference, domain.ErrValidation)
	}

	value := strings.TrimSpace(raw.TimeValue)
	if value == "" {
		switch req.TimeReference {
		case TimeArrival:
			value = strings.TrimSpace(raw.ArrivalTime)
		case TimeDeparture:
			value = strings.TrimSpace(raw.DepartureTime)
		}
	}

	switch {
	case req.TimeReference == TimeNone || value == "":
		req.TimeReference = TimeNone
	case !isDigits(value):
		return Request{}, fmt.Errorf("time_value must be unix seconds: %w", domain.ErrValidation)
	case req.TimeReference == TimeArrival:
		req.TimeValue = value
		req.ArrivalTime = value
	default:
		req.TimeValue = value
		req.DepartureTime = value
	}

	return req, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
