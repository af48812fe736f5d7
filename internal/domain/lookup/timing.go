package lookup

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Strob0t/TravelTime/internal/domain"
)

// Timing is the time portion of a lookup, ready to be merged into a Raw.
type Timing struct {
	TimeReference TimeReference
	TimeValue     string
	ArrivalTime   string
	DepartureTime string
}

// Apply copies the timing fields onto raw.
func (t Timing) Apply(raw Raw) Raw {
	raw.TimeReference = string(t.TimeReference)
	raw.TimeValue = t.TimeValue
	raw.ArrivalTime = t.ArrivalTime
	raw.DepartureTime = t.DepartureTime
	return raw
}

// BuildTiming resolves a wall-clock hour and minute into the next future
// unix timestamp relative to now and assigns it to the field chosen by ref.
func BuildTiming(ref TimeReference, hour, minute string, now time.Time) (Timing, error) {
	if ref == "" || ref == TimeNone {
		return Timing{TimeReference: TimeNone}, nil
	}
	if !ref.Valid() {
		return Timing{}, fmt.Errorf("unsupported time_reference %q: %w", ref, domain.ErrValidation)
	}

	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return Timing{}, fmt.Errorf("hour must be between 00 and 23: %w", domain.ErrValidation)
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m < 0 || m > 59 {
		return Timing{}, fmt.Errorf("minutes must be between 00 and 59: %w", domain.ErrValidation)
	}

	ts := strconv.FormatInt(NextOccurrence(now, h, m).Unix(), 10)
	t := Timing{TimeReference: ref, TimeValue: ts}
	if ref == TimeArrival {
		t.ArrivalTime = ts
	} else {
		t.DepartureTime = ts
	}
	return t, nil
}

// NextOccurrence returns the first instant strictly after now whose local
// clock reads hour:minute:00.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}
