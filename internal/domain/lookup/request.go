// Package lookup defines the travel-duration lookup request and its canonical form.
package lookup

import "encoding/json"

// TransportMode is the travel mode requested from the directions service.
type TransportMode string

const (
	ModeDriving   TransportMode = "driving"
	ModeWalking   TransportMode = "walking"
	ModeBicycling TransportMode = "bicycling"
	ModeTransit   TransportMode = "transit"
)

// Modes lists every supported transport mode.
var Modes = []TransportMode{ModeDriving, ModeWalking, ModeBicycling, ModeTransit}

// Valid reports whether m is a supported transport mode.
func (m TransportMode) Valid() bool {
	for _, v := range Modes {
		if m == v {
			return true
		}
	}
	return false
}

// TimeReference selects which end of the trip a time value pins.
type TimeReference string

const (
	TimeNone      TimeReference = "none"
	TimeArrival   TimeReference = "arrival"
	TimeDeparture TimeReference = "departure"
)

// Valid reports whether r is a known time reference.
func (r TimeReference) Valid() bool {
	switch r {
	case TimeNone, TimeArrival, TimeDeparture:
		return true
	}
	return false
}

// Raw holds lookup fields exactly as a caller sent them.
type Raw struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	TransportMode string `json:"transport_mode"`
	TimeReference string `json:"time_reference,omitempty"`
	TimeValue     string `json:"time_value,omitempty"`
	ArrivalTime   string `json:"arrival_time,omitempty"`
	DepartureTime string `json:"departure_time,omitempty"`
}

// Request is a normalized lookup. At most one of ArrivalTime and
// DepartureTime is set, and only when TimeReference names it.
// Values are produced by Normalize; the zero value is not a valid request.
type Request struct {
	Origin        string        `json:"origin"`
	Destination   string        `json:"destination"`
	TransportMode TransportMode `json:"transport_mode"`
	TimeReference TimeReference `json:"time_reference"`
	TimeValue     string        `json:"time_value"`
	ArrivalTime   string        `json:"arrival_time"`
	DepartureTime string        `json:"departure_time"`
}

// keyFields fixes the field order of the cache key encoding.
type keyFields struct {
	Origin        string        `json:"origin"`
	Destination   string        `json:"destination"`
	TransportMode TransportMode `json:"transport_mode"`
	TimeReference TimeReference `json:"time_reference"`
	TimeValue     string        `json:"time_value"`
}

// Key returns the deterministic cache key of the request. Two requests share
// a key exactly when they describe the same lookup.
func (r Request) Key() string {
	data, _ := json.Marshal(keyFields{
		Origin:        r.Origin,
		Destination:   r.Destination,
		TransportMode: r.TransportMode,
		TimeReference: r.TimeReference,
		TimeValue:     r.TimeValue,
	})
	return string(data)
}
