package destination

import (
	"encoding/json"
	"sort"

	"github.com/Strob0t/TravelTime/internal/domain/directions"
)

// Result is the outcome of one destination lookup as shown to the user.
type Result struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	Status          string `json:"status"`
	Cached          bool   `json:"cached"`
	TravelTime      string `json:"travel_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	APISource       string `json:"api_source,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// OK reports whether the lookup for this destination succeeded.
func (r Result) OK() bool {
	return r.Status == directions.StatusOK
}

// Distances is the last computed result set.
type Distances struct {
	Origin        string   `json:"origin"`
	TransportMode string   `json:"transport_mode"`
	Destinations  []Result `json:"destinations"`
	ComputedAt    int64    `json:"computed_at"` // unix milliseconds
	Failed        int      `json:"failed"`
	Hidden        int      `json:"hidden_by_filter"`
}

// ValidDistances reports whether data is a stored result set: an object
// with a string origin and a destinations array.
func ValidDistances(data []byte) bool {
	var v struct {
		Origin       *string            `json:"origin"`
		Destinations *[]json.RawMessage `json:"destinations"`
	}
	if json.Unmarshal(data, &v) != nil {
		return false
	}
	return v.Origin != nil && v.Destinations != nil
}

// NewResult turns a directions outcome for d into a Result.
func NewResult(d Destination, res directions.Result) Result {
	out := Result{ID: d.ID, Name: d.Name, Address: d.Address}
	if res.OK() {
		dur := res.LegDuration()
		out.Status = directions.StatusOK
		out.Cached = res.IsCached()
		out.TravelTime = dur.Text
		if out.TravelTime == "" {
			out.TravelTime = directions.Format(dur.Seconds)
		}
		out.DurationSeconds = dur.Seconds
		out.APISource = res.APISource()
		return out
	}

	out.Status = res.Status
	if out.Status == "" {
		out.Status = directions.StatusRequestFailed
	}
	out.TravelTime = "error"
	out.DurationSeconds = directions.UnknownSeconds
	out.ErrorMessage = res.ErrorMessage
	return out
}

// Rank orders successful results by ascending duration followed by the
// failed ones in their original order.
func Rank(results []Result) []Result {
	ok := make([]Result, 0, len(results))
	var failed []Result
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		return ok[i].DurationSeconds < ok[j].DurationSeconds
	})
	return append(ok, failed...)
}

// CountHidden returns how many successful results exceed maxSeconds. A
// non-positive maxSeconds disables the filter.
func CountHidden(results []Result, maxSeconds int64) int {
	if maxSeconds <= 0 {
		return 0
	}
	n := 0
	for _, r := range results {
		if r.OK() && r.DurationSeconds > maxSeconds {
			n++
		}
	}
	return n
}

// ComputeRequest asks for travel times from Origin to every saved
// destination. Empty fields fall back to the user's settings.
type ComputeRequest struct {
	Origin        string `json:"origin"`
	TransportMode string `json:"transport_mode,omitempty"`
	TimeReference string `json:"time_reference,omitempty"`
	Hour          string `json:"hour,omitempty"`
	Minutes       string `json:"minutes,omitempty"`
}
