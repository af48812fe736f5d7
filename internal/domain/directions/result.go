// Package directions defines the outcome of a directions lookup.
package directions

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// Status values produced locally. Any other status is the upstream's own
// vocabulary and is passed through untouched.
const (
	StatusOK            = "OK"
	StatusRequestFailed = "REQUEST_FAILED"
	StatusZeroResults   = "ZERO_RESULTS"
	StatusNotFound      = "NOT_FOUND"
)

// DefaultAPISource is reported when the upstream does not name its source.
const DefaultAPISource = "GOOGLE"

// Result is a tagged lookup outcome: either status OK with the upstream
// payload, or an error status with a message. Every field other than
// status, error_message and cached is preserved byte-for-byte.
//
// Cached is nil for results that have not passed through the lookup
// orchestrator; a nil Cached is omitted from the JSON encoding.
type Result struct {
	Status       string
	ErrorMessage string
	Cached       *bool

	fields map[string]json.RawMessage
}

// Failed builds a REQUEST_FAILED result.
func Failed(message string) Result {
	return Result{Status: StatusRequestFailed, ErrorMessage: message}
}

// Parse decodes a JSON object into a Result.
func Parse(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// OK reports whether the lookup succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// WithCached returns a copy of r carrying the given cached flag.
func (r Result) WithCached(cached bool) Result {
	r.Cached = &cached
	return r
}

// Payload returns a copy of r without the cached flag, as it is persisted.
func (r Result) Payload() Result {
	r.Cached = nil
	return r
}

// IsCached reports the cached flag, treating an unset flag as false.
func (r Result) IsCached() bool {
	return r.Cached != nil && *r.Cached
}

// Field returns a raw payload field by name.
func (r Result) Field(name string) (json.RawMessage, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// APISource returns the upstream api_source, or DefaultAPISource.
func (r Result) APISource() string {
	var s string
	if raw, ok := r.Field("api_source"); ok && json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	return DefaultAPISource
}

// MarshalJSON encodes the result as a flat JSON object.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.fields)+3)
	for k, v := range r.fields {
		out[k] = v
	}
	// An unparseable 2xx body yields an empty payload, so no status.
	if r.Status != "" {
		out["status"] = r.Status
	}
	if r.ErrorMessage != "" {
		out["error_message"] = r.ErrorMessage
	}
	if r.Cached != nil {
		out["cached"] = *r.Cached
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a JSON object. Non-object input is an error.
func (r *Result) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		return errors.New("directions result must be a JSON object")
	}

	*r = Result{}
	if raw, ok := m["status"]; ok {
		_ = json.Unmarshal(raw, &r.Status)
		delete(m, "status")
	}
	if raw, ok := m["error_message"]; ok {
		_ = json.Unmarshal(raw, &r.ErrorMessage)
		delete(m, "error_message")
	}
	delete(m, "cached")
	r.fields = m
	return nil
}

// Duration is the travel time of the first leg of the first route.
type Duration struct {
	Text    string
	Seconds int64
}

// LegDuration extracts routes[0].legs[0].duration. A non-numeric or
// negative value falls back to parsing the text; when nothing usable is
// present Seconds is UnknownSeconds.
func (r Result) LegDuration() Duration {
	raw, ok := r.fields["routes"]
	if !ok {
		return Duration{Seconds: UnknownSeconds}
	}

	var routes []struct {
		Legs []struct {
			Duration *struct {
				Text  json.RawMessage `json:"text"`
				Value json.RawMessage `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	}
	if err := json.Unmarshal(raw, &routes); err != nil ||
		len(routes) == 0 || len(routes[0].Legs) == 0 || routes[0].Legs[0].Duration == nil {
		return Duration{Seconds: UnknownSeconds}
	}

	d := routes[0].Legs[0].Duration
	var text string
	_ = json.Unmarshal(d.Text, &text)

	seconds, ok := numericValue(d.Value)
	if !ok {
		seconds = ParseText(text)
	}
	if text == "" {
		text = Format(seconds)
	}
	return Duration{Text: text, Seconds: seconds}
}

// numericValue accepts a JSON number or numeric string that is finite and
// non-negative.
func numericValue(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return int64(f), true
}
