// Package cacheentry defines the persisted record of a cached directions result.
package cacheentry

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/Strob0t/TravelTime/internal/domain"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
)

const (
	// Prefix namespaces cache entries inside the local store.
	Prefix = "api_cache_entry."

	// LegacyKey held every cached result in a single blob. It is only ever deleted.
	LegacyKey = "api_cache"

	// DefaultMaxEntries bounds the number of cache entries kept by prune.
	DefaultMaxEntries = 250
)

// Entry is one cached directions result.
type Entry struct {
	Timestamp  int64             `json:"timestamp"` // unix milliseconds
	RequestKey string            `json:"request_key"`
	Payload    directions.Result `json:"payload"`
}

// New stamps payload with now. The cached flag is never persisted.
func New(requestKey string, payload directions.Result, now time.Time) Entry {
	return Entry{
		Timestamp:  now.UnixMilli(),
		RequestKey: requestKey,
		Payload:    payload.Payload(),
	}
}

// StorageKey maps a request key onto the store key its entry lives under.
// Request keys are hashed so the store key is a fixed-length token
// accepted by every backend.
func StorageKey(requestKey string) string {
	sum := blake2b.Sum256([]byte(requestKey))
	return Prefix + hex.EncodeToString(sum[:])
}

// IsStorageKey reports whether key belongs to the cache entry namespace.
func IsStorageKey(key string) bool {
	return strings.HasPrefix(key, Prefix)
}

// WrittenAt returns the write time of the entry.
func (e Entry) WrittenAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Expired reports whether the entry is older than ttl at now. An entry
// exactly ttl old is still fresh.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.WrittenAt()) > ttl
}

// Encode serializes the entry for storage.
func (e Entry) Encode() ([]byte, error) {
	e.Payload = e.Payload.Payload()
	return json.Marshal(e)
}

// Decode parses and shape-checks a stored entry: timestamp must be a
// number, request_key a string and payload an object.
func Decode(data []byte) (Entry, error) {
	var raw struct {
		Timestamp  json.RawMessage `json:"timestamp"`
		RequestKey json.RawMessage `json:"request_key"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, fmt.Errorf("cache entry: %v: %w", err, domain.ErrValidation)
	}

	var ts float64
	if !isJSONNumber(raw.Timestamp) || json.Unmarshal(raw.Timestamp, &ts) != nil {
		return Entry{}, fmt.Errorf("cache entry: timestamp must be a number: %w", domain.ErrValidation)
	}

	var key string
	if !isJSONString(raw.RequestKey) || json.Unmarshal(raw.RequestKey, &key) != nil {
		return Entry{}, fmt.Errorf("cache entry: request_key must be a string: %w", domain.ErrValidation)
	}

	payload, err := directions.Parse(raw.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("cache entry: payload must be an object: %w", domain.ErrValidation)
	}

	return Entry{Timestamp: int64(ts), RequestKey: key, Payload: payload}, nil
}

func isJSONNumber(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

func isJSONString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}
