// Package broadcast defines the port for pushing real-time events to subscribers.
package broadcast

import "context"

// Event types.
const (
	EventDistancesComputed = "distances.computed"
	EventCacheCleared      = "cache.cleared"
)

// Broadcaster sends typed events to every subscriber it knows about.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
