// Package messaging defines the message surface shared by every transport
// (HTTP, NATS request/reply, MCP).
package messaging

import "context"

// Message names understood by the dispatcher.
const (
	NameDistance   = "distance"
	NameClearCache = "clear_cache"
)

// Subjects used on the NATS transport.
const (
	SubjectMessages          = "traveltime.messages"
	SubjectEvents            = "traveltime.events"
	SubjectDistancesComputed = "traveltime.events.distances.computed"
	SubjectCacheCleared      = "traveltime.events.cache.cleared"
)

// Handler answers one encoded message with an encoded reply. Handlers do
// not fail: errors are part of the reply.
type Handler func(ctx context.Context, data []byte) []byte

// Responder serves a Handler on a subject until the returned cancel
// function is called.
type Responder interface {
	Respond(subject string, handler Handler) (cancel func(), err error)
}
