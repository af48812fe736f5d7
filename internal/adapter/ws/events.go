package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/TravelTime/internal/port/broadcast"
)

// BroadcastEvent marshals payload and broadcasts it as an event of eventType.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: data})
}

// Relay forwards an already encoded event, as received from another
// instance, to the connected clients.
func (h *Hub) Relay(ctx context.Context, eventType string, data []byte) {
	if !json.Valid(data) {
		slog.Warn("dropping invalid relayed event", "type", eventType)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: data})
}

var _ broadcast.Broadcaster = (*Hub)(nil)
