package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/port/messaging"
)

// Message is one request on the messaging surface. The lookup fields are
// only read for "distance" messages.
type Message struct {
	Name string `json:"name"`
	lookup.Raw
}

// MessageDispatcher routes named messages to the lookup service. Every
// transport (HTTP, NATS, MCP) shares it so replies are identical.
type MessageDispatcher struct {
	lookups *LookupService
}

// NewMessageDispatcher creates a new MessageDispatcher.
func NewMessageDispatcher(lookups *LookupService) *MessageDispatcher {
	return &MessageDispatcher{lookups: lookups}
}

// Dispatch answers msg. The reply always carries a status.
func (d *MessageDispatcher) Dispatch(ctx context.Context, msg Message) directions.Result {
	switch msg.Name {
	case messaging.NameDistance:
		return d.lookups.GetDirection(ctx, msg.Raw)
	case messaging.NameClearCache:
		if err := d.lookups.ClearCache(ctx); err != nil {
			return directions.Failed(err.Error())
		}
		return directions.Result{Status: directions.StatusOK}
	default:
		slog.Warn("unknown message", "name", msg.Name)
		return directions.Failed(fmt.Sprintf("unknown message: %s", msg.Name))
	}
}

// Handle is Dispatch over encoded JSON, usable as a messaging.Handler.
func (d *MessageDispatcher) Handle(ctx context.Context, data []byte) []byte {
	var msg Message
	var res directions.Result
	if err := json.Unmarshal(data, &msg); err != nil {
		res = directions.Failed(fmt.Sprintf("invalid message: %v", err))
	} else {
		res = d.Dispatch(ctx, msg)
	}

	out, err := json.Marshal(res)
	if err != nil {
		slog.Error("encode reply", "error", err)
		return []byte(`{"status":"REQUEST_FAILED","error_message":"encode reply"}`)
	}
	return out
}

var _ messaging.Handler = (*MessageDispatcher)(nil).Handle
