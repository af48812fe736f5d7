package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/TravelTime/internal/port/broadcast"
)

func TestNewHub(t *testing.T) {
	hub := NewHub("")
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestNewHubOriginPatterns(t *testing.T) {
	tests := []struct {
		origin string
		want   []string
	}{
		{"*", nil},
		{"", nil},
		{"https://app.example.com", []string{"app.example.com"}},
	}
	for _, tt := range tests {
		hub := NewHub(tt.origin)
		if len(hub.originPatterns) != len(tt.want) {
			t.Fatalf("NewHub(%q) patterns = %v, want %v", tt.origin, hub.originPatterns, tt.want)
		}
		for i := range tt.want {
			if hub.originPatterns[i] != tt.want[i] {
				t.Errorf("NewHub(%q) patterns = %v, want %v", tt.origin, hub.originPatterns, tt.want)
			}
		}
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub("")

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub("")

	// A channel cannot be marshaled to JSON; it is logged, not panicked on.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub("")

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.remove(&conn{cancel: cancel})

	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubDeliversEvents(t *testing.T) {
	hub := NewHub("*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close(websocket.StatusNormalClosure, "") }()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.BroadcastEvent(ctx, broadcast.EventCacheCleared, map[string]int64{"cleared_at": 42})
	hub.Relay(ctx, broadcast.EventDistancesComputed, []byte(`{"origin":"Home"}`))

	for _, want := range []string{broadcast.EventCacheCleared, broadcast.EventDistancesComputed} {
		_, data, err := client.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != want {
			t.Errorf("type = %q, want %q", msg.Type, want)
		}
	}

	hub.Close()
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections after Close, got %d", hub.ConnectionCount())
	}
}
