package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	cfmcp "github.com/Strob0t/TravelTime/internal/adapter/mcp"
	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// --- Mocks ---

type mockLookups struct {
	result   directions.Result
	got      lookup.Raw
	clearErr error
	cleared  int
}

func (m *mockLookups) GetDirection(_ context.Context, raw lookup.Raw) directions.Result {
	m.got = raw
	return m.result
}

func (m *mockLookups) ClearCache(_ context.Context) error {
	m.cleared++
	return m.clearErr
}

type mockDistances struct {
	got    destination.ComputeRequest
	out    *destination.Distances
	err    error
	latest *destination.Distances
}

func (m *mockDistances) ComputeDistances(_ context.Context, req destination.ComputeRequest) (*destination.Distances, error) {
	m.got = req
	return m.out, m.err
}

func (m *mockDistances) Latest(_ context.Context) (*destination.Distances, error) {
	return m.latest, nil
}

type mockDestinations struct {
	list []destination.Destination
}

func (m *mockDestinations) List(_ context.Context) ([]destination.Destination, error) {
	return m.list, nil
}

func okDirection(t *testing.T) directions.Result {
	t.Helper()
	res, err := directions.Parse([]byte(`{"status":"OK","routes":[{"legs":[{"duration":{"value":600,"text":"10 mins"}}]}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return res.WithCached(false)
}

func callTool(t *testing.T, s *cfmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tool, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return text.Text
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test-server", Version: "0.1.0"}, cfmcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
	if s.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestToolRegistration(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	expectedTools := map[string]bool{
		"get_direction":     false,
		"compute_distances": false,
		"list_destinations": false,
		"clear_cache":       false,
	}
	if len(tools) != len(expectedTools) {
		t.Fatalf("expected %d tools, got %d", len(expectedTools), len(tools))
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleGetDirection(t *testing.T) {
	lookups := &mockLookups{result: okDirection(t)}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{Lookups: lookups})

	result := callTool(t, s, "get_direction", map[string]any{
		"origin":         "Home",
		"destination":    "Office",
		"transport_mode": "transit",
		"time_reference": "arrival",
		"time_value":     float64(1710140400),
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	if lookups.got.TimeValue != "1710140400" {
		t.Errorf("time_value = %q, want 1710140400", lookups.got.TimeValue)
	}
	if lookups.got.Origin != "Home" || lookups.got.TransportMode != "transit" {
		t.Errorf("unexpected raw request: %+v", lookups.got)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "OK" || body["cached"] != false {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHandleGetDirectionFailure(t *testing.T) {
	lookups := &mockLookups{result: directions.Failed("missing origin").WithCached(false)}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{Lookups: lookups})

	result := callTool(t, s, "get_direction", map[string]any{"destination": "Office"})
	if !result.IsError {
		t.Fatal("expected error result for failed lookup")
	}
}

func TestHandleComputeDistances(t *testing.T) {
	distances := &mockDistances{out: &destination.Distances{Origin: "Home", TransportMode: "driving"}}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{Distances: distances})

	result := callTool(t, s, "compute_distances", map[string]any{"origin": "Home", "hour": "08"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	if distances.got.Origin != "Home" || distances.got.Hour != "08" {
		t.Errorf("unexpected request: %+v", distances.got)
	}

	var out destination.Distances
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Origin != "Home" {
		t.Errorf("origin = %q, want Home", out.Origin)
	}
}

func TestHandleComputeDistancesErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		err  error
	}{
		{"missing origin", map[string]any{}, nil},
		{"service error", map[string]any{"origin": "Home"}, errors.New("no destinations")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			distances := &mockDistances{err: tt.err}
			s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{Distances: distances})
			if result := callTool(t, s, "compute_distances", tt.args); !result.IsError {
				t.Fatal("expected error result")
			}
		})
	}
}

func TestHandleListDestinations(t *testing.T) {
	deps := cfmcp.ServerDeps{Destinations: &mockDestinations{list: []destination.Destination{
		{ID: "d1", Name: "Office", Address: "1 Main St"},
		{ID: "d2", Name: "Gym", Address: "2 Side St"},
	}}}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	result := callTool(t, s, "list_destinations", nil)
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	var list []destination.Destination
	if err := json.Unmarshal([]byte(resultText(t, result)), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(list))
	}
}

func TestHandleClearCache(t *testing.T) {
	lookups := &mockLookups{}
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{Lookups: lookups})

	if result := callTool(t, s, "clear_cache", nil); result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	if lookups.cleared != 1 {
		t.Fatalf("expected 1 clear, got %d", lookups.cleared)
	}

	lookups.clearErr = errors.New("store offline")
	if result := callTool(t, s, "clear_cache", nil); !result.IsError {
		t.Fatal("expected error result when clear fails")
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, cfmcp.ServerDeps{})

	for _, name := range []string{"get_direction", "compute_distances", "list_destinations", "clear_cache"} {
		if result := callTool(t, s, name, map[string]any{"origin": "Home"}); !result.IsError {
			t.Errorf("%s: expected error result when deps are nil", name)
		}
	}
}

func TestAuthMiddlewareNilKey(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	cfmcp.AuthMiddleware(nil, next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		apiKey string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusNoContent},
		{"disabled ignores header", "", "Bearer anything", http.StatusNoContent},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"bearer token", "secret", "Bearer secret", http.StatusNoContent},
		{"bare key", "secret", "secret", http.StatusNoContent},
		{"wrong key", "secret", "Bearer nope", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			cfmcp.AuthMiddleware(func() string { return tt.apiKey }, next).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
