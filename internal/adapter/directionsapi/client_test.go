package directionsapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/TravelTime/internal/adapter/directionsapi"
	"github.com/Strob0t/TravelTime/internal/config"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/logger"
	"github.com/Strob0t/TravelTime/internal/resilience"
)

func transitRequest(t *testing.T) lookup.Request {
	t.Helper()
	req, err := lookup.Normalize(lookup.Raw{
		Origin:        "X",
		Destination:   "Y",
		TransportMode: "transit",
		TimeReference: "arrival",
		TimeValue:     "1710144900",
	})
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		if id := r.Header.Get("X-Extension-Id"); id != "ext-1" {
			t.Errorf("unexpected extension id: %q", id)
		}
		if id := r.Header.Get("X-Request-ID"); id != "req-9" {
			t.Errorf("unexpected request id: %q", id)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["arrival_time"] != "1710144900" {
			t.Errorf("arrival_time = %v", body["arrival_time"])
		}
		if _, ok := body["departure_time"]; ok {
			t.Error("departure_time must be omitted")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","api_source":"ROUTES_API","routes":[{"legs":[{"duration":{"text":"25 mins","value":1500}}]}]}`))
	}))
	defer srv.Close()

	client := directionsapi.NewClient(srv.URL, "ext-1")
	ctx := logger.WithRequestID(context.Background(), "req-9")
	res := client.Fetch(ctx, transitRequest(t))

	if !res.OK() {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	if res.APISource() != "ROUTES_API" {
		t.Errorf("api_source = %q", res.APISource())
	}
	if got := res.LegDuration().Seconds; got != 1500 {
		t.Errorf("duration = %d", got)
	}
}

func TestFetchErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		wantStatus string
		wantMsg    string
	}{
		{"status and error", http.StatusBadRequest, `{"status":"INVALID_REQUEST","error":"bad origin"}`, "INVALID_REQUEST", "bad origin"},
		{"error_message only", http.StatusNotFound, `{"error_message":"no such route"}`, directions.StatusRequestFailed, "no such route"},
		{"empty object", http.StatusForbidden, `{}`, directions.StatusRequestFailed, "HTTP error: 403"},
		{"unparseable body", http.StatusBadGateway, `<html>bad gateway</html>`, directions.StatusRequestFailed, "HTTP error: 502"},
		{"upstream status passes through", http.StatusTooManyRequests, `{"status":"OVER_QUERY_LIMIT"}`, "OVER_QUERY_LIMIT", "HTTP error: 429"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res := directionsapi.NewClient(srv.URL, "").Fetch(context.Background(), transitRequest(t))
			if res.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", res.Status, tt.wantStatus)
			}
			if res.ErrorMessage != tt.wantMsg {
				t.Errorf("error_message = %q, want %q", res.ErrorMessage, tt.wantMsg)
			}
		})
	}
}

func TestFetchUnparseableSuccessIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	res := directionsapi.NewClient(srv.URL, "").Fetch(context.Background(), transitRequest(t))
	if res.OK() || res.Status != "" {
		t.Fatalf("expected empty payload, got %+v", res)
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := directionsapi.NewClient(url, "").Fetch(context.Background(), transitRequest(t))
	if res.Status != directions.StatusRequestFailed || res.ErrorMessage == "" {
		t.Fatalf("expected REQUEST_FAILED with message, got %+v", res)
	}
}

func TestFetchRespectsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := directionsapi.NewClient(srv.URL, "").Fetch(ctx, transitRequest(t))
	if res.Status != directions.StatusRequestFailed {
		t.Fatalf("status = %q, want REQUEST_FAILED", res.Status)
	}
	if !strings.Contains(res.ErrorMessage, "deadline") {
		t.Errorf("error_message = %q", res.ErrorMessage)
	}
}

func TestFetchBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"UNKNOWN_ERROR","error":"maintenance"}`))
	}))
	defer srv.Close()

	client := directionsapi.NewClient(srv.URL, "")
	client.SetBreaker(resilience.New(config.Breaker{MaxFailures: 2, Timeout: time.Minute}))

	for range 2 {
		res := client.Fetch(context.Background(), transitRequest(t))
		if res.Status != "UNKNOWN_ERROR" || res.ErrorMessage != "maintenance" {
			t.Fatalf("upstream error must pass through, got %+v", res)
		}
	}

	res := client.Fetch(context.Background(), transitRequest(t))
	if res.Status != directions.StatusRequestFailed || res.ErrorMessage != resilience.ErrCircuitOpen.Error() {
		t.Fatalf("expected open circuit, got %+v", res)
	}
	if calls != 2 {
		t.Fatalf("server saw %d calls, want 2", calls)
	}
}
