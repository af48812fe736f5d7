// Package directionsapi provides an HTTP client for the upstream directions endpoint.
package directionsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/TravelTime/internal/adapter/otel"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/logger"
	"github.com/Strob0t/TravelTime/internal/resilience"
)

const maxResponseBytes = 4 << 20

// errUpstream marks responses that should count against the breaker.
var errUpstream = errors.New("upstream error")

// Client posts lookups to the directions endpoint.
type Client struct {
	endpoint   string
	clientID   string
	httpClient *http.Client
	breaker    *resilience.Breaker
	metrics    *cfotel.Metrics
}

// NewClient creates a directions client. clientID is sent as X-Extension-Id
// when set. The per-request deadline comes from the caller's context.
func NewClient(endpoint, clientID string) *Client {
	return &Client{
		endpoint: endpoint,
		clientID: clientID,
		httpClient: &http.Client{
			Transport: cfotel.Transport(nil),
			Timeout:   30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetMetrics enables upstream call metrics.
func (c *Client) SetMetrics(m *cfotel.Metrics) {
	c.metrics = m
}

// wireRequest is the body sent upstream. Time fields are omitted when unset.
type wireRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	TransportMode string `json:"transport_mode"`
	TimeReference string `json:"time_reference"`
	TimeValue     string `json:"time_value,omitempty"`
	ArrivalTime   string `json:"arrival_time,omitempty"`
	DepartureTime string `json:"departure_time,omitempty"`
}

// errorBody is the error shape of a non-2xx response.
type errorBody struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// Fetch implements the directions port. Every failure is reported as a
// result: transport errors and unreadable error responses become
// REQUEST_FAILED, upstream error statuses pass through.
func (c *Client) Fetch(ctx context.Context, req lookup.Request) directions.Result {
	ctx, span := cfotel.StartFetchSpan(ctx, string(req.TransportMode))
	defer span.End()

	start := time.Now()
	res := c.fetch(ctx, req)

	span.SetAttributes(attribute.String("directions.status", res.Status))
	if c.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("status", res.Status))
		c.metrics.UpstreamCalls.Add(ctx, 1, attrs)
		c.metrics.FetchDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	return res
}

func (c *Client) fetch(ctx context.Context, req lookup.Request) directions.Result {
	body, err := json.Marshal(wireRequest{
		Origin:        req.Origin,
		Destination:   req.Destination,
		TransportMode: string(req.TransportMode),
		TimeReference: string(req.TimeReference),
		TimeValue:     req.TimeValue,
		ArrivalTime:   req.ArrivalTime,
		DepartureTime: req.DepartureTime,
	})
	if err != nil {
		return directions.Failed(fmt.Sprintf("marshal request: %v", err))
	}

	var res directions.Result
	call := func() error {
		var callErr error
		res, callErr = c.doRequest(ctx, body)
		return callErr
	}

	if c.breaker != nil {
		err = c.breaker.Do(call)
	} else {
		err = call()
	}

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		slog.Warn("directions call rejected", "error", err)
		return directions.Failed(err.Error())
	case err != nil && !errors.Is(err, errUpstream):
		slog.Warn("directions call failed", "error", err)
		return directions.Failed(err.Error())
	}
	return res
}

// doRequest returns a transport error, or a result together with
// errUpstream when the endpoint answered with a server error.
func (c *Client) doRequest(ctx context.Context, body []byte) (directions.Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return directions.Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.clientID != "" {
		httpReq.Header.Set("X-Extension-Id", c.clientID)
	}
	if id := logger.RequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return directions.Result{}, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return directions.Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res := errorResult(resp.StatusCode, data)
		if resp.StatusCode >= 500 {
			return res, fmt.Errorf("%w: HTTP %d", errUpstream, resp.StatusCode)
		}
		return res, nil
	}

	res, err := directions.Parse(data)
	if err != nil {
		slog.Warn("unparseable directions response", "error", err, "bytes", len(data))
		return directions.Result{}, nil
	}
	return res, nil
}

// errorResult interprets a non-2xx response body.
func errorResult(code int, data []byte) directions.Result {
	httpErr := "HTTP error: " + strconv.Itoa(code)

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return directions.Failed(httpErr)
	}

	status := eb.Status
	if status == "" {
		status = directions.StatusRequestFailed
	}
	msg := eb.Error
	if msg == "" {
		msg = eb.ErrorMessage
	}
	if msg == "" {
		msg = httpErr
	}
	return directions.Result{Status: status, ErrorMessage: msg}
}
