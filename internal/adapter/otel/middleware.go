package otel

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware creates a server span per request. Once the request has
// been routed the span is renamed after the chi route pattern, so every
// /destinations/{id} call shares one span name.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		named := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if name := routeSpanName(r); name != "" {
				trace.SpanFromContext(r.Context()).SetName(name)
			}
		})
		return otelhttp.NewHandler(named, serviceName,
			otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
		)
	}
}

func routeSpanName(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil || rc.RoutePattern() == "" {
		return ""
	}
	return r.Method + " " + rc.RoutePattern()
}

// Transport wraps base so outgoing requests carry trace context and get
// client spans. A nil base uses http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}
