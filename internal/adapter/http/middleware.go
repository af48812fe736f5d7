// Package http exposes the TravelTime services as a JSON API on a chi router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/TravelTime/internal/logger"
)

// securityHeaders are set on every response. The API serves no HTML, so the
// content policy forbids everything.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range securityHeaders {
			w.Header().Set(h[0], h[1])
		}
		next.ServeHTTP(w, r)
	})
}

// CORS answers preflight requests and decorates every other response for
// the browser extension. Credentials are only allowed for an explicit origin.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	withCredentials := allowedOrigin != "*"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := w.Header()
			hdr.Set("Access-Control-Allow-Origin", allowedOrigin)
			hdr.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
			if withCredentials {
				hdr.Set("Access-Control-Allow-Credentials", "true")
				hdr.Add("Vary", "Origin")
			}
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			hdr.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			hdr.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// Logger logs one line per request. Server errors are logged at warn level.
// The wrapped writer keeps the Flusher and Hijacker of the underlying one,
// which the WebSocket and MCP endpoints depend on.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", logger.RequestID(r.Context()),
		)
	})
}
