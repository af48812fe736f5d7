package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/TravelTime/internal/domain"
)

// defaultBodyLimit caps request bodies. Every payload in this API is small.
const defaultBodyLimit = 64 << 10

var errTrailingData = errors.New("unexpected data after JSON body")

// readJSON decodes exactly one JSON value from the request body. On failure
// it writes the error response itself and reports false.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&v)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errTrailingData
	}
	if err == nil {
		return v, true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "request body is empty")
	default:
		writeError(w, http.StatusBadRequest, "invalid request body")
	}
	return v, false
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// domainStatus maps the domain sentinels to HTTP status codes. Order matters
// only for errors that wrap more than one sentinel.
var domainStatus = []struct {
	sentinel error
	status   int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrValidation, http.StatusBadRequest},
}

// writeDomainError answers with the status of the first matching domain
// sentinel. Validation errors carry their detail to the client, not-found
// errors use notFoundMsg, and anything unrecognised is a 500.
func writeDomainError(w http.ResponseWriter, err error, notFoundMsg string) {
	for _, m := range domainStatus {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		switch m.status {
		case http.StatusNotFound:
			writeError(w, m.status, notFoundMsg)
		case http.StatusBadRequest:
			writeError(w, m.status, strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error()))
		default:
			writeError(w, m.status, "resource was modified by another request")
		}
		return
	}
	writeInternalError(w, err)
}

// writeInternalError logs err and hides it from the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
