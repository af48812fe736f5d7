package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/domain/settings"
	"github.com/Strob0t/TravelTime/internal/service"
)

// Handlers holds the services the HTTP API calls into.
type Handlers struct {
	Lookups      *service.LookupService
	Distances    *service.DistanceService
	Destinations *service.DestinationService
	Origins      *service.OriginService
	Settings     *service.SettingsService
	Dispatcher   *service.MessageDispatcher
}

// PostMessage answers a named message exactly like the NATS responder does.
// The reply status lives in the body, so the HTTP status is always 200 once
// the body was read.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, defaultBodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.Dispatcher.Handle(r.Context(), body))
}

// GetDirection runs a single lookup.
func (h *Handlers) GetDirection(w http.ResponseWriter, r *http.Request) {
	raw, ok := readJSON[lookup.Raw](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Lookups.GetDirection(r.Context(), raw))
}

// ClearCache removes every cached directions response.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Lookups.ClearCache(r.Context()); err != nil {
		writeInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings ---

func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Settings(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[settings.UpdateRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	st, err := h.Settings.Update(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) ResetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Reset(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- Origins ---

type originRequest struct {
	Origin string `json:"origin"`
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
	Favorite  bool     `json:"favorite"`
}

// OriginHistory lists the most recently used origins, newest first.
func (h *Handlers) OriginHistory(w http.ResponseWriter, r *http.Request) {
	writeOrigins(w, r, h.Origins.History)
}

func (h *Handlers) OriginFavorites(w http.ResponseWriter, r *http.Request) {
	writeOrigins(w, r, h.Origins.Favorites)
}

func writeOrigins(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]string, error)) {
	origins, err := list(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if origins == nil {
		origins = []string{}
	}
	writeJSON(w, http.StatusOK, origins)
}

func (h *Handlers) ClearOriginHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Origins.ClearHistory(r.Context()); err != nil {
		writeInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite adds the origin to the favorites, or removes it when it
// already is one.
func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[originRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	favorites, favorite, err := h.Origins.ToggleFavorite(r.Context(), strings.TrimSpace(req.Origin))
	if err != nil {
		writeDomainError(w, err, "origin not found")
		return
	}
	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: favorites, Favorite: favorite})
}

// --- Distances ---

func (h *Handlers) LatestDistances(w http.ResponseWriter, r *http.Request) {
	d, err := h.Distances.Latest(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) ComputeDistances(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[destination.ComputeRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	d, err := h.Distances.ComputeDistances(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "distances not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
