package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TravelTime/internal/domain/destination"
)

const destinationNotFound = "destination not found"

func (h *Handlers) ListDestinations(w http.ResponseWriter, r *http.Request) {
	items, err := h.Destinations.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []destination.Destination{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handlers) AddDestination(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[destination.CreateRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	d, err := h.Destinations.Add(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, destinationNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDestination replaces the name and address of the destination named
// by the {id} URL parameter.
func (h *Handlers) UpdateDestination(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[destination.CreateRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	d, err := h.Destinations.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, destinationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) DeleteDestination(w http.ResponseWriter, r *http.Request) {
	if err := h.Destinations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err, destinationNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
