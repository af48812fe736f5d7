package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// apiTimeout bounds one API request. A distance computation runs several
// upstream lookups, so it is well above the per-lookup timeout.
const apiTimeout = 60 * time.Second

// MountRoutes registers all API routes on the given chi router. limit
// guards the endpoints that may reach the directions service; nil disables it.
func MountRoutes(r chi.Router, h *Handlers, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(apiTimeout))

		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Lookups
		r.With(limit).Post("/messages", h.PostMessage)
		r.With(limit).Post("/directions", h.GetDirection)
		r.Delete("/cache", h.ClearCache)

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
		r.Post("/settings/reset", h.ResetSettings)

		// Destinations
		r.Get("/destinations", h.ListDestinations)
		r.Post("/destinations", h.AddDestination)
		r.Put("/destinations/{id}", h.UpdateDestination)
		r.Delete("/destinations/{id}", h.DeleteDestination)

		// Origins
		r.Get("/origins/history", h.OriginHistory)
		r.Delete("/origins/history", h.ClearOriginHistory)
		r.Get("/origins/favorites", h.OriginFavorites)
		r.Post("/origins/favorites", h.ToggleFavorite)

		// Distances
		r.Get("/distances", h.LatestDistances)
		r.With(limit).Post("/distances", h.ComputeDistances)
	})
}
