package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP routes and global middleware stack.
func NewRouter(h *EventHandler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(CORS(allowedOrigins))

	r.Get("/health", HealthCheck)

	r.Route("/api/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Post("/availability", h.SubmitAvailability)
			r.Get("/availability", h.ListAvailability)
			r.Get("/stats", h.Stats)
			r.Get("/stats/live", h.LiveStats)
			r.Post("/calendar-invite", h.CalendarInvite)
			r.Get("/calendar-file", h.CalendarFile)
		})
	})

	return r
}
