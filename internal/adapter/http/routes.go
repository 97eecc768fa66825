package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/fiberdesk/fiberdesk/internal/middleware"
)

// MountRoutes registers the dashboard API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Get("/subscribers", h.ListSubscribers)
		r.Get("/subscribers/expiring", h.ExpiringSubscribers)

		r.Post("/tenants", h.ProvisionTenant)

		r.Post("/sync", h.StartSync)
		r.Get("/sync/progress", h.SyncProgress)
		r.Post("/sync/cancel", h.CancelSync)
	})
}
