package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the chi router for the public and admin endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Group(func(r chi.Router) {
		r.Use(cors)
		r.Use(middleware.Timeout(h.requestTimeout))

		for _, p := range []string{"/r/{token}", "/admin/r/{token}"} {
			r.Get(p, h.resolve)
			r.Options(p, func(http.ResponseWriter, *http.Request) {})
		}

		// An empty or multi-segment token is malformed, not an unknown page.
		for _, p := range []string{"/r", "/r/", "/r/{token}/*", "/admin/r", "/admin/r/", "/admin/r/{token}/*"} {
			r.Get(p, h.missingToken)
		}
	})

	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Use(middleware.Timeout(h.requestTimeout))

		r.Get("/", h.statsOverview)
		r.Get("/{brand}/{type}", h.statsCategory)
	})

	return r
}
