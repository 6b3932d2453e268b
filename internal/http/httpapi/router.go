// Package httpapi wires the chi router for the API binary.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/metrics"
	"server/internal/middleware"
)

// NewRouter assembles the full route table.
func NewRouter(app *handlers.App, logger infra.Logger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/v1/documents", func(r chi.Router) {
		r.Post("/", app.CreateDocument)
		r.Get("/", app.ListDocuments)
		r.Get("/{id}", app.GetDocument)
	})

	return r
}
