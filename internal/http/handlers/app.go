// Package handlers implements the document API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/dispatch"
	"server/internal/infra"
	"server/internal/pipeline"
)

// ownerHeader names the authenticated caller. Authentication itself is an
// upstream concern; this service trusts the header it is handed.
const ownerHeader = "X-Owner-ID"

// App carries the handler dependencies. Dispatcher may be nil when the
// deployment relies solely on queue-claiming workers.
type App struct {
	Pipeline   *pipeline.Pipeline
	Dispatcher dispatch.Dispatcher
	Logger     infra.Logger
}

// NewApp builds the handler container.
func NewApp(p *pipeline.Pipeline, d dispatch.Dispatcher, logger infra.Logger) *App {
	return &App{Pipeline: p, Dispatcher: d, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

func owner(r *http.Request) string {
	return r.Header.Get(ownerHeader)
}
