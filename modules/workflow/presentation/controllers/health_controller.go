package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/proseed/proseed/pkg/application"
	"github.com/proseed/proseed/pkg/composables"
)

type HealthController struct {
	app      application.Application
	backend  string
	basePath string
}

func NewHealthController(app application.Application, prefix, backend string) application.Controller {
	return &HealthController{
		app:      app,
		backend:  backend,
		basePath: prefix + "/health",
	}
}

func (c *HealthController) Key() string {
	return c.basePath
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.Get).Methods(http.MethodGet)
}

type healthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	Connections int    `json:"wsConnections"`
}

// Get reports liveness. With a database pool in the request context the
// pool is pinged and a failure turns the answer into a 503.
func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: c.backend}
	if hub := c.app.Websocket(); hub != nil {
		resp.Connections = hub.ConnectionsCount()
	}
	if pool, err := composables.UsePool(r.Context()); err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			composables.UseLogger(r.Context()).WithError(err).Warn("health: database ping failed")
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
