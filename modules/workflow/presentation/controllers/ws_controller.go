package controllers

import (
	"github.com/gorilla/mux"

	"github.com/proseed/proseed/pkg/application"
)

// WebsocketController mounts the event stream. Clients subscribe with
// ?channel=all or ?channel=process/{id}; several channel params may be given.
type WebsocketController struct {
	app      application.Application
	basePath string
}

func NewWebsocketController(app application.Application, prefix string) application.Controller {
	return &WebsocketController{
		app:      app,
		basePath: prefix + "/ws",
	}
}

func (c *WebsocketController) Key() string {
	return c.basePath
}

func (c *WebsocketController) Register(r *mux.Router) {
	r.Handle(c.basePath, c.app.Websocket())
}
