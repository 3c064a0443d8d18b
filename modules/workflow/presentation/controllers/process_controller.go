package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
)

type ProcessController struct {
	app            application.Application
	processService *services.ProcessService
	basePath       string
}

func NewProcessController(app application.Application, prefix string) application.Controller {
	return &ProcessController{
		app:            app,
		processService: app.Service(services.ProcessService{}).(*services.ProcessService),
		basePath:       prefix + "/processes",
	}
}

func (c *ProcessController) Key() string {
	return c.basePath
}

func (c *ProcessController) Register(r *mux.Router) {
	router := subrouter(r, c.basePath)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern, c.Get).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern, c.Update).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern, c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/"+idPattern+"/tasks", c.Tasks).Methods(http.MethodGet)
}

func (c *ProcessController) List(w http.ResponseWriter, r *http.Request) {
	processes, err := c.processService.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]dtos.ProcessResponse, 0, len(processes))
	for _, p := range processes {
		out = append(out, dtos.ProcessToResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *ProcessController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.processService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ProcessToResponse(p))
}

func (c *ProcessController) Create(w http.ResponseWriter, r *http.Request) {
	dto := &dtos.ProcessDTO{}
	if !decode(w, r, dto) {
		return
	}
	created, err := c.processService.Create(r.Context(), dto.ToEntity(0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ProcessToResponse(created))
}

func (c *ProcessController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.ProcessDTO{}
	if !decode(w, r, dto) {
		return
	}
	updated, err := c.processService.Update(r.Context(), dto.ToEntity(id))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ProcessToResponse(updated))
}

// Delete removes the process together with every task it owns.
func (c *ProcessController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.processService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ProcessController) Tasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tree, err := c.processService.GetWithTasks(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ProcessTreeToResponse(tree))
}
