package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
)

type EmployeeController struct {
	app             application.Application
	employeeService *services.EmployeeService
	basePath        string
}

func NewEmployeeController(app application.Application, prefix string) application.Controller {
	return &EmployeeController{
		app:             app,
		employeeService: app.Service(services.EmployeeService{}).(*services.EmployeeService),
		basePath:        prefix + "/employees",
	}
}

func (c *EmployeeController) Key() string {
	return c.basePath
}

func (c *EmployeeController) Register(r *mux.Router) {
	router := subrouter(r, c.basePath)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern, c.Get).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern, c.Update).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern, c.Patch).Methods(http.MethodPatch)
	router.HandleFunc("/"+idPattern, c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/"+idPattern+"/skills", c.SetSkills).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern+"/skills", c.AddSkills).Methods(http.MethodPatch)
	router.HandleFunc("/"+idPattern+"/role", c.SetRole).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern+"/tasks", c.Tasks).Methods(http.MethodGet)
}

func (c *EmployeeController) List(w http.ResponseWriter, r *http.Request) {
	employees, err := c.employeeService.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeesToSummaries(employees))
}

func (c *EmployeeController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := c.employeeService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeeToResponse(details))
}

func (c *EmployeeController) Create(w http.ResponseWriter, r *http.Request) {
	dto := &dtos.EmployeeDTO{}
	if !decode(w, r, dto) {
		return
	}
	created, err := c.employeeService.Create(r.Context(), dto.ToDraft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.EmployeeToResponse(created))
}

func (c *EmployeeController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.EmployeeDTO{}
	if !decode(w, r, dto) {
		return
	}
	updated, err := c.employeeService.Update(r.Context(), id, dto.ToDraft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeeToResponse(updated))
}

func (c *EmployeeController) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.EmployeePatchDTO{}
	if !decode(w, r, dto) {
		return
	}
	updated, err := c.employeeService.PatchPartial(r.Context(), id, dto.ToPatch())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeeToResponse(updated))
}

func (c *EmployeeController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.employeeService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *EmployeeController) SetSkills(w http.ResponseWriter, r *http.Request) {
	c.skills(w, r, c.employeeService.SetSkills)
}

func (c *EmployeeController) AddSkills(w http.ResponseWriter, r *http.Request) {
	c.skills(w, r, c.employeeService.AddSkills)
}

func (c *EmployeeController) skills(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id int64, skillIDs []int64) (employee.Details, error),
) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	skillIDs, ok := decodeIDs(w, r)
	if !ok {
		return
	}
	updated, err := apply(r.Context(), id, skillIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeeToResponse(updated))
}

// SetRole sets the role from {"roleId": n}; null or an absent key clears it.
func (c *EmployeeController) SetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.RoleDTO{}
	if !decode(w, r, dto) {
		return
	}
	updated, err := c.employeeService.SetRole(r.Context(), id, dto.RoleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeeToResponse(updated))
}

func (c *EmployeeController) Tasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tasks, err := c.employeeService.Tasks(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TasksToSummaries(tasks))
}
