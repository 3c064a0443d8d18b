package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
)

// CatalogController serves one catalog kind. Roles and skills also expose
// the employees holding them.
type CatalogController struct {
	app             application.Application
	catalogService  *services.CatalogService
	employeeService *services.EmployeeService
	kind            catalog.Kind
	basePath        string
}

var catalogPaths = map[catalog.Kind]string{
	catalog.KindRole:       "/roles",
	catalog.KindSkill:      "/skills",
	catalog.KindDepartment: "/departments",
}

func NewCatalogController(app application.Application, prefix string, kind catalog.Kind) application.Controller {
	return &CatalogController{
		app:             app,
		catalogService:  app.Service(services.CatalogService{}).(*services.CatalogService),
		employeeService: app.Service(services.EmployeeService{}).(*services.EmployeeService),
		kind:            kind,
		basePath:        prefix + catalogPaths[kind],
	}
}

func (c *CatalogController) Key() string {
	return c.basePath
}

func (c *CatalogController) Register(r *mux.Router) {
	router := subrouter(r, c.basePath)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern, c.Get).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern, c.Update).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern, c.Delete).Methods(http.MethodDelete)
	if c.holders() != nil {
		router.HandleFunc("/"+idPattern+"/employees", c.Employees).Methods(http.MethodGet)
	}
}

func (c *CatalogController) holders() func(ctx context.Context, id int64) ([]employee.Employee, error) {
	switch c.kind {
	case catalog.KindRole:
		return c.employeeService.ByRole
	case catalog.KindSkill:
		return c.employeeService.BySkill
	case catalog.KindDepartment:
		return nil
	}
	return nil
}

func (c *CatalogController) List(w http.ResponseWriter, r *http.Request) {
	entries, err := c.catalogService.GetAll(r.Context(), c.kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EntriesToResponse(entries))
}

func (c *CatalogController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entry, err := c.catalogService.GetByID(r.Context(), c.kind, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EntryToResponse(entry))
}

func (c *CatalogController) Create(w http.ResponseWriter, r *http.Request) {
	dto := &dtos.CatalogEntryDTO{}
	if !decode(w, r, dto) {
		return
	}
	entry, err := c.catalogService.Create(r.Context(), c.kind, dto.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.EntryToResponse(entry))
}

func (c *CatalogController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.CatalogEntryDTO{}
	if !decode(w, r, dto) {
		return
	}
	entry, err := c.catalogService.Update(r.Context(), c.kind, id, dto.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EntryToResponse(entry))
}

func (c *CatalogController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.catalogService.Delete(r.Context(), c.kind, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CatalogController) Employees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	employees, err := c.holders()(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.EmployeesToSummaries(employees))
}
