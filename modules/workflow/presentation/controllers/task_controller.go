package controllers

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
	"github.com/proseed/proseed/pkg/composables"
	"github.com/proseed/proseed/pkg/constants"
	"github.com/proseed/proseed/pkg/httpapi"
)

type TaskController struct {
	app         application.Application
	taskService *services.TaskService
	basePath    string
}

func NewTaskController(app application.Application, prefix string) application.Controller {
	return &TaskController{
		app:         app,
		taskService: app.Service(services.TaskService{}).(*services.TaskService),
		basePath:    prefix + "/tasks",
	}
}

func (c *TaskController) Key() string {
	return c.basePath
}

func (c *TaskController) Register(r *mux.Router) {
	router := subrouter(r, c.basePath)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/insert-between", c.InsertBetween).Methods(http.MethodPost)
	router.HandleFunc("/"+idPattern, c.Get).Methods(http.MethodGet)
	router.HandleFunc("/"+idPattern, c.Update).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern, c.Patch).Methods(http.MethodPatch)
	router.HandleFunc("/"+idPattern, c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/"+idPattern+"/subtree", c.DeleteSubtree).Methods(http.MethodDelete)
	router.HandleFunc("/"+idPattern+"/requirements", c.SetRequirements).Methods(http.MethodPut)
	router.HandleFunc("/"+idPattern+"/employees", c.Employees).Methods(http.MethodGet)
	router.HandleFunc("/{taskId:[0-9]+}/employees/{employeeId:[0-9]+}", c.AssignEmployee).Methods(http.MethodPost)
	router.HandleFunc("/{taskId:[0-9]+}/employees/{employeeId:[0-9]+}", c.RemoveEmployee).Methods(http.MethodDelete)
}

func (c *TaskController) List(w http.ResponseWriter, r *http.Request) {
	params, err := composables.UseQuery(&services.SearchParams{}, r)
	if err != nil {
		writeBadRequest(w, r, errors.Wrap(err, "invalid filter"))
		return
	}
	if err := constants.Validate.Struct(params); err != nil {
		writeBadRequest(w, r, errors.Wrap(err, "invalid filter"))
		return
	}
	tasks, err := c.taskService.Search(r.Context(), *params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TasksToSummaries(tasks))
}

func (c *TaskController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := c.taskService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TaskToResponse(details))
}

// Create takes the process from ?processId, falling back to the body's
// processId, and the parent from ?parentId, falling back to the body.
func (c *TaskController) Create(w http.ResponseWriter, r *http.Request) {
	processID, ok := queryID(w, r, "processId")
	if !ok {
		return
	}
	parentID, ok := queryID(w, r, "parentId")
	if !ok {
		return
	}
	dto := &dtos.TaskDraftDTO{}
	if !decode(w, r, dto) {
		return
	}
	if processID == nil {
		processID = dto.ProcessID
	}
	if processID == nil {
		writeBadRequest(w, r, errors.New("processId is required"))
		return
	}
	created, err := c.taskService.Create(r.Context(), *processID, parentID, dto.ToDraft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.TaskToResponse(created))
}

func (c *TaskController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.TaskDraftDTO{}
	if !decode(w, r, dto) {
		return
	}
	updated, err := c.taskService.Update(r.Context(), id, dto.ToDraft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TaskToResponse(updated))
}

// Patch applies an RFC 6902 document to the task's update representation.
func (c *TaskController) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, err := httpapi.ReadBody(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	updated, err := c.taskService.Patch(r.Context(), id, body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TaskToResponse(updated))
}

func (c *TaskController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.taskService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *TaskController) DeleteSubtree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := c.taskService.DeleteSubtree(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.DeletedResponse{Deleted: n})
}

func (c *TaskController) InsertBetween(w http.ResponseWriter, r *http.Request) {
	parentID, ok := requireQueryID(w, r, "parentTaskId")
	if !ok {
		return
	}
	childID, ok := requireQueryID(w, r, "childTaskId")
	if !ok {
		return
	}
	dto := &dtos.TaskDraftDTO{}
	if !decode(w, r, dto) {
		return
	}
	created, err := c.taskService.InsertBetween(r.Context(), parentID, childID, dto.ToDraft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.TaskToResponse(created))
}

func (c *TaskController) SetRequirements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dto := &dtos.RequirementsDTO{}
	if !decode(w, r, dto) {
		return
	}
	updated, err := c.taskService.SetRequirements(r.Context(), id, dto.SkillIDs, dto.DepartmentIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TaskToResponse(updated))
}

// Employees returns the task subtree annotated with assignments, or with
// ?flat=true only the employees assigned to the task itself.
func (c *TaskController) Employees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if r.URL.Query().Get("flat") == "true" {
		employees, err := c.taskService.Employees(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dtos.EmployeesToSummaries(employees))
		return
	}
	tree, err := c.taskService.EmployeeTree(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.TaskEmployeesToResponse(tree))
}

func (c *TaskController) AssignEmployee(w http.ResponseWriter, r *http.Request) {
	c.assignment(w, r, c.taskService.AssignEmployee)
}

func (c *TaskController) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	c.assignment(w, r, c.taskService.RemoveEmployee)
}

func (c *TaskController) assignment(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, taskID, employeeID int64) error,
) {
	taskID, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	employeeID, ok := pathID(w, r, "employeeId")
	if !ok {
		return
	}
	if err := apply(r.Context(), taskID, employeeID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
