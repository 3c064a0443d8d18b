package dtos

import (
	"time"

	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/services"
)

// TaskDraftDTO is the create/update body. Nested subTasks either reference
// an existing task by id, whose stored fields are kept, or describe a new
// one.
type TaskDraftDTO struct {
	ID            *int64          `json:"id" validate:"omitempty,gt=0"`
	Name          string          `json:"name" validate:"required_without=ID,max=255"`
	Description   string          `json:"description"`
	Completed     *bool           `json:"completed"`
	ProcessID     *int64          `json:"processId" validate:"omitempty,gt=0"`
	ParentTaskID  NullableID      `json:"parentTaskId"`
	Version       *int64          `json:"version" validate:"omitempty,gt=0"`
	SubTasks      []*TaskDraftDTO `json:"subTasks" validate:"omitempty,dive"`
	EmployeeIDs   []int64         `json:"employeeIds" validate:"omitempty,dive,gt=0"`
	SkillIDs      []int64         `json:"skillIds" validate:"omitempty,dive,gt=0"`
	DepartmentIDs []int64         `json:"departmentIds" validate:"omitempty,dive,gt=0"`
}

func (dto *TaskDraftDTO) Ok() error {
	if err := validate(dto); err != nil {
		return err
	}
	if dto.Name == "" {
		return &ValidationError{Fields: map[string]string{"name": "is required"}}
	}
	return dto.checkParents()
}

func (dto *TaskDraftDTO) checkParents() error {
	if !dto.ParentTaskID.Valid() {
		return &ValidationError{Fields: map[string]string{"parentTaskId": "must be greater than 0"}}
	}
	for _, sub := range dto.SubTasks {
		if sub == nil {
			continue
		}
		if err := sub.checkParents(); err != nil {
			return err
		}
	}
	return nil
}

func (dto *TaskDraftDTO) ToDraft() *task.Draft {
	if dto == nil {
		return nil
	}
	d := &task.Draft{
		ID:            dto.ID,
		Name:          dto.Name,
		Description:   dto.Description,
		Completed:     dto.Completed,
		ProcessID:     dto.ProcessID,
		Version:       dto.Version,
		EmployeeIDs:   dto.EmployeeIDs,
		SkillIDs:      dto.SkillIDs,
		DepartmentIDs: dto.DepartmentIDs,
	}
	switch {
	case !dto.ParentTaskID.Set:
		d.Parent = task.KeepParent()
	case dto.ParentTaskID.Value == nil:
		d.Parent = task.MoveToRoot()
	default:
		d.Parent = task.MoveUnder(*dto.ParentTaskID.Value)
	}
	if dto.SubTasks != nil {
		d.SubTasks = make([]*task.Draft, 0, len(dto.SubTasks))
		for _, sub := range dto.SubTasks {
			if sub != nil {
				d.SubTasks = append(d.SubTasks, sub.ToDraft())
			}
		}
	}
	return d
}

type RequirementsDTO struct {
	SkillIDs      []int64 `json:"skillIds" validate:"omitempty,dive,gt=0"`
	DepartmentIDs []int64 `json:"departmentIds" validate:"omitempty,dive,gt=0"`
}

func (dto *RequirementsDTO) Ok() error {
	return validate(dto)
}

type TaskResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Completed     bool      `json:"completed"`
	ProcessID     int64     `json:"processId"`
	ParentTaskID  *int64    `json:"parentTaskId"`
	Version       int64     `json:"version"`
	SubTaskIDs    []int64   `json:"subTaskIds"`
	EmployeeIDs   []int64   `json:"employeeIds"`
	SkillIDs      []int64   `json:"skillIds"`
	DepartmentIDs []int64   `json:"departmentIds"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TaskSummary is a task without its links, used in listings.
type TaskSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Completed    bool   `json:"completed"`
	ProcessID    int64  `json:"processId"`
	ParentTaskID *int64 `json:"parentTaskId"`
	Version      int64  `json:"version"`
}

type TaskTreeResponse struct {
	TaskSummary
	SubTasks []*TaskTreeResponse `json:"subTasks"`
}

type TaskEmployeesResponse struct {
	TaskID            int64                    `json:"taskId"`
	Name              string                   `json:"name"`
	AssignedEmployees []EmployeeSummary        `json:"assignedEmployees"`
	SubTasks          []*TaskEmployeesResponse `json:"subTasks"`
}

type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

func ids(in []int64) []int64 {
	if in == nil {
		return []int64{}
	}
	return in
}

func TaskToResponse(d task.Details) TaskResponse {
	return TaskResponse{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Completed:     d.Completed,
		ProcessID:     d.ProcessID,
		ParentTaskID:  d.ParentID,
		Version:       d.Version,
		SubTaskIDs:    ids(d.ChildIDs),
		EmployeeIDs:   ids(d.EmployeeIDs),
		SkillIDs:      ids(d.SkillIDs),
		DepartmentIDs: ids(d.DepartmentIDs),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func TaskToSummary(t task.Task) TaskSummary {
	return TaskSummary{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Completed:    t.Completed,
		ProcessID:    t.ProcessID,
		ParentTaskID: t.ParentID,
		Version:      t.Version,
	}
}

func TasksToSummaries(tasks []task.Task) []TaskSummary {
	out := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskToSummary(t))
	}
	return out
}

func TaskNodesToResponse(nodes []*services.TaskNode) []*TaskTreeResponse {
	out := make([]*TaskTreeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &TaskTreeResponse{
			TaskSummary: TaskToSummary(n.Task),
			SubTasks:    TaskNodesToResponse(n.SubTasks),
		})
	}
	return out
}

func TaskEmployeesToResponse(te *services.TaskEmployees) *TaskEmployeesResponse {
	resp := &TaskEmployeesResponse{
		TaskID:            te.TaskID,
		Name:              te.Name,
		AssignedEmployees: EmployeesToSummaries(te.AssignedEmployees),
		SubTasks:          make([]*TaskEmployeesResponse, 0, len(te.SubTasks)),
	}
	for _, sub := range te.SubTasks {
		resp.SubTasks = append(resp.SubTasks, TaskEmployeesToResponse(sub))
	}
	return resp
}
