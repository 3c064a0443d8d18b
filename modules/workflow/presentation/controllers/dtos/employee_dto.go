package dtos

import (
	"time"

	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/services"
)

type EmployeeDTO struct {
	FirstName    string  `json:"firstName" validate:"required,max=255"`
	LastName     string  `json:"lastName" validate:"max=255"`
	RoleID       *int64  `json:"roleId" validate:"omitempty,gt=0"`
	DepartmentID *int64  `json:"departmentId" validate:"omitempty,gt=0"`
	SkillIDs     []int64 `json:"skillIds" validate:"omitempty,dive,gt=0"`
}

func (dto *EmployeeDTO) Ok() error {
	return validate(dto)
}

func (dto *EmployeeDTO) ToDraft() services.EmployeeDraft {
	return services.EmployeeDraft{
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		RoleID:       dto.RoleID,
		DepartmentID: dto.DepartmentID,
		SkillIDs:     dto.SkillIDs,
	}
}

// EmployeePatchDTO changes only the keys present. roleId and departmentId
// accept null to clear.
type EmployeePatchDTO struct {
	FirstName    *string    `json:"firstName" validate:"omitempty,min=1,max=255"`
	LastName     *string    `json:"lastName" validate:"omitempty,max=255"`
	RoleID       NullableID `json:"roleId"`
	DepartmentID NullableID `json:"departmentId"`
	SkillIDs     []int64    `json:"skillIds" validate:"omitempty,dive,gt=0"`
}

func (dto *EmployeePatchDTO) Ok() error {
	if err := validate(dto); err != nil {
		return err
	}
	fields := map[string]string{}
	if !dto.RoleID.Valid() {
		fields["roleId"] = "must be greater than 0"
	}
	if !dto.DepartmentID.Valid() {
		fields["departmentId"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (dto *EmployeePatchDTO) ToPatch() services.EmployeePatch {
	p := services.EmployeePatch{
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		SkillIDs:  dto.SkillIDs,
	}
	if dto.RoleID.Set {
		p.RoleID = services.SetTo(dto.RoleID.Value)
	}
	if dto.DepartmentID.Set {
		p.DepartmentID = services.SetTo(dto.DepartmentID.Value)
	}
	return p
}

type RoleDTO struct {
	RoleID *int64 `json:"roleId" validate:"omitempty,gt=0"`
}

func (dto *RoleDTO) Ok() error {
	return validate(dto)
}

type EmployeeSummary struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	RoleID       *int64 `json:"roleId"`
	DepartmentID *int64 `json:"departmentId"`
}

type EmployeeResponse struct {
	EmployeeSummary
	SkillIDs  []int64   `json:"skillIds"`
	TaskIDs   []int64   `json:"taskIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func EmployeeToSummary(e employee.Employee) EmployeeSummary {
	return EmployeeSummary{
		ID:           e.ID,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		RoleID:       e.RoleID,
		DepartmentID: e.DepartmentID,
	}
}

func EmployeesToSummaries(employees []employee.Employee) []EmployeeSummary {
	out := make([]EmployeeSummary, 0, len(employees))
	for _, e := range employees {
		out = append(out, EmployeeToSummary(e))
	}
	return out
}

func EmployeeToResponse(d employee.Details) EmployeeResponse {
	return EmployeeResponse{
		EmployeeSummary: EmployeeToSummary(d.Employee),
		SkillIDs:        ids(d.SkillIDs),
		TaskIDs:         ids(d.TaskIDs),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
