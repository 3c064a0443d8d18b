package employee

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var ErrNotFound = errors.New("employee not found")

type Employee struct {
	ID           int64
	FirstName    string
	LastName     string
	RoleID       *int64
	DepartmentID *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (e Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// Details carries the employee with the inverse sides of its associations.
type Details struct {
	Employee
	SkillIDs []int64
	TaskIDs  []int64
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (Employee, error)
	GetAll(ctx context.Context) ([]Employee, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	Delete(ctx context.Context, id int64) error

	ByRole(ctx context.Context, roleID int64) ([]int64, error)
	BySkill(ctx context.Context, skillID int64) ([]int64, error)
	SkillIDs(ctx context.Context, id int64) ([]int64, error)
	// AddSkill and RemoveSkill write the single join row behind both sides
	// of the employee-skill association.
	AddSkill(ctx context.Context, id, skillID int64) error
	RemoveSkill(ctx context.Context, id, skillID int64) error
}

type CreatedEvent struct {
	Result Employee
}

type UpdatedEvent struct {
	Result Employee
}

type SkillsChangedEvent struct {
	EmployeeID int64
	Removed    []int64
	Added      []int64
}

type RoleChangedEvent struct {
	EmployeeID int64
	OldRoleID  *int64
	NewRoleID  *int64
}

type DeletedEvent struct {
	Result       Employee
	DetachedFrom []int64
}
