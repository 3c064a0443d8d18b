package task

import "context"

type FindParams struct {
	IDs       []int64
	ProcessID *int64
	ParentID  *int64
	RootsOnly bool
	Completed *bool
}

type Repository interface {
	// LockTree serializes structural mutations for the rest of the
	// transaction so that ancestry read by one writer cannot be changed by
	// another before it commits.
	LockTree(ctx context.Context) error
	GetByID(ctx context.Context, id int64) (Task, error)
	GetAll(ctx context.Context, params *FindParams) ([]Task, error)
	Count(ctx context.Context) (int64, error)
	ParentOf(ctx context.Context, id int64) (*int64, error)
	ChildIDs(ctx context.Context, id int64) ([]int64, error)
	Create(ctx context.Context, t Task) (Task, error)
	// Update writes t when the stored version equals t.Version and returns
	// the row with the incremented version; otherwise ErrVersionConflict.
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, id int64) error

	EmployeeIDs(ctx context.Context, id int64) ([]int64, error)
	SkillIDs(ctx context.Context, id int64) ([]int64, error)
	DepartmentIDs(ctx context.Context, id int64) ([]int64, error)
	TaskIDsByEmployee(ctx context.Context, employeeID int64) ([]int64, error)

	// Each link is a single join row, so one call updates both sides.
	AssignEmployee(ctx context.Context, taskID, employeeID int64) error
	UnassignEmployee(ctx context.Context, taskID, employeeID int64) error
	ReplaceEmployees(ctx context.Context, taskID int64, employeeIDs []int64) error
	ReplaceSkills(ctx context.Context, taskID int64, skillIDs []int64) error
	ReplaceDepartments(ctx context.Context, taskID int64, departmentIDs []int64) error
}
