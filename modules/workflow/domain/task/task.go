package task

import (
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrVersionConflict = errors.New("task version conflict")
)

// Task is one node of a process's task forest. The child set is not stored
// on the node; it is the set of tasks whose ParentID points here.
type Task struct {
	ID          int64
	ProcessID   int64
	ParentID    *int64
	Name        string
	Description string
	Completed   bool
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t Task) IsRoot() bool {
	return t.ParentID == nil
}

// HasParent reports whether t hangs directly under parentID.
func (t Task) HasParent(parentID int64) bool {
	return t.ParentID != nil && *t.ParentID == parentID
}

// Details is a task with both sides of its structural and associative links.
type Details struct {
	Task
	ChildIDs      []int64
	EmployeeIDs   []int64
	SkillIDs      []int64
	DepartmentIDs []int64
}

func ParentRef(id int64) *int64 {
	return &id
}

func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
