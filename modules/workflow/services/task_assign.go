package services

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/task"
)

// AssignEmployee links an employee to a task. Assigning twice is a no-op.
func (s *TaskService) AssignEmployee(ctx context.Context, taskID, employeeID int64) error {
	return s.setAssignment(ctx, "task.assign_employee", taskID, employeeID, true)
}

// RemoveEmployee drops the link between a task and an employee. Removing an
// employee that is not assigned is a no-op, but both rows must exist.
func (s *TaskService) RemoveEmployee(ctx context.Context, taskID, employeeID int64) error {
	return s.setAssignment(ctx, "task.remove_employee", taskID, employeeID, false)
}

func (s *TaskService) setAssignment(ctx context.Context, op string, taskID, employeeID int64, assign bool) error {
	start := time.Now()
	changed, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (bool, error) {
		if _, err := s.getTask(txCtx, taskID, CodeTaskNotFound); err != nil {
			return false, err
		}
		if _, err := s.repos.Employees.GetByID(txCtx, employeeID); err != nil {
			if errors.Is(err, employee.ErrNotFound) {
				return false, notFound(CodeEmployeeNotFound, "employee %d not found", employeeID)
			}
			return false, err
		}
		current, err := s.repos.Tasks.EmployeeIDs(txCtx, taskID)
		if err != nil {
			return false, err
		}
		if slices.Contains(current, employeeID) == assign {
			return false, nil
		}
		if assign {
			return true, s.repos.Tasks.AssignEmployee(txCtx, taskID, employeeID)
		}
		return true, s.repos.Tasks.UnassignEmployee(txCtx, taskID, employeeID)
	})
	if err = finish(op, start, err); err != nil {
		return err
	}
	if changed {
		s.publish(&task.AssignmentEvent{TaskID: taskID, EmployeeID: employeeID, Assigned: assign})
	}
	return nil
}

// Employees returns the employees assigned to a task.
func (s *TaskService) Employees(ctx context.Context, taskID int64) ([]employee.Employee, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) ([]employee.Employee, error) {
		if _, err := s.getTask(txCtx, taskID, CodeTaskNotFound); err != nil {
			return nil, err
		}
		ids, err := s.repos.Tasks.EmployeeIDs(txCtx, taskID)
		if err != nil || len(ids) == 0 {
			return []employee.Employee{}, err
		}
		return s.repos.Employees.GetByIDs(txCtx, ids)
	})
	return out, finish("task.employees", start, err)
}
