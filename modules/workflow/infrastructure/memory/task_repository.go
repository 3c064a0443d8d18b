package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/integrity"
	"github.com/proseed/proseed/modules/workflow/domain/task"
)

type TaskRepository struct {
	store *Store
}

// LockTree is a no-op: memory writers are already serialized.
func (r *TaskRepository) LockTree(ctx context.Context) error {
	return ctx.Err()
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (task.Task, error) {
	var out task.Task
	err := r.store.read(ctx, func(s *State) error {
		t, ok := s.Tasks[id]
		if !ok {
			return task.ErrNotFound
		}
		out = copyTask(t)
		return nil
	})
	return out, err
}

func (r *TaskRepository) GetAll(ctx context.Context, params *task.FindParams) ([]task.Task, error) {
	if params == nil {
		params = &task.FindParams{}
	}
	out := []task.Task{}
	err := r.store.read(ctx, func(s *State) error {
		for _, t := range s.Tasks {
			if matches(t, params) {
				out = append(out, copyTask(t))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b task.Task) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func matches(t task.Task, params *task.FindParams) bool {
	if params.IDs != nil && !slices.Contains(params.IDs, t.ID) {
		return false
	}
	if params.ProcessID != nil && t.ProcessID != *params.ProcessID {
		return false
	}
	if params.ParentID != nil && !t.HasParent(*params.ParentID) {
		return false
	}
	if params.RootsOnly && !t.IsRoot() {
		return false
	}
	if params.Completed != nil && t.Completed != *params.Completed {
		return false
	}
	return true
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.read(ctx, func(s *State) error {
		n = int64(len(s.Tasks))
		return nil
	})
	return n, err
}

func (r *TaskRepository) ParentOf(ctx context.Context, id int64) (*int64, error) {
	var out *int64
	err := r.store.read(ctx, func(s *State) error {
		t, ok := s.Tasks[id]
		if !ok {
			return task.ErrNotFound
		}
		out = cloneID(t.ParentID)
		return nil
	})
	return out, err
}

func (r *TaskRepository) ChildIDs(ctx context.Context, id int64) ([]int64, error) {
	out := []int64{}
	err := r.store.read(ctx, func(s *State) error {
		out = childIDs(s, id)
		return nil
	})
	return out, err
}

func childIDs(s *State, id int64) []int64 {
	out := []int64{}
	for _, t := range s.Tasks {
		if t.HasParent(id) {
			out = append(out, t.ID)
		}
	}
	sortIDs(out)
	return out
}

func (r *TaskRepository) Create(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task
	err := r.store.write(ctx, func(s *State) error {
		if err := checkTaskRefs(s, t); err != nil {
			return err
		}
		now := r.store.now()
		t.ID = s.nextID("tasks")
		t.ParentID = cloneID(t.ParentID)
		t.Version = 1
		t.CreatedAt = now
		t.UpdatedAt = now
		s.Tasks[t.ID] = t
		out = copyTask(t)
		return nil
	})
	return out, err
}

func (r *TaskRepository) Update(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task
	err := r.store.write(ctx, func(s *State) error {
		stored, ok := s.Tasks[t.ID]
		if !ok {
			return task.ErrNotFound
		}
		if stored.Version != t.Version {
			return task.ErrVersionConflict
		}
		if err := checkTaskRefs(s, t); err != nil {
			return err
		}
		t.ParentID = cloneID(t.ParentID)
		t.Version = stored.Version + 1
		t.CreatedAt = stored.CreatedAt
		t.UpdatedAt = r.store.now()
		s.Tasks[t.ID] = t
		out = copyTask(t)
		return nil
	})
	return out, err
}

// Delete refuses to orphan children, like the parent_id foreign key. The
// task's join rows go with it.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	return r.store.write(ctx, func(s *State) error {
		if _, ok := s.Tasks[id]; !ok {
			return task.ErrNotFound
		}
		if len(childIDs(s, id)) > 0 {
			return errors.Wrapf(integrity.ErrReferenced, "task %d has children", id)
		}
		deleteTaskRows(s, id)
		return nil
	})
}

func deleteTaskRows(s *State, id int64) {
	delete(s.Tasks, id)
	delete(s.TaskEmployees, id)
	delete(s.TaskSkills, id)
	delete(s.TaskDepartments, id)
}

func checkTaskRefs(s *State, t task.Task) error {
	if _, ok := s.Processes[t.ProcessID]; !ok {
		return errors.Wrapf(integrity.ErrReferenced, "process %d does not exist", t.ProcessID)
	}
	if t.ParentID != nil {
		if _, ok := s.Tasks[*t.ParentID]; !ok {
			return errors.Wrapf(integrity.ErrReferenced, "parent task %d does not exist", *t.ParentID)
		}
	}
	return nil
}

func (r *TaskRepository) EmployeeIDs(ctx context.Context, id int64) ([]int64, error) {
	return r.links(ctx, func(s *State) []int64 { return s.TaskEmployees.Of(id) })
}

func (r *TaskRepository) SkillIDs(ctx context.Context, id int64) ([]int64, error) {
	return r.links(ctx, func(s *State) []int64 { return s.TaskSkills.Of(id) })
}

func (r *TaskRepository) DepartmentIDs(ctx context.Context, id int64) ([]int64, error) {
	return r.links(ctx, func(s *State) []int64 { return s.TaskDepartments.Of(id) })
}

func (r *TaskRepository) TaskIDsByEmployee(ctx context.Context, employeeID int64) ([]int64, error) {
	return r.links(ctx, func(s *State) []int64 { return s.TaskEmployees.Inverse(employeeID) })
}

func (r *TaskRepository) links(ctx context.Context, fn func(*State) []int64) ([]int64, error) {
	var out []int64
	err := r.store.read(ctx, func(s *State) error {
		out = fn(s)
		return nil
	})
	return out, err
}

func (r *TaskRepository) AssignEmployee(ctx context.Context, taskID, employeeID int64) error {
	return r.store.write(ctx, func(s *State) error {
		if err := checkTaskLink(s, taskID); err != nil {
			return err
		}
		if _, ok := s.Employees[employeeID]; !ok {
			return errors.Wrapf(integrity.ErrReferenced, "employee %d does not exist", employeeID)
		}
		s.TaskEmployees.Add(taskID, employeeID)
		return nil
	})
}

func (r *TaskRepository) UnassignEmployee(ctx context.Context, taskID, employeeID int64) error {
	return r.store.write(ctx, func(s *State) error {
		s.TaskEmployees.Remove(taskID, employeeID)
		return nil
	})
}

func (r *TaskRepository) ReplaceEmployees(ctx context.Context, taskID int64, employeeIDs []int64) error {
	return r.store.write(ctx, func(s *State) error {
		return replaceLinks(s, s.TaskEmployees, taskID, employeeIDs, func(id int64) bool {
			_, ok := s.Employees[id]
			return ok
		})
	})
}

func (r *TaskRepository) ReplaceSkills(ctx context.Context, taskID int64, skillIDs []int64) error {
	return r.store.write(ctx, func(s *State) error {
		return replaceLinks(s, s.TaskSkills, taskID, skillIDs, entryExists(s, catalog.KindSkill))
	})
}

func (r *TaskRepository) ReplaceDepartments(ctx context.Context, taskID int64, departmentIDs []int64) error {
	return r.store.write(ctx, func(s *State) error {
		return replaceLinks(s, s.TaskDepartments, taskID, departmentIDs, entryExists(s, catalog.KindDepartment))
	})
}

func replaceLinks(s *State, links Links, taskID int64, ids []int64, exists func(int64) bool) error {
	if err := checkTaskLink(s, taskID); err != nil {
		return err
	}
	for _, id := range ids {
		if !exists(id) {
			return errors.Wrapf(integrity.ErrReferenced, "linked row %d does not exist", id)
		}
	}
	delete(links, taskID)
	for _, id := range ids {
		links.Add(taskID, id)
	}
	return nil
}

func checkTaskLink(s *State, taskID int64) error {
	if _, ok := s.Tasks[taskID]; !ok {
		return errors.Wrapf(integrity.ErrReferenced, "task %d does not exist", taskID)
	}
	return nil
}

func copyTask(t task.Task) task.Task {
	t.ParentID = cloneID(t.ParentID)
	return t
}
