package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/integrity"
)

type EmployeeRepository struct {
	store *Store
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (employee.Employee, error) {
	var out employee.Employee
	err := r.store.read(ctx, func(s *State) error {
		e, ok := s.Employees[id]
		if !ok {
			return employee.ErrNotFound
		}
		out = copyEmployee(e)
		return nil
	})
	return out, err
}

func (r *EmployeeRepository) GetAll(ctx context.Context) ([]employee.Employee, error) {
	return r.collect(ctx, func(employee.Employee) bool { return true })
}

// GetByIDs returns the employees that exist among ids, ordered by id.
func (r *EmployeeRepository) GetByIDs(ctx context.Context, ids []int64) ([]employee.Employee, error) {
	return r.collect(ctx, func(e employee.Employee) bool { return slices.Contains(ids, e.ID) })
}

func (r *EmployeeRepository) collect(ctx context.Context, keep func(employee.Employee) bool) ([]employee.Employee, error) {
	out := []employee.Employee{}
	err := r.store.read(ctx, func(s *State) error {
		for _, e := range s.Employees {
			if keep(e) {
				out = append(out, copyEmployee(e))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b employee.Employee) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (r *EmployeeRepository) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	var out employee.Employee
	err := r.store.write(ctx, func(s *State) error {
		if err := checkEmployeeRefs(s, e); err != nil {
			return err
		}
		now := r.store.now()
		e.ID = s.nextID("employees")
		e.CreatedAt = now
		e.UpdatedAt = now
		s.Employees[e.ID] = copyEmployee(e)
		out = copyEmployee(e)
		return nil
	})
	return out, err
}

func (r *EmployeeRepository) Update(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	var out employee.Employee
	err := r.store.write(ctx, func(s *State) error {
		stored, ok := s.Employees[e.ID]
		if !ok {
			return employee.ErrNotFound
		}
		if err := checkEmployeeRefs(s, e); err != nil {
			return err
		}
		e.CreatedAt = stored.CreatedAt
		e.UpdatedAt = r.store.now()
		s.Employees[e.ID] = copyEmployee(e)
		out = copyEmployee(e)
		return nil
	})
	return out, err
}

// Delete takes the employee's skill rows with it but refuses while a task
// still has the employee assigned.
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	return r.store.write(ctx, func(s *State) error {
		if _, ok := s.Employees[id]; !ok {
			return employee.ErrNotFound
		}
		if s.TaskEmployees.Referenced(id) {
			return errors.Wrapf(integrity.ErrReferenced, "employee %d is assigned to a task", id)
		}
		delete(s.EmployeeSkills, id)
		delete(s.Employees, id)
		return nil
	})
}

func (r *EmployeeRepository) ByRole(ctx context.Context, roleID int64) ([]int64, error) {
	out := []int64{}
	err := r.store.read(ctx, func(s *State) error {
		for _, e := range s.Employees {
			if e.RoleID != nil && *e.RoleID == roleID {
				out = append(out, e.ID)
			}
		}
		sortIDs(out)
		return nil
	})
	return out, err
}

func (r *EmployeeRepository) BySkill(ctx context.Context, skillID int64) ([]int64, error) {
	var out []int64
	err := r.store.read(ctx, func(s *State) error {
		out = s.EmployeeSkills.Inverse(skillID)
		return nil
	})
	return out, err
}

func (r *EmployeeRepository) SkillIDs(ctx context.Context, id int64) ([]int64, error) {
	var out []int64
	err := r.store.read(ctx, func(s *State) error {
		out = s.EmployeeSkills.Of(id)
		return nil
	})
	return out, err
}

func (r *EmployeeRepository) AddSkill(ctx context.Context, id, skillID int64) error {
	return r.store.write(ctx, func(s *State) error {
		if _, ok := s.Employees[id]; !ok {
			return errors.Wrapf(integrity.ErrReferenced, "employee %d does not exist", id)
		}
		if !entryExists(s, catalog.KindSkill)(skillID) {
			return errors.Wrapf(integrity.ErrReferenced, "skill %d does not exist", skillID)
		}
		s.EmployeeSkills.Add(id, skillID)
		return nil
	})
}

func (r *EmployeeRepository) RemoveSkill(ctx context.Context, id, skillID int64) error {
	return r.store.write(ctx, func(s *State) error {
		s.EmployeeSkills.Remove(id, skillID)
		return nil
	})
}

func checkEmployeeRefs(s *State, e employee.Employee) error {
	if e.RoleID != nil && !entryExists(s, catalog.KindRole)(*e.RoleID) {
		return errors.Wrapf(integrity.ErrReferenced, "role %d does not exist", *e.RoleID)
	}
	if e.DepartmentID != nil && !entryExists(s, catalog.KindDepartment)(*e.DepartmentID) {
		return errors.Wrapf(integrity.ErrReferenced, "department %d does not exist", *e.DepartmentID)
	}
	return nil
}

func copyEmployee(e employee.Employee) employee.Employee {
	e.RoleID = cloneID(e.RoleID)
	e.DepartmentID = cloneID(e.DepartmentID)
	return e
}
