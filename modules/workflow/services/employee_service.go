package services

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/pkg/eventbus"
)

// Change distinguishes "leave as is" from setting a value, which for a
// pointer may be nil.
type Change[T any] struct {
	Set   bool
	Value T
}

func SetTo[T any](v T) Change[T] {
	return Change[T]{Set: true, Value: v}
}

// EmployeeDraft is a full employee write. A nil SkillIDs keeps the stored
// skill set.
type EmployeeDraft struct {
	FirstName    string
	LastName     string
	RoleID       *int64
	DepartmentID *int64
	SkillIDs     []int64
}

type EmployeePatch struct {
	FirstName    *string
	LastName     *string
	RoleID       Change[*int64]
	DepartmentID Change[*int64]
	SkillIDs     []int64
}

// EmployeeService keeps the employee side of every symmetric association
// in step with the other side. Each association is a single stored link, so
// writing it once updates both sides.
type EmployeeService struct {
	repos     Repositories
	publisher eventbus.EventBus
}

func NewEmployeeService(repos Repositories, publisher eventbus.EventBus) *EmployeeService {
	return &EmployeeService{repos: repos, publisher: publisher}
}

func (s *EmployeeService) GetByID(ctx context.Context, id int64) (employee.Details, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (employee.Details, error) {
		e, err := s.getEmployee(txCtx, id)
		if err != nil {
			return employee.Details{}, err
		}
		return s.details(txCtx, e)
	})
	return out, finish("employee.get", start, err)
}

func (s *EmployeeService) GetAll(ctx context.Context) ([]employee.Employee, error) {
	start := time.Now()
	out, err := s.repos.Employees.GetAll(ctx)
	return out, finish("employee.list", start, err)
}

func (s *EmployeeService) Create(ctx context.Context, d EmployeeDraft) (employee.Details, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (employee.Details, error) {
		if err := s.checkRefs(txCtx, d.RoleID, d.DepartmentID); err != nil {
			return employee.Details{}, err
		}
		created, err := s.repos.Employees.Create(txCtx, employee.Employee{
			FirstName:    d.FirstName,
			LastName:     d.LastName,
			RoleID:       d.RoleID,
			DepartmentID: d.DepartmentID,
		})
		if err != nil {
			return employee.Details{}, err
		}
		if d.SkillIDs != nil {
			if _, _, err := s.replaceSkills(txCtx, created.ID, d.SkillIDs); err != nil {
				return employee.Details{}, err
			}
		}
		return s.details(txCtx, created)
	})
	if err = finish("employee.create", start, err); err != nil {
		return employee.Details{}, err
	}
	s.publish(&employee.CreatedEvent{Result: out.Employee})
	return out, nil
}

// Update replaces every field of the employee.
func (s *EmployeeService) Update(ctx context.Context, id int64, d EmployeeDraft) (employee.Details, error) {
	return s.PatchPartial(ctx, id, EmployeePatch{
		FirstName:    &d.FirstName,
		LastName:     &d.LastName,
		RoleID:       SetTo(d.RoleID),
		DepartmentID: SetTo(d.DepartmentID),
		SkillIDs:     d.SkillIDs,
	})
}

// PatchPartial changes only the fields present in p.
func (s *EmployeeService) PatchPartial(ctx context.Context, id int64, p EmployeePatch) (employee.Details, error) {
	start := time.Now()
	var events []any
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (employee.Details, error) {
		events = nil
		e, err := s.getEmployee(txCtx, id)
		if err != nil {
			return employee.Details{}, err
		}
		if p.FirstName != nil {
			e.FirstName = *p.FirstName
		}
		if p.LastName != nil {
			e.LastName = *p.LastName
		}
		var role, department *int64
		if p.RoleID.Set {
			role = p.RoleID.Value
		}
		if p.DepartmentID.Set {
			department = p.DepartmentID.Value
		}
		if err := s.checkRefs(txCtx, role, department); err != nil {
			return employee.Details{}, err
		}
		if p.RoleID.Set && !sameRef(e.RoleID, p.RoleID.Value) {
			events = append(events, &employee.RoleChangedEvent{EmployeeID: id, OldRoleID: e.RoleID, NewRoleID: p.RoleID.Value})
			e.RoleID = p.RoleID.Value
		}
		if p.DepartmentID.Set {
			e.DepartmentID = p.DepartmentID.Value
		}
		updated, err := s.repos.Employees.Update(txCtx, e)
		if err != nil {
			return employee.Details{}, err
		}
		if p.SkillIDs != nil {
			removed, added, err := s.replaceSkills(txCtx, id, p.SkillIDs)
			if err != nil {
				return employee.Details{}, err
			}
			if len(removed)+len(added) > 0 {
				events = append(events, &employee.SkillsChangedEvent{EmployeeID: id, Removed: removed, Added: added})
			}
		}
		return s.details(txCtx, updated)
	})
	if err = finish("employee.update", start, err); err != nil {
		return employee.Details{}, err
	}
	s.publish(&employee.UpdatedEvent{Result: out.Employee})
	for _, ev := range events {
		s.publish(ev)
	}
	return out, nil
}

// SetSkills replaces the employee's skill set. The employee is detached from
// every skill it holds before the new ones are attached; an unknown skill
// rolls the whole change back.
func (s *EmployeeService) SetSkills(ctx context.Context, id int64, skillIDs []int64) (employee.Details, error) {
	start := time.Now()
	var ev *employee.SkillsChangedEvent
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (employee.Details, error) {
		e, err := s.getEmployee(txCtx, id)
		if err != nil {
			return employee.Details{}, err
		}
		removed, added, err := s.replaceSkills(txCtx, id, skillIDs)
		if err != nil {
			return employee.Details{}, err
		}
		ev = &employee.SkillsChangedEvent{EmployeeID: id, Removed: removed, Added: added}
		return s.details(txCtx, e)
	})
	if err = finish("employee.set_skills", start, err); err != nil {
		return employee.Details{}, err
	}
	s.publish(ev)
	return out, nil
}

// AddSkills attaches the given skills, keeping the ones already held.
func (s *EmployeeService) AddSkills(ctx context.Context, id int64, skillIDs []int64) (employee.Details, error) {
	start := time.Now()
	var ev *employee.SkillsChangedEvent
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (employee.Details, error) {
		e, err := s.getEmployee(txCtx, id)
		if err != nil {
			return employee.Details{}, err
		}
		current, err := s.repos.Employees.SkillIDs(txCtx, id)
		if err != nil {
			return employee.Details{}, err
		}
		var added []int64
		for _, skillID := range uniqueIDs(skillIDs) {
			if slices.Contains(current, skillID) {
				continue
			}
			if err := s.attachSkill(txCtx, id, skillID); err != nil {
				return employee.Details{}, err
			}
			added = append(added, skillID)
		}
		ev = &employee.SkillsChangedEvent{EmployeeID: id, Added: added}
		return s.details(txCtx, e)
	})
	if err = finish("employee.add_skills", start, err); err != nil {
		return employee.Details{}, err
	}
	if len(ev.Added) > 0 {
		s.publish(ev)
	}
	return out, nil
}

// SetRole moves the employee from its current role to roleID. A nil roleID
// leaves the employee without a role.
func (s *EmployeeService) SetRole(ctx context.Context, id int64, roleID *int64) (employee.Details, error) {
	start := time.Now()
	var ev *employee.RoleChangedEvent
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (employee.Details, error) {
		e, err := s.getEmployee(txCtx, id)
		if err != nil {
			return employee.Details{}, err
		}
		if err := s.checkRefs(txCtx, roleID, nil); err != nil {
			return employee.Details{}, err
		}
		if sameRef(e.RoleID, roleID) {
			return s.details(txCtx, e)
		}
		ev = &employee.RoleChangedEvent{EmployeeID: id, OldRoleID: e.RoleID, NewRoleID: roleID}
		// The role side is derived from the employee row, so clearing and
		// setting the reference is the whole move.
		e.RoleID = roleID
		updated, err := s.repos.Employees.Update(txCtx, e)
		if err != nil {
			return employee.Details{}, err
		}
		return s.details(txCtx, updated)
	})
	if err = finish("employee.set_role", start, err); err != nil {
		return employee.Details{}, err
	}
	if ev != nil {
		s.publish(ev)
	}
	return out, nil
}

// Delete detaches the employee from every task and skill and then removes
// the record, so no link is left pointing at a missing employee.
func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "EmployeeService.Delete")
	defer span.End()
	start := time.Now()

	var ev *employee.DeletedEvent
	_, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (struct{}, error) {
		e, err := s.getEmployee(txCtx, id)
		if err != nil {
			return struct{}{}, err
		}
		taskIDs, err := s.repos.Tasks.TaskIDsByEmployee(txCtx, id)
		if err != nil {
			return struct{}{}, err
		}
		for _, taskID := range taskIDs {
			if err := s.repos.Tasks.UnassignEmployee(txCtx, taskID, id); err != nil {
				return struct{}{}, err
			}
		}
		skillIDs, err := s.repos.Employees.SkillIDs(txCtx, id)
		if err != nil {
			return struct{}{}, err
		}
		for _, skillID := range skillIDs {
			if err := s.repos.Employees.RemoveSkill(txCtx, id, skillID); err != nil {
				return struct{}{}, err
			}
		}
		if err := s.repos.Employees.Delete(txCtx, id); err != nil {
			return struct{}{}, err
		}
		ev = &employee.DeletedEvent{Result: e, DetachedFrom: taskIDs}
		return struct{}{}, nil
	})
	if err = finish("employee.delete", start, err); err != nil {
		return err
	}
	s.publish(ev)
	return nil
}

// Tasks is the inverse side of task assignment.
func (s *EmployeeService) Tasks(ctx context.Context, id int64) ([]task.Task, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) ([]task.Task, error) {
		if _, err := s.getEmployee(txCtx, id); err != nil {
			return nil, err
		}
		ids, err := s.repos.Tasks.TaskIDsByEmployee(txCtx, id)
		if err != nil || len(ids) == 0 {
			return []task.Task{}, err
		}
		return s.repos.Tasks.GetAll(txCtx, &task.FindParams{IDs: ids})
	})
	return out, finish("employee.tasks", start, err)
}

// BySkill lists the employees holding a skill.
func (s *EmployeeService) BySkill(ctx context.Context, skillID int64) ([]employee.Employee, error) {
	return s.inverse(ctx, "skill.employees", catalog.KindSkill, skillID, s.repos.Employees.BySkill)
}

// ByRole lists the employees holding a role.
func (s *EmployeeService) ByRole(ctx context.Context, roleID int64) ([]employee.Employee, error) {
	return s.inverse(ctx, "role.employees", catalog.KindRole, roleID, s.repos.Employees.ByRole)
}

func (s *EmployeeService) inverse(
	ctx context.Context,
	op string,
	kind catalog.Kind,
	id int64,
	lookup func(context.Context, int64) ([]int64, error),
) ([]employee.Employee, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) ([]employee.Employee, error) {
		if err := s.checkEntry(txCtx, kind, id); err != nil {
			return nil, err
		}
		ids, err := lookup(txCtx, id)
		if err != nil || len(ids) == 0 {
			return []employee.Employee{}, err
		}
		return s.repos.Employees.GetByIDs(txCtx, ids)
	})
	return out, finish(op, start, err)
}

// replaceSkills detaches every held skill and attaches skillIDs. It returns
// the skills lost and gained.
func (s *EmployeeService) replaceSkills(ctx context.Context, id int64, skillIDs []int64) ([]int64, []int64, error) {
	current, err := s.repos.Employees.SkillIDs(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	for _, skillID := range current {
		if err := s.repos.Employees.RemoveSkill(ctx, id, skillID); err != nil {
			return nil, nil, err
		}
	}
	next := uniqueIDs(skillIDs)
	for _, skillID := range next {
		if err := s.attachSkill(ctx, id, skillID); err != nil {
			return nil, nil, err
		}
	}

	var removed, added []int64
	for _, skillID := range current {
		if !slices.Contains(next, skillID) {
			removed = append(removed, skillID)
		}
	}
	for _, skillID := range next {
		if !slices.Contains(current, skillID) {
			added = append(added, skillID)
		}
	}
	return removed, added, nil
}

func (s *EmployeeService) attachSkill(ctx context.Context, id, skillID int64) error {
	if err := s.checkEntry(ctx, catalog.KindSkill, skillID); err != nil {
		return err
	}
	return s.repos.Employees.AddSkill(ctx, id, skillID)
}

func (s *EmployeeService) checkRefs(ctx context.Context, roleID, departmentID *int64) error {
	if roleID != nil {
		if err := s.checkEntry(ctx, catalog.KindRole, *roleID); err != nil {
			return err
		}
	}
	if departmentID != nil {
		if err := s.checkEntry(ctx, catalog.KindDepartment, *departmentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *EmployeeService) checkEntry(ctx context.Context, kind catalog.Kind, id int64) error {
	_, err := s.repos.Catalog.GetByID(ctx, kind, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalogNotFound(kind, id)
	}
	return err
}

func (s *EmployeeService) getEmployee(ctx context.Context, id int64) (employee.Employee, error) {
	e, err := s.repos.Employees.GetByID(ctx, id)
	if errors.Is(err, employee.ErrNotFound) {
		return employee.Employee{}, notFound(CodeEmployeeNotFound, "employee %d not found", id)
	}
	return e, err
}

func (s *EmployeeService) details(ctx context.Context, e employee.Employee) (employee.Details, error) {
	var err error
	out := employee.Details{Employee: e}
	if out.SkillIDs, err = s.repos.Employees.SkillIDs(ctx, e.ID); err != nil {
		return employee.Details{}, err
	}
	if out.TaskIDs, err = s.repos.Tasks.TaskIDsByEmployee(ctx, e.ID); err != nil {
		return employee.Details{}, err
	}
	return out, nil
}

func (s *EmployeeService) publish(event any) {
	if s.publisher == nil || event == nil {
		return
	}
	s.publisher.Publish(event)
}

func sameRef(a, b *int64) bool {
	return task.SameParent(a, b)
}
