package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/engine"
	"github.com/proseed/proseed/pkg/eventbus"
)

type TaskOptions struct {
	// CascadeProcessOnReparent makes a moved task and its subtree adopt the
	// process of the task it is moved under.
	CascadeProcessOnReparent bool
	MaxPayloadNodes          int
	SearchLimit              int
}

func DefaultTaskOptions() TaskOptions {
	return TaskOptions{CascadeProcessOnReparent: true, MaxPayloadNodes: 1000, SearchLimit: 50}
}

type TaskService struct {
	repos     Repositories
	publisher eventbus.EventBus
	opts      TaskOptions
}

func NewTaskService(repos Repositories, publisher eventbus.EventBus, opts TaskOptions) *TaskService {
	if opts.MaxPayloadNodes <= 0 {
		opts.MaxPayloadNodes = DefaultTaskOptions().MaxPayloadNodes
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultTaskOptions().SearchLimit
	}
	return &TaskService{repos: repos, publisher: publisher, opts: opts}
}

func (s *TaskService) GetByID(ctx context.Context, id int64) (task.Details, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Details, error) {
		t, err := s.getTask(txCtx, id, CodeTaskNotFound)
		if err != nil {
			return task.Details{}, err
		}
		return s.details(txCtx, t)
	})
	return out, finish("task.get", start, err)
}

func (s *TaskService) GetAll(ctx context.Context, params *task.FindParams) ([]task.Task, error) {
	start := time.Now()
	out, err := s.repos.Tasks.GetAll(ctx, params)
	return out, finish("task.list", start, err)
}

// Create stores a new task, optionally with a nested payload of new or
// reattached subtasks, under processID. The parent comes from parentID,
// falling back to the payload's own parent reference.
func (s *TaskService) Create(ctx context.Context, processID int64, parentID *int64, d *task.Draft) (task.Details, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create")
	defer span.End()
	start := time.Now()

	out, err := s.create(ctx, processID, parentID, d)
	if err = finish("task.create", start, err); err != nil {
		return task.Details{}, err
	}
	s.publish(&task.CreatedEvent{Result: out})
	return out, nil
}

func (s *TaskService) create(ctx context.Context, processID int64, parentID *int64, d *task.Draft) (task.Details, error) {
	if err := s.validateDraft(d); err != nil {
		return task.Details{}, err
	}
	if !d.IsNew() {
		return task.Details{}, structural(CodeInvalidDraft, "the created task must not carry an id", nil)
	}
	if parentID == nil && d.Parent.Set {
		parentID = d.Parent.ID
	}

	return inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Details, error) {
		if err := s.repos.Tasks.LockTree(txCtx); err != nil {
			return task.Details{}, err
		}
		if _, err := s.repos.Processes.GetByID(txCtx, processID); err != nil {
			if errors.Is(err, process.ErrNotFound) {
				e := newServiceError(http.StatusBadRequest, CodeProcessNotFound, "process not found", err)
				e.Kind = KindNotFound
				return task.Details{}, e
			}
			return task.Details{}, err
		}
		if parentID != nil {
			parent, err := s.getTask(txCtx, *parentID, CodeParentNotFound)
			if err != nil {
				return task.Details{}, err
			}
			if parent.ProcessID != processID {
				if !s.opts.CascadeProcessOnReparent {
					return task.Details{}, structural(CodeProcessMismatch,
						fmt.Sprintf("parent %d belongs to process %d, not %d", parent.ID, parent.ProcessID, processID), nil)
				}
				processID = parent.ProcessID
			}
		}
		if err := s.checkReferences(txCtx, d); err != nil {
			return task.Details{}, err
		}

		count, err := s.repos.Tasks.Count(txCtx)
		if err != nil {
			return task.Details{}, err
		}
		p := &plan{forest: engine.NewForest(s.repos.Tasks, count), process: processID}
		rootID := p.forest.Add(parentID)
		if err := s.planSubtasks(txCtx, p, rootID, d); err != nil {
			return task.Details{}, err
		}

		created, err := s.repos.Tasks.Create(txCtx, task.Task{
			ProcessID:   processID,
			ParentID:    parentID,
			Name:        d.Name,
			Description: d.Description,
			Completed:   boolValue(d.Completed),
		})
		if err != nil {
			return task.Details{}, err
		}
		if err := s.applySets(txCtx, created.ID, d); err != nil {
			return task.Details{}, err
		}
		if _, err := s.applyPlan(txCtx, p, map[int64]int64{rootID: created.ID}); err != nil {
			return task.Details{}, err
		}
		return s.details(txCtx, created)
	})
}

// Update applies d to task id: scalar fields, an optional parent change, an
// optional explicit process, an optional replacement child list and the
// association sets. Children omitted from a replacement list become roots.
func (s *TaskService) Update(ctx context.Context, id int64, d *task.Draft) (task.Details, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update")
	defer span.End()
	start := time.Now()

	var ev *task.UpdatedEvent
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Details, error) {
		var err error
		ev, err = s.update(txCtx, id, d)
		if err != nil {
			return task.Details{}, err
		}
		return ev.Result, nil
	})
	if err = finish("task.update", start, err); err != nil {
		return task.Details{}, err
	}
	s.publish(ev)
	return out, nil
}

func (s *TaskService) update(ctx context.Context, id int64, d *task.Draft) (*task.UpdatedEvent, error) {
	if err := s.validateDraft(d); err != nil {
		return nil, err
	}
	if d.ID != nil && *d.ID != id {
		return nil, structural(CodeInvalidDraft, "payload id does not match the updated task", nil)
	}
	if err := s.repos.Tasks.LockTree(ctx); err != nil {
		return nil, err
	}

	t, err := s.getTask(ctx, id, CodeTaskNotFound)
	if err != nil {
		return nil, err
	}
	if d.Version != nil && *d.Version != t.Version {
		return nil, task.ErrVersionConflict
	}
	before, err := s.details(ctx, t)
	if err != nil {
		return nil, err
	}

	rooted := *d
	rooted.ID = &id
	if err := engine.WouldCreateCycle(&rooted); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, d); err != nil {
		return nil, err
	}

	count, err := s.repos.Tasks.Count(ctx)
	if err != nil {
		return nil, err
	}
	forest := engine.NewForest(s.repos.Tasks, count)

	finalProcess := t.ProcessID
	processChanged := false
	if d.Parent.Set {
		if d.Parent.ID != nil {
			parent, err := s.getTask(ctx, *d.Parent.ID, CodeParentNotFound)
			if err != nil {
				return nil, err
			}
			if s.opts.CascadeProcessOnReparent {
				finalProcess = parent.ProcessID
			}
		}
		if err := forest.Move(ctx, id, d.Parent.ID); err != nil {
			return nil, err
		}
		t.ParentID = d.Parent.ID
	}
	// An explicit process wins over the one inherited from a new parent.
	if d.ProcessID != nil {
		if *d.ProcessID != t.ProcessID {
			if _, err := s.repos.Processes.GetByID(ctx, *d.ProcessID); err != nil {
				return nil, err
			}
		}
		finalProcess = *d.ProcessID
	}
	if finalProcess != t.ProcessID {
		processChanged = true
		t.ProcessID = finalProcess
	}

	p := &plan{forest: forest, process: finalProcess}
	var detached []int64
	if d.SubTasks != nil {
		if err := s.planSubtasks(ctx, p, id, d); err != nil {
			return nil, err
		}
		current, err := s.repos.Tasks.ChildIDs(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, childID := range current {
			if forest.Planned(childID) {
				continue
			}
			if err := forest.Move(ctx, childID, nil); err != nil {
				return nil, err
			}
			detached = append(detached, childID)
		}
	}

	t.Name = d.Name
	t.Description = d.Description
	if d.Completed != nil {
		t.Completed = *d.Completed
	}
	if _, err := s.repos.Tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	if err := s.applySets(ctx, id, d); err != nil {
		return nil, err
	}

	for _, childID := range detached {
		child, err := s.repos.Tasks.GetByID(ctx, childID)
		if err != nil {
			return nil, err
		}
		child.ParentID = nil
		if _, err := s.repos.Tasks.Update(ctx, child); err != nil {
			return nil, err
		}
	}
	moved, err := s.applyPlan(ctx, p, map[int64]int64{})
	if err != nil {
		return nil, err
	}
	moved = append(moved, detached...)
	if processChanged {
		cascaded, err := s.cascadeProcess(ctx, id, finalProcess, count)
		if err != nil {
			return nil, err
		}
		moved = append(moved, cascaded...)
	}

	stored, err := s.repos.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.details(ctx, stored)
	if err != nil {
		return nil, err
	}
	return &task.UpdatedEvent{Before: before, Result: result, Moved: uniqueIDs(moved)}, nil
}

// InsertBetween splices a new task onto the edge parentID -> childID. The
// child must hang directly under the parent.
func (s *TaskService) InsertBetween(ctx context.Context, parentID, childID int64, d *task.Draft) (task.Details, error) {
	ctx, span := tracer.Start(ctx, "TaskService.InsertBetween")
	defer span.End()
	start := time.Now()

	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Details, error) {
		if d == nil {
			return task.Details{}, structural(CodeInvalidDraft, "task payload is required", nil)
		}
		if !d.IsNew() || len(d.SubTasks) > 0 {
			return task.Details{}, structural(CodeInvalidDraft, "the inserted task must be new and carry no subtasks", nil)
		}
		if err := s.repos.Tasks.LockTree(txCtx); err != nil {
			return task.Details{}, err
		}
		parent, err := s.getTask(txCtx, parentID, CodeParentNotFound)
		if err != nil {
			return task.Details{}, err
		}
		child, err := s.getTask(txCtx, childID, CodeChildNotFound)
		if err != nil {
			return task.Details{}, err
		}
		if !child.HasParent(parent.ID) {
			return task.Details{}, structural(CodeNotDirectChild, "child is not a direct child of parent", nil)
		}
		if err := s.checkReferences(txCtx, d); err != nil {
			return task.Details{}, err
		}

		inserted, err := s.repos.Tasks.Create(txCtx, task.Task{
			ProcessID:   parent.ProcessID,
			ParentID:    task.ParentRef(parent.ID),
			Name:        d.Name,
			Description: d.Description,
			Completed:   boolValue(d.Completed),
		})
		if err != nil {
			return task.Details{}, err
		}
		if err := s.applySets(txCtx, inserted.ID, d); err != nil {
			return task.Details{}, err
		}

		child.ParentID = task.ParentRef(inserted.ID)
		if _, err := s.repos.Tasks.Update(txCtx, child); err != nil {
			return task.Details{}, err
		}
		// The parent's child set changed from {child} to {inserted}.
		if _, err := s.repos.Tasks.Update(txCtx, parent); err != nil {
			return task.Details{}, err
		}
		return s.details(txCtx, inserted)
	})
	if err = finish("task.insert_between", start, err); err != nil {
		return task.Details{}, err
	}
	s.publish(&task.SplicedEvent{ParentID: parentID, ChildID: childID, Result: out})
	return out, nil
}

// Delete removes a task that has no children. Its assignment and requirement
// links go with it.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "TaskService.Delete")
	defer span.End()
	start := time.Now()

	deleted, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Task, error) {
		if err := s.repos.Tasks.LockTree(txCtx); err != nil {
			return task.Task{}, err
		}
		return s.deleteLeaf(txCtx, id)
	})
	if err = finish("task.delete", start, err); err != nil {
		return err
	}
	s.publish(&task.DeletedEvent{Task: deleted})
	return nil
}

// DeleteSubtree removes id and all of its descendants, deepest first, and
// returns how many tasks were deleted.
func (s *TaskService) DeleteSubtree(ctx context.Context, id int64) (int, error) {
	ctx, span := tracer.Start(ctx, "TaskService.DeleteSubtree")
	defer span.End()
	start := time.Now()

	deleted, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) ([]task.Task, error) {
		if err := s.repos.Tasks.LockTree(txCtx); err != nil {
			return nil, err
		}
		if _, err := s.getTask(txCtx, id, CodeTaskNotFound); err != nil {
			return nil, err
		}
		count, err := s.repos.Tasks.Count(txCtx)
		if err != nil {
			return nil, err
		}
		order, err := s.postOrder(txCtx, id, count)
		if err != nil {
			return nil, err
		}
		out := make([]task.Task, 0, len(order))
		for _, taskID := range order {
			t, err := s.deleteLeaf(txCtx, taskID)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	})
	if err = finish("task.delete_subtree", start, err); err != nil {
		return 0, err
	}
	for _, t := range deleted {
		s.publish(&task.DeletedEvent{Task: t})
	}
	return len(deleted), nil
}

func (s *TaskService) deleteLeaf(ctx context.Context, id int64) (task.Task, error) {
	t, err := s.getTask(ctx, id, CodeTaskNotFound)
	if err != nil {
		return task.Task{}, err
	}
	children, err := s.repos.Tasks.ChildIDs(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	if len(children) > 0 {
		return task.Task{}, structural(CodeHasSubtasks, "task has subtasks", nil)
	}
	if err := s.repos.Tasks.ReplaceEmployees(ctx, id, []int64{}); err != nil {
		return task.Task{}, err
	}
	if err := s.repos.Tasks.ReplaceSkills(ctx, id, []int64{}); err != nil {
		return task.Task{}, err
	}
	if err := s.repos.Tasks.ReplaceDepartments(ctx, id, []int64{}); err != nil {
		return task.Task{}, err
	}
	if err := s.repos.Tasks.Delete(ctx, id); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// SetRequirements replaces the skill and department sets of a task. A nil
// slice leaves that set untouched.
func (s *TaskService) SetRequirements(ctx context.Context, id int64, skillIDs, departmentIDs []int64) (task.Details, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (task.Details, error) {
		t, err := s.getTask(txCtx, id, CodeTaskNotFound)
		if err != nil {
			return task.Details{}, err
		}
		d := &task.Draft{SkillIDs: skillIDs, DepartmentIDs: departmentIDs}
		if err := s.checkReferences(txCtx, d); err != nil {
			return task.Details{}, err
		}
		if err := s.applySets(txCtx, id, d); err != nil {
			return task.Details{}, err
		}
		return s.details(txCtx, t)
	})
	return out, finish("task.set_requirements", start, err)
}

func (s *TaskService) getTask(ctx context.Context, id int64, code string) (task.Task, error) {
	t, err := s.repos.Tasks.GetByID(ctx, id)
	if errors.Is(err, task.ErrNotFound) {
		return task.Task{}, notFound(code, "task %d not found", id)
	}
	return t, err
}

func (s *TaskService) details(ctx context.Context, t task.Task) (task.Details, error) {
	var err error
	out := task.Details{Task: t}
	if out.ChildIDs, err = s.repos.Tasks.ChildIDs(ctx, t.ID); err != nil {
		return task.Details{}, err
	}
	if out.EmployeeIDs, err = s.repos.Tasks.EmployeeIDs(ctx, t.ID); err != nil {
		return task.Details{}, err
	}
	if out.SkillIDs, err = s.repos.Tasks.SkillIDs(ctx, t.ID); err != nil {
		return task.Details{}, err
	}
	if out.DepartmentIDs, err = s.repos.Tasks.DepartmentIDs(ctx, t.ID); err != nil {
		return task.Details{}, err
	}
	return out, nil
}

func (s *TaskService) validateDraft(d *task.Draft) error {
	if d == nil {
		return invalid("task payload is required", nil)
	}
	// Nothing is read or written before the payload itself is known to be
	// acyclic; Size would not terminate otherwise.
	if err := engine.WouldCreateCycle(d); err != nil {
		return err
	}
	if n := d.Size(); n > s.opts.MaxPayloadNodes {
		return invalid("task payload is too large", errors.Errorf("%d nodes, at most %d allowed", n, s.opts.MaxPayloadNodes))
	}
	return nil
}

// checkReferences verifies every employee, skill and department id named
// anywhere in the payload before anything is written.
func (s *TaskService) checkReferences(ctx context.Context, d *task.Draft) error {
	var employees, skills, departments []int64
	var walk func(*task.Draft)
	walk = func(n *task.Draft) {
		if n == nil {
			return
		}
		employees = append(employees, n.EmployeeIDs...)
		skills = append(skills, n.SkillIDs...)
		departments = append(departments, n.DepartmentIDs...)
		for _, c := range n.SubTasks {
			walk(c)
		}
	}
	walk(d)

	if ids := uniqueIDs(employees); len(ids) > 0 {
		found, err := s.repos.Employees.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			have := make(map[int64]struct{}, len(found))
			for _, e := range found {
				have[e.ID] = struct{}{}
			}
			for _, id := range ids {
				if _, ok := have[id]; !ok {
					return notFound(CodeEmployeeNotFound, "employee %d not found", id)
				}
			}
		}
	}
	for kind, ids := range map[catalog.Kind][]int64{
		catalog.KindSkill:      uniqueIDs(skills),
		catalog.KindDepartment: uniqueIDs(departments),
	} {
		if len(ids) == 0 {
			continue
		}
		missing, err := s.repos.Catalog.Missing(ctx, kind, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return catalogNotFound(kind, missing[0])
		}
	}
	return nil
}

func (s *TaskService) applySets(ctx context.Context, id int64, d *task.Draft) error {
	if d.EmployeeIDs != nil {
		if err := s.repos.Tasks.ReplaceEmployees(ctx, id, uniqueIDs(d.EmployeeIDs)); err != nil {
			return err
		}
	}
	if d.SkillIDs != nil {
		if err := s.repos.Tasks.ReplaceSkills(ctx, id, uniqueIDs(d.SkillIDs)); err != nil {
			return err
		}
	}
	if d.DepartmentIDs != nil {
		if err := s.repos.Tasks.ReplaceDepartments(ctx, id, uniqueIDs(d.DepartmentIDs)); err != nil {
			return err
		}
	}
	return nil
}

// cascadeProcess rewrites the process of every descendant of rootID that
// does not already carry processID.
func (s *TaskService) cascadeProcess(ctx context.Context, rootID, processID, limit int64) ([]int64, error) {
	var changed []int64
	queue := []int64{rootID}
	for visited := int64(0); len(queue) > 0; visited++ {
		if visited > limit {
			return nil, &engine.ViolationError{Err: engine.ErrCorruptTree, TaskID: rootID}
		}
		id := queue[0]
		queue = queue[1:]
		children, err := s.repos.Tasks.ChildIDs(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, childID := range children {
			child, err := s.repos.Tasks.GetByID(ctx, childID)
			if err != nil {
				return nil, err
			}
			if child.ProcessID != processID {
				child.ProcessID = processID
				if _, err := s.repos.Tasks.Update(ctx, child); err != nil {
					return nil, err
				}
				changed = append(changed, childID)
			}
			queue = append(queue, childID)
		}
	}
	return changed, nil
}

// postOrder lists the subtree of rootID with every task after all of its
// descendants.
func (s *TaskService) postOrder(ctx context.Context, rootID, limit int64) ([]int64, error) {
	var out []int64
	var visit func(id, depth int64) error
	visit = func(id, depth int64) error {
		if depth > limit {
			return &engine.ViolationError{Err: engine.ErrCorruptTree, TaskID: rootID}
		}
		children, err := s.repos.Tasks.ChildIDs(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := visit(c, depth+1); err != nil {
				return err
			}
		}
		out = append(out, id)
		return nil
	}
	if err := visit(rootID, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TaskService) publish(event any) {
	if s.publisher == nil || event == nil {
		return
	}
	s.publisher.Publish(event)
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

// uniqueIDs drops duplicates and returns the ids sorted.
func uniqueIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
