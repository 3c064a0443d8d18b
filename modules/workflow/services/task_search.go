package services

import (
	"context"
	"sort"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/engine"
)

type SearchParams struct {
	Q         string `form:"q"`
	ProcessID *int64 `form:"processId"`
	Completed *bool  `form:"completed"`
	RootsOnly bool   `form:"rootsOnly"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

// Search lists tasks matching the filters. With a query the result is ranked
// by fuzzy name distance and capped at the search limit.
func (s *TaskService) Search(ctx context.Context, params SearchParams) ([]task.Task, error) {
	start := time.Now()
	out, err := s.search(ctx, params)
	return out, finish("task.search", start, err)
}

func (s *TaskService) search(ctx context.Context, params SearchParams) ([]task.Task, error) {
	tasks, err := s.repos.Tasks.GetAll(ctx, &task.FindParams{
		ProcessID: params.ProcessID,
		Completed: params.Completed,
		RootsOnly: params.RootsOnly,
	})
	if err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 || limit > s.opts.SearchLimit {
		limit = s.opts.SearchLimit
	}
	if params.Q == "" {
		return tasks, nil
	}

	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(params.Q, names)
	sort.Stable(ranks)
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	out := make([]task.Task, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, tasks[r.OriginalIndex])
	}
	return out, nil
}

// TaskEmployees is a task subtree annotated with the employees assigned to
// each node.
type TaskEmployees struct {
	TaskID            int64
	Name              string
	AssignedEmployees []employee.Employee
	SubTasks          []*TaskEmployees
}

func (s *TaskService) EmployeeTree(ctx context.Context, id int64) (*TaskEmployees, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (*TaskEmployees, error) {
		t, err := s.getTask(txCtx, id, CodeTaskNotFound)
		if err != nil {
			return nil, err
		}
		count, err := s.repos.Tasks.Count(txCtx)
		if err != nil {
			return nil, err
		}
		return s.employeeTree(txCtx, t, 0, count)
	})
	return out, finish("task.employee_tree", start, err)
}

func (s *TaskService) employeeTree(ctx context.Context, t task.Task, depth, limit int64) (*TaskEmployees, error) {
	if depth > limit {
		return nil, &engine.ViolationError{Err: engine.ErrCorruptTree, TaskID: t.ID}
	}
	ids, err := s.repos.Tasks.EmployeeIDs(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	node := &TaskEmployees{TaskID: t.ID, Name: t.Name, AssignedEmployees: []employee.Employee{}, SubTasks: []*TaskEmployees{}}
	if len(ids) > 0 {
		if node.AssignedEmployees, err = s.repos.Employees.GetByIDs(ctx, ids); err != nil {
			return nil, err
		}
	}
	children, err := s.repos.Tasks.ChildIDs(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, childID := range children {
		child, err := s.repos.Tasks.GetByID(ctx, childID)
		if err != nil {
			return nil, err
		}
		sub, err := s.employeeTree(ctx, child, depth+1, limit)
		if err != nil {
			return nil, err
		}
		node.SubTasks = append(node.SubTasks, sub)
	}
	return node, nil
}
