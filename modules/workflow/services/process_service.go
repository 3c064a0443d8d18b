package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/engine"
	"github.com/proseed/proseed/pkg/eventbus"
)

type ProcessService struct {
	repos     Repositories
	publisher eventbus.EventBus
}

func NewProcessService(repos Repositories, publisher eventbus.EventBus) *ProcessService {
	return &ProcessService{repos: repos, publisher: publisher}
}

// TaskNode is a task with its subtasks resolved.
type TaskNode struct {
	task.Task
	SubTasks []*TaskNode
}

// ProcessTree is a process with the forest of tasks it owns. Tasks of the
// process hanging under a task of another process are listed as roots.
type ProcessTree struct {
	process.Process
	Tasks []*TaskNode
}

func (s *ProcessService) GetByID(ctx context.Context, id int64) (process.Process, error) {
	start := time.Now()
	out, err := s.getProcess(ctx, id)
	return out, finish("process.get", start, err)
}

func (s *ProcessService) GetAll(ctx context.Context) ([]process.Process, error) {
	start := time.Now()
	out, err := s.repos.Processes.GetAll(ctx)
	return out, finish("process.list", start, err)
}

func (s *ProcessService) Create(ctx context.Context, p process.Process) (process.Process, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (process.Process, error) {
		return s.repos.Processes.Create(txCtx, p)
	})
	if err = finish("process.create", start, err); err != nil {
		return process.Process{}, err
	}
	s.publish(&process.CreatedEvent{Result: out})
	return out, nil
}

func (s *ProcessService) Update(ctx context.Context, p process.Process) (process.Process, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (process.Process, error) {
		if _, err := s.getProcess(txCtx, p.ID); err != nil {
			return process.Process{}, err
		}
		return s.repos.Processes.Update(txCtx, p)
	})
	return out, finish("process.update", start, err)
}

// Delete removes the process with every task it owns. Tasks of other
// processes hanging under those tasks are moved to root first.
func (s *ProcessService) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "ProcessService.Delete")
	defer span.End()
	start := time.Now()

	ev, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (*process.DeletedEvent, error) {
		if err := s.repos.Tasks.LockTree(txCtx); err != nil {
			return nil, err
		}
		p, err := s.getProcess(txCtx, id)
		if err != nil {
			return nil, err
		}
		owned, err := s.repos.Tasks.GetAll(txCtx, &task.FindParams{ProcessID: &id})
		if err != nil {
			return nil, err
		}
		for _, t := range owned {
			children, err := s.repos.Tasks.ChildIDs(txCtx, t.ID)
			if err != nil {
				return nil, err
			}
			for _, childID := range children {
				child, err := s.repos.Tasks.GetByID(txCtx, childID)
				if err != nil {
					return nil, err
				}
				if child.ProcessID == id {
					continue
				}
				child.ParentID = nil
				if _, err := s.repos.Tasks.Update(txCtx, child); err != nil {
					return nil, err
				}
			}
		}
		if err := s.repos.Processes.Delete(txCtx, id); err != nil {
			return nil, err
		}
		return &process.DeletedEvent{Result: p, DeletedTasks: len(owned)}, nil
	})
	if err = finish("process.delete", start, err); err != nil {
		return err
	}
	s.publish(ev)
	return nil
}

func (s *ProcessService) GetWithTasks(ctx context.Context, id int64) (ProcessTree, error) {
	start := time.Now()
	out, err := inTx(ctx, s.repos.Tx, func(txCtx context.Context) (ProcessTree, error) {
		p, err := s.getProcess(txCtx, id)
		if err != nil {
			return ProcessTree{}, err
		}
		tasks, err := s.repos.Tasks.GetAll(txCtx, &task.FindParams{ProcessID: &id})
		if err != nil {
			return ProcessTree{}, err
		}
		roots, err := buildForest(tasks)
		if err != nil {
			return ProcessTree{}, err
		}
		return ProcessTree{Process: p, Tasks: roots}, nil
	})
	return out, finish("process.tasks", start, err)
}

// buildForest links tasks by parent. A task whose parent is not among tasks
// becomes a root. Tasks left unreached from any root sit on a cycle.
func buildForest(tasks []task.Task) ([]*TaskNode, error) {
	nodes := make(map[int64]*TaskNode, len(tasks))
	for _, t := range tasks {
		nodes[t.ID] = &TaskNode{Task: t, SubTasks: []*TaskNode{}}
	}
	roots := make([]*TaskNode, 0)
	for _, t := range tasks {
		n := nodes[t.ID]
		if t.ParentID != nil {
			if parent, ok := nodes[*t.ParentID]; ok {
				parent.SubTasks = append(parent.SubTasks, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	reached := 0
	var count func(*TaskNode)
	count = func(n *TaskNode) {
		reached++
		for _, c := range n.SubTasks {
			count(c)
		}
	}
	for _, r := range roots {
		count(r)
	}
	if reached != len(tasks) {
		return nil, engine.ErrCorruptTree
	}
	return roots, nil
}

func (s *ProcessService) getProcess(ctx context.Context, id int64) (process.Process, error) {
	p, err := s.repos.Processes.GetByID(ctx, id)
	if errors.Is(err, process.ErrNotFound) {
		return process.Process{}, notFound(CodeProcessNotFound, "process %d not found", id)
	}
	return p, err
}

func (s *ProcessService) publish(event any) {
	if s.publisher == nil || event == nil {
		return
	}
	s.publisher.Publish(event)
}
