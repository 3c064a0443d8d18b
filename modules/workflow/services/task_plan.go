package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/engine"
)

// plan is the resolved form of a payload's subtasks: which drafts are new,
// which reference stored tasks, and where each one hangs. Every structural
// change has already been checked by the forest when the plan is complete.
type plan struct {
	forest  *engine.Forest
	process int64
	nodes   []*planNode
}

type planNode struct {
	draft *task.Draft
	// id is the stored id, or the forest placeholder of a new task.
	id     int64
	parent int64
}

// planSubtasks resolves the subtasks of d, which hangs at parent, depth
// first so that every parent is planned before its children.
func (s *TaskService) planSubtasks(ctx context.Context, p *plan, parent int64, d *task.Draft) error {
	for _, sub := range d.SubTasks {
		if sub == nil {
			continue
		}
		node := &planNode{draft: sub, parent: parent}
		if sub.IsNew() {
			node.id = p.forest.Add(&parent)
		} else {
			if _, err := s.repos.Tasks.GetByID(ctx, *sub.ID); err != nil {
				if errors.Is(err, task.ErrNotFound) {
					return notFound(CodeTaskNotFound, "subtask %d not found", *sub.ID)
				}
				return err
			}
			if err := p.forest.Move(ctx, *sub.ID, &parent); err != nil {
				return err
			}
			node.id = *sub.ID
		}
		p.nodes = append(p.nodes, node)
		if err := s.planSubtasks(ctx, p, node.id, sub); err != nil {
			return err
		}
	}
	return nil
}

// applyPlan writes the planned nodes. ids maps forest placeholders to the
// stored ids of tasks created so far and is extended as new tasks are
// created. It returns the stored tasks that were moved.
func (s *TaskService) applyPlan(ctx context.Context, p *plan, ids map[int64]int64) ([]int64, error) {
	resolve := func(id int64) int64 {
		if id < 0 {
			return ids[id]
		}
		return id
	}

	var moved []int64
	for _, n := range p.nodes {
		parent := resolve(n.parent)
		if n.draft.IsNew() {
			created, err := s.repos.Tasks.Create(ctx, task.Task{
				ProcessID:   p.process,
				ParentID:    task.ParentRef(parent),
				Name:        n.draft.Name,
				Description: n.draft.Description,
				Completed:   boolValue(n.draft.Completed),
			})
			if err != nil {
				return nil, err
			}
			ids[n.id] = created.ID
			if err := s.applySets(ctx, created.ID, n.draft); err != nil {
				return nil, err
			}
			continue
		}

		t, err := s.repos.Tasks.GetByID(ctx, n.id)
		if err != nil {
			return nil, err
		}
		t.ParentID = task.ParentRef(parent)
		retarget := s.opts.CascadeProcessOnReparent && t.ProcessID != p.process
		if retarget {
			t.ProcessID = p.process
		}
		if _, err := s.repos.Tasks.Update(ctx, t); err != nil {
			return nil, err
		}
		if err := s.applySets(ctx, t.ID, n.draft); err != nil {
			return nil, err
		}
		moved = append(moved, t.ID)
		if retarget {
			count, err := s.repos.Tasks.Count(ctx)
			if err != nil {
				return nil, err
			}
			cascaded, err := s.cascadeProcess(ctx, t.ID, p.process, count)
			if err != nil {
				return nil, err
			}
			moved = append(moved, cascaded...)
		}
	}
	return moved, nil
}
