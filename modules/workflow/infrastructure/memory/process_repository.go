package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/integrity"
	"github.com/proseed/proseed/modules/workflow/domain/process"
)

type ProcessRepository struct {
	store *Store
}

func (r *ProcessRepository) GetByID(ctx context.Context, id int64) (process.Process, error) {
	var out process.Process
	err := r.store.read(ctx, func(s *State) error {
		p, ok := s.Processes[id]
		if !ok {
			return process.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *ProcessRepository) GetAll(ctx context.Context) ([]process.Process, error) {
	out := []process.Process{}
	err := r.store.read(ctx, func(s *State) error {
		for _, p := range s.Processes {
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b process.Process) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (r *ProcessRepository) Create(ctx context.Context, p process.Process) (process.Process, error) {
	err := r.store.write(ctx, func(s *State) error {
		now := r.store.now()
		p.ID = s.nextID("processes")
		p.CreatedAt = now
		p.UpdatedAt = now
		s.Processes[p.ID] = p
		return nil
	})
	return p, err
}

func (r *ProcessRepository) Update(ctx context.Context, p process.Process) (process.Process, error) {
	err := r.store.write(ctx, func(s *State) error {
		stored, ok := s.Processes[p.ID]
		if !ok {
			return process.ErrNotFound
		}
		p.CreatedAt = stored.CreatedAt
		p.UpdatedAt = r.store.now()
		s.Processes[p.ID] = p
		return nil
	})
	return p, err
}

// Delete cascades to the tasks of the process. A task of another process
// still hanging under one of them fails the whole delete.
func (r *ProcessRepository) Delete(ctx context.Context, id int64) error {
	return r.store.write(ctx, func(s *State) error {
		if _, ok := s.Processes[id]; !ok {
			return process.ErrNotFound
		}
		owned := map[int64]struct{}{}
		for _, t := range s.Tasks {
			if t.ProcessID == id {
				owned[t.ID] = struct{}{}
			}
		}
		for _, t := range s.Tasks {
			if _, ok := owned[t.ID]; ok || t.ParentID == nil {
				continue
			}
			if _, ok := owned[*t.ParentID]; ok {
				return errors.Wrapf(integrity.ErrReferenced, "task %d hangs under a task of process %d", t.ID, id)
			}
		}
		for taskID := range owned {
			deleteTaskRows(s, taskID)
		}
		delete(s.Processes, id)
		return nil
	})
}
