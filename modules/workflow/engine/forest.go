package engine

import "context"

// Forest overlays planned parent changes on top of stored parents. Every
// change is checked against the overlay as it is planned, so a sequence of
// accepted changes can never close a cycle, whatever order it is applied in.
type Forest struct {
	base    ParentLookup
	limit   int64
	parents map[int64]*int64
	order   []int64
	next    int64
}

// NewForest returns an empty plan over base. stored is the number of tasks
// in the store and bounds every parent walk.
func NewForest(base ParentLookup, stored int64) *Forest {
	return &Forest{
		base:    base,
		limit:   stored,
		parents: map[int64]*int64{},
		next:    -1,
	}
}

func (f *Forest) ParentOf(ctx context.Context, id int64) (*int64, error) {
	if p, ok := f.parents[id]; ok {
		return p, nil
	}
	if id < 0 {
		return nil, nil
	}
	return f.base.ParentOf(ctx, id)
}

// Add plans a new node under parent and returns its placeholder id, which is
// always negative.
func (f *Forest) Add(parent *int64) int64 {
	id := f.next
	f.next--
	f.limit++
	f.parents[id] = cloneID(parent)
	f.order = append(f.order, id)
	return id
}

// Move plans re-hanging child under parent, nil meaning root. It fails with
// ErrCycle when parent is child itself or one of its descendants.
func (f *Forest) Move(ctx context.Context, child int64, parent *int64) error {
	if parent != nil {
		if *parent == child {
			return violation(ErrCycle, &child)
		}
		below, err := IsAncestorOf(ctx, f, child, *parent, f.limit)
		if err != nil {
			return err
		}
		if below {
			return violation(ErrCycle, &child)
		}
	}
	if _, ok := f.parents[child]; !ok {
		f.order = append(f.order, child)
	}
	f.parents[child] = cloneID(parent)
	return nil
}

// Planned reports whether id has a planned parent.
func (f *Forest) Planned(id int64) bool {
	_, ok := f.parents[id]
	return ok
}

// Changes lists planned nodes in planning order with their final parent.
func (f *Forest) Changes() []Change {
	out := make([]Change, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, Change{ID: id, Parent: cloneID(f.parents[id])})
	}
	return out
}

type Change struct {
	ID     int64
	Parent *int64
}

func (c Change) IsNew() bool {
	return c.ID < 0
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
