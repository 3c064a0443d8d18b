package engine

import "github.com/proseed/proseed/modules/workflow/domain/task"

type payloadWalker struct {
	pathIDs  map[int64]struct{}
	pathPtrs map[*task.Draft]struct{}
	seenIDs  map[int64]struct{}
	seenPtrs map[*task.Draft]struct{}
}

// WouldCreateCycle walks a create or update payload depth-first. A node is
// "on the path" by id when it references a stored task and by pointer
// otherwise; meeting either again on the current path is a cycle. Meeting it
// again elsewhere in the payload would give it two parents and is reported
// as ErrDuplicateNode.
func WouldCreateCycle(root *task.Draft) error {
	w := &payloadWalker{
		pathIDs:  map[int64]struct{}{},
		pathPtrs: map[*task.Draft]struct{}{},
		seenIDs:  map[int64]struct{}{},
		seenPtrs: map[*task.Draft]struct{}{},
	}
	return w.visit(root)
}

func (w *payloadWalker) visit(d *task.Draft) error {
	if d == nil {
		return nil
	}
	if _, ok := w.pathPtrs[d]; ok {
		return violation(ErrCycle, d.ID)
	}
	if d.ID != nil {
		if _, ok := w.pathIDs[*d.ID]; ok {
			return violation(ErrCycle, d.ID)
		}
	}
	if _, ok := w.seenPtrs[d]; ok {
		return violation(ErrDuplicateNode, d.ID)
	}
	if d.ID != nil {
		if _, ok := w.seenIDs[*d.ID]; ok {
			return violation(ErrDuplicateNode, d.ID)
		}
	}

	w.pathPtrs[d] = struct{}{}
	w.seenPtrs[d] = struct{}{}
	if d.ID != nil {
		w.pathIDs[*d.ID] = struct{}{}
		w.seenIDs[*d.ID] = struct{}{}
	}

	for _, child := range d.SubTasks {
		if err := w.visit(child); err != nil {
			return err
		}
	}

	delete(w.pathPtrs, d)
	if d.ID != nil {
		delete(w.pathIDs, *d.ID)
	}
	return nil
}
