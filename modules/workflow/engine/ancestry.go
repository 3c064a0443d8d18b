package engine

import "context"

// ParentLookup resolves the parent of a task; nil means root.
type ParentLookup interface {
	ParentOf(ctx context.Context, id int64) (*int64, error)
}

// IsAncestorOf walks node's parent chain looking for candidate. The walk
// gives up with ErrCorruptTree after limit steps, limit being the number of
// tasks that can exist.
func IsAncestorOf(ctx context.Context, lookup ParentLookup, candidate, node, limit int64) (bool, error) {
	cur := node
	for steps := int64(0); ; steps++ {
		if steps > limit {
			return false, violation(ErrCorruptTree, &node)
		}
		parent, err := lookup.ParentOf(ctx, cur)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		if *parent == candidate {
			return true, nil
		}
		cur = *parent
	}
}

// Depth counts the edges between id and its root.
func Depth(ctx context.Context, lookup ParentLookup, id, limit int64) (int, error) {
	depth := 0
	cur := id
	for {
		if int64(depth) > limit {
			return 0, violation(ErrCorruptTree, &id)
		}
		parent, err := lookup.ParentOf(ctx, cur)
		if err != nil {
			return 0, err
		}
		if parent == nil {
			return depth, nil
		}
		depth++
		cur = *parent
	}
}
