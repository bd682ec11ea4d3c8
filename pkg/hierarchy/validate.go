package hierarchy

import (
	"context"
	"fmt"
)

// DefaultMaxDepth caps the ancestor walk during validation.
const DefaultMaxDepth = 100

// ParentLookup resolves the parent of a stored node.
// ok is false when no node with the given id exists.
type ParentLookup interface {
	ParentOf(ctx context.Context, id int64) (parentID int64, ok bool, err error)
}

// ChildCounter reports how many nodes reference id as their parent.
type ChildCounter interface {
	CountChildren(ctx context.Context, id int64) (int, error)
}

// ValidateCreate checks that a new node may be attached under parentID.
func ValidateCreate(ctx context.Context, lookup ParentLookup, parentID int64) error {
	if parentID == RootID {
		return nil
	}
	_, ok, err := lookup.ParentOf(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to look up parent %d: %w", parentID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrParentNotFound, parentID)
	}
	return nil
}

// ValidateParent checks that node id may be moved under newParentID.
//
// It walks upward from newParentID following stored parent links. Reaching
// id means the move would create a cycle. Revisiting a node or exceeding
// maxDepth steps fails closed with a cycle error. A maxDepth of zero or less
// uses DefaultMaxDepth.
func ValidateParent(ctx context.Context, lookup ParentLookup, id, newParentID int64, maxDepth int) error {
	if newParentID == RootID {
		return nil
	}
	if id == newParentID {
		return ErrSelfParent
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if err := ValidateCreate(ctx, lookup, newParentID); err != nil {
		return err
	}

	seen := make(map[int64]bool)
	current := newParentID
	for step := 0; step < maxDepth; step++ {
		if current == RootID {
			return nil
		}
		if current == id {
			return fmt.Errorf("%w: %d is a descendant of %d", ErrCycle, newParentID, id)
		}
		if seen[current] {
			return fmt.Errorf("%w: existing chain loops at %d", ErrCycle, current)
		}
		seen[current] = true

		parent, ok, err := lookup.ParentOf(ctx, current)
		if err != nil {
			return fmt.Errorf("failed to look up parent of %d: %w", current, err)
		}
		if !ok {
			return nil
		}
		current = parent
	}

	return ErrDepthExceeded
}

// ValidateDelete refuses to delete a node that still has children.
func ValidateDelete(ctx context.Context, counter ChildCounter, id int64) error {
	n, err := counter.CountChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count children of %d: %w", id, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d has %d children", ErrHasChildren, id, n)
	}
	return nil
}

// ParentIndex is an in-memory id to parent id map.
type ParentIndex map[int64]int64

// IndexOf builds a ParentIndex from a node set.
func IndexOf[T Node](items []T) ParentIndex {
	idx := make(ParentIndex, len(items))
	for _, item := range items {
		idx[item.NodeID()] = item.ParentNodeID()
	}
	return idx
}

// ParentOf implements ParentLookup.
func (p ParentIndex) ParentOf(_ context.Context, id int64) (int64, bool, error) {
	parent, ok := p[id]
	return parent, ok, nil
}

// CountChildren implements ChildCounter.
func (p ParentIndex) CountChildren(_ context.Context, id int64) (int, error) {
	n := 0
	for child, parent := range p {
		if parent == id && child != id {
			n++
		}
	}
	return n, nil
}

// WithAncestors returns ids plus every ancestor reachable through the index.
// The walk per id stops at a root, a missing node, a revisited node, or
// after DefaultMaxDepth steps.
func (p ParentIndex) WithAncestors(ids []int64) map[int64]bool {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		current := id
		for step := 0; step <= DefaultMaxDepth && current != RootID; step++ {
			if out[current] && current != id {
				break
			}
			if _, ok := p[current]; !ok {
				break
			}
			out[current] = true
			current = p[current]
		}
	}
	return out
}
