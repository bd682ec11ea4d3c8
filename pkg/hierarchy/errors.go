package hierarchy

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfParent is returned when a node is assigned as its own parent.
	ErrSelfParent = errors.New("node cannot be its own parent")

	// ErrCycle is returned when a parent assignment would make a node its own ancestor.
	ErrCycle = errors.New("parent assignment would create a cycle")

	// ErrDepthExceeded is returned when the ancestor walk hits its iteration cap.
	// It wraps ErrCycle: a chain that long is treated as corrupt.
	ErrDepthExceeded = fmt.Errorf("%w: ancestor chain exceeds depth limit", ErrCycle)

	// ErrHasChildren is returned when deleting a node that still has children.
	ErrHasChildren = errors.New("node has children")

	// ErrParentNotFound is returned when the proposed parent does not exist.
	ErrParentNotFound = errors.New("parent node not found")
)

// IsValidationError reports whether err belongs to the tree validation family.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSelfParent) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrHasChildren) ||
		errors.Is(err, ErrParentNotFound)
}
