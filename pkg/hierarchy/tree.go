package hierarchy

import "sort"

// RootID is the parent id carried by root nodes.
const RootID int64 = 0

// Node is implemented by anything that can be placed in a tree.
type Node interface {
	NodeID() int64
	ParentNodeID() int64
	SortKey() int
}

// Tree is a materialized node with its ordered children.
type Tree[T Node] struct {
	Item     T          `json:"item"`
	Children []*Tree[T] `json:"children,omitempty"`
}

// BuildTree groups a flat node set into a forest.
//
// Every input node appears exactly once. Nodes whose parent is RootID, is
// absent from the input, or is the node itself become roots. Siblings are
// ordered by SortKey ascending, ties keep input order. Nodes caught in a
// parent cycle are promoted to the root level at the first member met in
// sibling order, so corrupt data never drops nodes.
func BuildTree[T Node](items []T) []*Tree[T] {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortKey() < sorted[j].SortKey()
	})

	present := make(map[int64]bool, len(sorted))
	for _, item := range sorted {
		present[item.NodeID()] = true
	}

	children := make(map[int64][]T)
	var roots []T
	for _, item := range sorted {
		parent := item.ParentNodeID()
		if parent == RootID || parent == item.NodeID() || !present[parent] {
			roots = append(roots, item)
			continue
		}
		children[parent] = append(children[parent], item)
	}

	visited := make(map[int64]bool, len(sorted))
	var attach func(item T) *Tree[T]
	attach = func(item T) *Tree[T] {
		visited[item.NodeID()] = true
		node := &Tree[T]{Item: item}
		for _, child := range children[item.NodeID()] {
			if visited[child.NodeID()] {
				continue
			}
			node.Children = append(node.Children, attach(child))
		}
		return node
	}

	forest := make([]*Tree[T], 0, len(roots))
	for _, root := range roots {
		if visited[root.NodeID()] {
			continue
		}
		forest = append(forest, attach(root))
	}

	// Anything left unvisited sits on a cycle with no path to a root.
	for _, item := range sorted {
		if !visited[item.NodeID()] {
			forest = append(forest, attach(item))
		}
	}

	return forest
}

// Flatten returns the items of a forest in pre-order.
func Flatten[T Node](forest []*Tree[T]) []T {
	var out []T
	var walk func(nodes []*Tree[T])
	walk = func(nodes []*Tree[T]) {
		for _, n := range nodes {
			out = append(out, n.Item)
			walk(n.Children)
		}
	}
	walk(forest)
	return out
}

// Count returns the number of nodes in a forest.
func Count[T Node](forest []*Tree[T]) int {
	n := 0
	for _, t := range forest {
		n += 1 + Count(t.Children)
	}
	return n
}
