// Package hierarchy builds and validates self-referential trees such as menus
// and departments.
//
// Nodes are kept as a flat collection keyed by id with a separate parent id.
// Trees are materialized on demand by grouping on the parent id:
//
//	forest := hierarchy.BuildTree(menus)
//	for _, root := range forest {
//		fmt.Println(root.Item.Name, len(root.Children))
//	}
//
// Reading is tolerant: a node whose parent is missing from the input is
// promoted to the root level. Writing is strict: ValidateParent walks upward
// from a proposed parent and rejects self-parents and cycles before anything
// is persisted, and ValidateDelete refuses to remove a node that still has
// children.
package hierarchy
