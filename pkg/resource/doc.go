// Package resource stores the menu and department trees of the back office.
//
// Both kinds are self-referential: every row carries a parent id, with 0
// marking a root. Writes go through hierarchy validation so the stored parent
// graph stays acyclic:
//
//	store := resource.NewStore(db, hierarchy.DefaultMaxDepth)
//	err := store.UpdateMenu(ctx, &resource.Menu{ID: 1, ParentID: 3, Name: "System"})
//	if errors.Is(err, hierarchy.ErrCycle) {
//		// 3 is below 1
//	}
//
// Menus double as permission carriers: a menu with a non-blank PermKey
// grants that key to every role it is assigned to.
package resource
