// Package rbac resolves what a principal may do from role assignments.
//
// # Model
//
// Users hold roles through the user_roles join table. Roles hold menus
// through role_menus. A menu with a non-blank permission key grants that key,
// so the permission set of a user is the deduplicated union of the keys of
// every menu reachable through any of the user's roles:
//
//	user ──< user_roles >── role ──< role_menus >── menu(perm_key)
//
// # Resolution
//
//	resolver := rbac.NewResolver(rbac.NewStore(db), resource.NewStore(db, 0))
//	snap, err := resolver.Resolve(ctx, userID)
//	// snap.Permissions: ["user:add", "user:edit"]
//	// snap.Roles:       ["admin"]
//
// Resolve never fails for an unknown user; it returns empty sets and leaves
// the decision to the caller.
//
// MenuTree returns the navigation tree for a user. Every ancestor of an
// assigned menu is included even when it was not assigned itself, then the
// set is filtered to visible, enabled menus before the tree is built.
//
// # Caching
//
// CachedResolver keeps snapshots in a bounded LRU with a TTL. Snapshots are
// taken at login and are not re-derived per request, so a role change takes
// effect on the next login. Handlers that change assignments invalidate the
// affected user.
package rbac
