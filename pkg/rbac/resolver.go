package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// AssignmentSource reads role assignments.
type AssignmentSource interface {
	RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	MenuIDsForRole(ctx context.Context, roleID int64) ([]int64, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
}

// MenuSource lists the stored menus.
type MenuSource interface {
	ListMenus(ctx context.Context) ([]resource.Menu, error)
}

// PermissionResolver computes permission snapshots and navigation trees.
type PermissionResolver interface {
	Resolve(ctx context.Context, userID int64) (*Snapshot, error)
	MenuTree(ctx context.Context, userID int64) ([]*hierarchy.Tree[resource.Menu], error)
}

// Resolver walks user → roles → menus on every call.
type Resolver struct {
	assignments AssignmentSource
	menus       MenuSource
}

// NewResolver creates a resolver over the given sources.
func NewResolver(assignments AssignmentSource, menus MenuSource) *Resolver {
	return &Resolver{
		assignments: assignments,
		menus:       menus,
	}
}

// Resolve returns the permission keys and active role codes of a user.
// A user without roles resolves to empty sets.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (*Snapshot, error) {
	roleIDs, err := r.assignments.RoleIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Permissions: []string{}, Roles: []string{}}
	if len(roleIDs) == 0 {
		return snap, nil
	}

	menuIDs, err := r.menuIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	if len(menuIDs) > 0 {
		menus, err := r.menus.ListMenus(ctx)
		if err != nil {
			return nil, err
		}
		keys := make(map[string]struct{})
		for _, m := range menus {
			if !menuIDs[m.ID] || !m.HasPermission() {
				continue
			}
			keys[strings.TrimSpace(m.PermKey)] = struct{}{}
		}
		snap.Permissions = sortedKeys(keys)
	}

	codes := make(map[string]struct{})
	for _, roleID := range roleIDs {
		role, err := r.assignments.GetRole(ctx, roleID)
		if errors.Is(err, ErrRoleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if role.Active() {
			codes[role.Code] = struct{}{}
		}
	}
	snap.Roles = sortedKeys(codes)

	return snap, nil
}

// MenuTree returns the navigation tree of a user: assigned menus plus all of
// their ancestors, filtered to visible and enabled entries.
func (r *Resolver) MenuTree(ctx context.Context, userID int64) ([]*hierarchy.Tree[resource.Menu], error) {
	roleIDs, err := r.assignments.RoleIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return []*hierarchy.Tree[resource.Menu]{}, nil
	}

	assigned, err := r.menuIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	if len(assigned) == 0 {
		return []*hierarchy.Tree[resource.Menu]{}, nil
	}

	menus, err := r.menus.ListMenus(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(assigned))
	for id := range assigned {
		ids = append(ids, id)
	}
	closure := hierarchy.IndexOf(menus).WithAncestors(ids)

	visible := make([]resource.Menu, 0, len(closure))
	for _, m := range menus {
		if closure[m.ID] && m.Navigable() {
			visible = append(visible, m)
		}
	}

	return hierarchy.BuildTree(visible), nil
}

func (r *Resolver) menuIDs(ctx context.Context, roleIDs []int64) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for _, roleID := range roleIDs {
		menuIDs, err := r.assignments.MenuIDsForRole(ctx, roleID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve menus of role %d: %w", roleID, err)
		}
		for _, id := range menuIDs {
			ids[id] = true
		}
	}
	return ids, nil
}
