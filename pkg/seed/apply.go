package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// Result counts what Apply created
type Result struct {
	MenusCreated int
	DeptsCreated int
	RolesCreated int
	UsersCreated int
	Assignments  int
}

// Applier writes seeds through the regular stores
type Applier struct {
	users     *auth.SQLUserStore
	roles     *rbac.Store
	resources *resource.Store
	logger    *observability.Logger
}

// NewApplier creates an applier over db
func NewApplier(db *sql.DB, logger *observability.Logger) *Applier {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Applier{
		users:     auth.NewSQLUserStore(db),
		roles:     rbac.NewStore(db),
		resources: resource.NewStore(db, 0),
		logger:    logger,
	}
}

// Apply writes s. Menus and departments are only created when their table
// is empty. Existing roles and users are left untouched, but role
// assignments listed in the seed are always ensured.
func (a *Applier) Apply(ctx context.Context, s *Seed) (*Result, error) {
	if errs := s.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, fmt.Errorf("invalid seed: %w", errors.Join(joined...))
	}

	result := &Result{}

	if err := a.applyMenus(ctx, s.Menus, result); err != nil {
		return result, err
	}
	if err := a.applyDepts(ctx, s.Depts, result); err != nil {
		return result, err
	}

	roleIDs, err := a.applyRoles(ctx, s.Roles, result)
	if err != nil {
		return result, err
	}
	if err := a.applyUsers(ctx, s.Users, roleIDs, result); err != nil {
		return result, err
	}

	a.logger.WithFields(map[string]interface{}{
		"menus":       result.MenusCreated,
		"depts":       result.DeptsCreated,
		"roles":       result.RolesCreated,
		"users":       result.UsersCreated,
		"assignments": result.Assignments,
	}).Info("seed applied")

	return result, nil
}

func (a *Applier) applyMenus(ctx context.Context, menus []Menu, result *Result) error {
	if len(menus) == 0 {
		return nil
	}
	existing, err := a.resources.ListMenus(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		a.logger.Infof("menus table has %d rows, skipping seeded menus", len(existing))
		return nil
	}

	var create func(parentID int64, menus []Menu) error
	create = func(parentID int64, menus []Menu) error {
		for i, m := range menus {
			menuType, _ := ParseMenuType(m.Type, len(m.Children) > 0)
			sortOrder := m.SortOrder
			if sortOrder == 0 {
				sortOrder = i + 1
			}
			node := &resource.Menu{
				ParentID:  parentID,
				Type:      menuType,
				Name:      m.Name,
				Path:      m.Path,
				Component: m.Component,
				PermKey:   m.PermKey,
				Icon:      m.Icon,
				SortOrder: sortOrder,
				Visible:   !m.Hidden,
				Status:    resource.StatusEnabled,
			}
			if err := a.resources.CreateMenu(ctx, node); err != nil {
				return fmt.Errorf("menu %q: %w", m.Name, err)
			}
			result.MenusCreated++
			if err := create(node.ID, m.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return create(0, menus)
}

func (a *Applier) applyDepts(ctx context.Context, depts []Dept, result *Result) error {
	if len(depts) == 0 {
		return nil
	}
	existing, err := a.resources.ListDepts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		a.logger.Infof("departments table has %d rows, skipping seeded departments", len(existing))
		return nil
	}

	var create func(parentID int64, depts []Dept) error
	create = func(parentID int64, depts []Dept) error {
		for i, d := range depts {
			sortOrder := d.SortOrder
			if sortOrder == 0 {
				sortOrder = i + 1
			}
			node := &resource.Dept{
				ParentID:  parentID,
				Name:      d.Name,
				Code:      d.Code,
				Leader:    d.Leader,
				Phone:     d.Phone,
				Email:     d.Email,
				SortOrder: sortOrder,
				Status:    resource.StatusEnabled,
			}
			if err := a.resources.CreateDept(ctx, node); err != nil {
				return fmt.Errorf("department %q: %w", d.Name, err)
			}
			result.DeptsCreated++
			if err := create(node.ID, d.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return create(0, depts)
}

// applyRoles creates missing roles with their menu grants and returns the
// id of every seeded role code.
func (a *Applier) applyRoles(ctx context.Context, roles []Role, result *Result) (map[string]int64, error) {
	ids := make(map[string]int64, len(roles))
	if len(roles) == 0 {
		return ids, nil
	}

	existing, err := a.roles.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		ids[r.Code] = r.ID
	}

	menus, err := a.resources.ListMenus(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range roles {
		if _, ok := ids[r.Code]; ok {
			continue
		}

		menuIDs, err := resolveMenus(menus, r.Menus)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", r.Code, err)
		}

		status := resource.StatusEnabled
		if r.Disabled {
			status = resource.StatusDisabled
		}
		role := &rbac.Role{
			Code:        r.Code,
			Name:        r.Name,
			Description: r.Description,
			SortOrder:   r.SortOrder,
			Status:      status,
		}
		if err := a.roles.CreateRole(ctx, role); err != nil {
			return nil, fmt.Errorf("role %q: %w", r.Code, err)
		}
		if err := a.roles.SetRoleMenus(ctx, role.ID, menuIDs); err != nil {
			return nil, fmt.Errorf("role %q: %w", r.Code, err)
		}
		ids[r.Code] = role.ID
		result.RolesCreated++
	}
	return ids, nil
}

// resolveMenus maps permission keys or menu names onto menu ids
func resolveMenus(menus []resource.Menu, refs []string) ([]int64, error) {
	var ids []int64
	for _, ref := range refs {
		if ref == GrantAll {
			ids = ids[:0]
			for _, m := range menus {
				ids = append(ids, m.ID)
			}
			return ids, nil
		}
	}

	for _, ref := range refs {
		found := false
		for _, m := range menus {
			if m.PermKey == ref || m.Name == ref {
				ids = append(ids, m.ID)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown menu %q", ref)
		}
	}
	return ids, nil
}

func (a *Applier) applyUsers(ctx context.Context, users []User, roleIDs map[string]int64, result *Result) error {
	for _, u := range users {
		user, err := a.users.GetUserByUsername(ctx, u.Username)
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			status := resource.StatusEnabled
			if u.Disabled {
				status = resource.StatusDisabled
			}
			user = &auth.User{
				Username: u.Username,
				Nickname: u.Nickname,
				Email:    u.Email,
				Status:   status,
			}
			if err := a.users.CreateUser(ctx, user, u.Password); err != nil {
				return fmt.Errorf("user %q: %w", u.Username, err)
			}
			result.UsersCreated++
		case err != nil:
			return fmt.Errorf("user %q: %w", u.Username, err)
		}

		for _, code := range u.Roles {
			if err := a.roles.AssignRole(ctx, user.ID, roleIDs[code]); err != nil {
				return fmt.Errorf("user %q: %w", u.Username, err)
			}
			result.Assignments++
		}
	}
	return nil
}
