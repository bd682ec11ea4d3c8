package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store handles database operations for roles and their assignments.
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RoleIDsForUser returns the ids of the roles assigned to a user.
func (s *Store) RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx, "SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles for user: %w", err)
	}
	return ids, nil
}

// MenuIDsForRole returns the ids of the menus granted to a role.
func (s *Store) MenuIDsForRole(ctx context.Context, roleID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx, "SELECT menu_id FROM role_menus WHERE role_id = $1 ORDER BY menu_id", roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get menus for role: %w", err)
	}
	return ids, nil
}

// UserIDsForRole returns the ids of the users holding a role.
func (s *Store) UserIDsForRole(ctx context.Context, roleID int64) ([]int64, error) {
	ids, err := s.queryIDs(ctx, "SELECT user_id FROM user_roles WHERE role_id = $1 ORDER BY user_id", roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for role: %w", err)
	}
	return ids, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, arg int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const roleColumns = "id, code, name, description, status, sort_order, created_at, updated_at"

func scanRole(scanner interface{ Scan(...interface{}) error }) (*Role, error) {
	var role Role
	var description sql.NullString
	err := scanner.Scan(
		&role.ID, &role.Code, &role.Name, &description,
		&role.Status, &role.SortOrder, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	role.Description = description.String
	return &role, nil
}

// GetRole retrieves a role by ID.
func (s *Store) GetRole(ctx context.Context, id int64) (*Role, error) {
	role, err := scanRole(s.db.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// ListRoles returns every role ordered by sort order.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// CreateRole inserts a new role.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO roles (code, name, description, status, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, role.Code, role.Name, role.Description, role.Status, role.SortOrder, now, now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// UpdateRoleStatus enables or disables a role.
func (s *Store) UpdateRoleStatus(ctx context.Context, id int64, active bool) error {
	status := 0
	if active {
		status = 1
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE roles SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update role status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// AssignRole grants a role to a user. Assigning twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RevokeRole removes a role from a user.
func (s *Store) RevokeRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2", userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// SetRoleMenus replaces the menus granted to a role.
func (s *Store) SetRoleMenus(ctx context.Context, roleID int64, menuIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_menus WHERE role_id = $1", roleID); err != nil {
		return fmt.Errorf("failed to clear role menus: %w", err)
	}

	seen := make(map[int64]bool, len(menuIDs))
	for _, menuID := range menuIDs {
		if seen[menuID] {
			continue
		}
		seen[menuID] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO role_menus (role_id, menu_id) VALUES ($1, $2)", roleID, menuID,
		); err != nil {
			return fmt.Errorf("failed to grant menu %d: %w", menuID, err)
		}
	}

	return tx.Commit()
}
