package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/bastion/pkg/hierarchy"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	menusTable = "menus"
	deptsTable = "departments"
)

// tableTree adapts one self-referential table to the hierarchy lookups.
// With lock set every parent read takes a row lock for the rest of the
// transaction.
type tableTree struct {
	q     queryer
	table string
	lock  bool
}

func (t tableTree) ParentOf(ctx context.Context, id int64) (int64, bool, error) {
	query := "SELECT parent_id FROM " + t.table + " WHERE id = $1"
	if t.lock {
		query += " FOR UPDATE"
	}
	var parent int64
	err := t.q.QueryRowContext(ctx, query, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return parent, true, nil
}

func (t tableTree) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+t.table+" WHERE parent_id = $1 AND id <> $2", id, id,
	).Scan(&n)
	return n, err
}

// Store persists menus and departments.
type Store struct {
	db       *sql.DB
	maxDepth int
	now      func() time.Time

	// rowLocks is set for Postgres. SQLite has no FOR UPDATE and already
	// serializes writers.
	rowLocks bool
}

// NewStore creates a resource store. maxDepth caps the ancestor walk
// performed when a node is re-parented.
func NewStore(db *sql.DB, maxDepth int) *Store {
	if maxDepth <= 0 {
		maxDepth = hierarchy.DefaultMaxDepth
	}
	_, isPostgres := db.Driver().(*pq.Driver)
	return &Store{
		db:       db,
		maxDepth: maxDepth,
		now:      func() time.Time { return time.Now().UTC() },
		rowLocks: isPostgres,
	}
}

// reparent validates a move and applies update in one transaction. The
// moved row is locked first and the walk locks every ancestor it reads, so
// two crossing moves either see each other or one of them aborts.
func (s *Store) reparent(ctx context.Context, table string, id, parentID int64, update func(tx *sql.Tx) (sql.Result, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tree := tableTree{q: tx, table: table, lock: s.rowLocks}
	if s.rowLocks {
		if _, ok, err := tree.ParentOf(ctx, id); err != nil {
			return err
		} else if !ok {
			return ErrNotFound
		}
	}
	if err := hierarchy.ValidateParent(ctx, tree, id, parentID, s.maxDepth); err != nil {
		return err
	}

	result, err := update(tx)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}

// MenuIndex returns the parent index of all stored menus.
func (s *Store) MenuIndex(ctx context.Context) (hierarchy.ParentIndex, error) {
	menus, err := s.ListMenus(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.IndexOf(menus), nil
}

const menuColumns = `id, parent_id, menu_type, name, path, component, perm_key, icon,
	sort_order, visible, status, created_at, updated_at`

func scanMenu(scanner interface{ Scan(...interface{}) error }) (*Menu, error) {
	var m Menu
	var path, component, permKey, icon sql.NullString
	err := scanner.Scan(
		&m.ID, &m.ParentID, &m.Type, &m.Name, &path, &component, &permKey, &icon,
		&m.SortOrder, &m.Visible, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Path = path.String
	m.Component = component.String
	m.PermKey = permKey.String
	m.Icon = icon.String
	return &m, nil
}

// ListMenus returns every menu ordered by sort order.
func (s *Store) ListMenus(ctx context.Context) ([]Menu, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+menuColumns+" FROM menus ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		menus = append(menus, *m)
	}
	return menus, rows.Err()
}

// GetMenu returns a single menu.
func (s *Store) GetMenu(ctx context.Context, id int64) (*Menu, error) {
	m, err := scanMenu(s.db.QueryRowContext(ctx,
		"SELECT "+menuColumns+" FROM menus WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}
	return m, nil
}

// MenuTree returns all menus as a forest.
func (s *Store) MenuTree(ctx context.Context) ([]*hierarchy.Tree[Menu], error) {
	menus, err := s.ListMenus(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.BuildTree(menus), nil
}

// CreateMenu inserts a menu after checking its parent exists.
func (s *Store) CreateMenu(ctx context.Context, m *Menu) error {
	if err := hierarchy.ValidateCreate(ctx, tableTree{q: s.db, table: menusTable}, m.ParentID); err != nil {
		return err
	}

	now := s.now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO menus (parent_id, menu_type, name, path, component, perm_key, icon,
			sort_order, visible, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, m.ParentID, m.Type, m.Name, m.Path, m.Component, m.PermKey, m.Icon,
		m.SortOrder, m.Visible, m.Status, now, now,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create menu: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// UpdateMenu rewrites a menu. Re-parenting is validated against the stored tree.
func (s *Store) UpdateMenu(ctx context.Context, m *Menu) error {
	m.UpdatedAt = s.now()
	return s.reparent(ctx, menusTable, m.ID, m.ParentID, func(tx *sql.Tx) (sql.Result, error) {
		result, err := tx.ExecContext(ctx, `
			UPDATE menus
			SET parent_id = $1, menu_type = $2, name = $3, path = $4, component = $5,
				perm_key = $6, icon = $7, sort_order = $8, visible = $9, status = $10, updated_at = $11
			WHERE id = $12
		`, m.ParentID, m.Type, m.Name, m.Path, m.Component, m.PermKey, m.Icon,
			m.SortOrder, m.Visible, m.Status, m.UpdatedAt, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update menu: %w", err)
		}
		return result, nil
	})
}

// DeleteMenu removes a childless menu and its role assignments.
func (s *Store) DeleteMenu(ctx context.Context, id int64) error {
	return s.BatchDeleteMenus(ctx, []int64{id})
}

// BatchDeleteMenus removes a set of menus in one transaction. A menu may be
// deleted together with its children; any child left outside the batch
// rejects the whole batch.
func (s *Store) BatchDeleteMenus(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	batch := make(map[int64]bool, len(ids))
	for _, id := range ids {
		batch[id] = true
	}

	for _, id := range ids {
		rows, err := tx.QueryContext(ctx, "SELECT id FROM menus WHERE parent_id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to list children: %w", err)
		}
		var outside int
		for rows.Next() {
			var child int64
			if err := rows.Scan(&child); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan child: %w", err)
			}
			if !batch[child] {
				outside++
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to list children: %w", err)
		}
		rows.Close()
		if outside > 0 {
			return fmt.Errorf("%w: %d has %d children", hierarchy.ErrHasChildren, id, outside)
		}
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM role_menus WHERE menu_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete role assignments: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM menus WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete menu: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return fmt.Errorf("menu %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// BatchUpdateMenuStatus enables or disables a set of menus.
func (s *Store) BatchUpdateMenuStatus(ctx context.Context, ids []int64, status Status) error {
	return s.batchStatus(ctx, menusTable, ids, status)
}

const deptColumns = `id, parent_id, name, code, leader, phone, email, sort_order, status,
	created_at, updated_at`

func scanDept(scanner interface{ Scan(...interface{}) error }) (*Dept, error) {
	var d Dept
	var code, leader, phone, email sql.NullString
	err := scanner.Scan(
		&d.ID, &d.ParentID, &d.Name, &code, &leader, &phone, &email,
		&d.SortOrder, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Code = code.String
	d.Leader = leader.String
	d.Phone = phone.String
	d.Email = email.String
	return &d, nil
}

// ListDepts returns every department ordered by sort order.
func (s *Store) ListDepts(ctx context.Context) ([]Dept, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+deptColumns+" FROM departments ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var depts []Dept
	for rows.Next() {
		d, err := scanDept(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		depts = append(depts, *d)
	}
	return depts, rows.Err()
}

// GetDept returns a single department.
func (s *Store) GetDept(ctx context.Context, id int64) (*Dept, error) {
	d, err := scanDept(s.db.QueryRowContext(ctx,
		"SELECT "+deptColumns+" FROM departments WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return d, nil
}

// DeptTree returns all departments as a forest.
func (s *Store) DeptTree(ctx context.Context) ([]*hierarchy.Tree[Dept], error) {
	depts, err := s.ListDepts(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.BuildTree(depts), nil
}

// CreateDept inserts a department after checking its parent exists.
func (s *Store) CreateDept(ctx context.Context, d *Dept) error {
	if err := hierarchy.ValidateCreate(ctx, tableTree{q: s.db, table: deptsTable}, d.ParentID); err != nil {
		return err
	}

	now := s.now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO departments (parent_id, name, code, leader, phone, email, sort_order, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, d.ParentID, d.Name, d.Code, d.Leader, d.Phone, d.Email, d.SortOrder, d.Status, now, now,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

// UpdateDept rewrites a department. Re-parenting is validated against the stored tree.
func (s *Store) UpdateDept(ctx context.Context, d *Dept) error {
	d.UpdatedAt = s.now()
	return s.reparent(ctx, deptsTable, d.ID, d.ParentID, func(tx *sql.Tx) (sql.Result, error) {
		result, err := tx.ExecContext(ctx, `
			UPDATE departments
			SET parent_id = $1, name = $2, code = $3, leader = $4, phone = $5, email = $6,
				sort_order = $7, status = $8, updated_at = $9
			WHERE id = $10
		`, d.ParentID, d.Name, d.Code, d.Leader, d.Phone, d.Email, d.SortOrder, d.Status, d.UpdatedAt, d.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update department: %w", err)
		}
		return result, nil
	})
}

// DeleteDept removes a department that has no children.
func (s *Store) DeleteDept(ctx context.Context, id int64) error {
	tree := tableTree{q: s.db, table: deptsTable}
	if _, ok, err := tree.ParentOf(ctx, id); err != nil {
		return fmt.Errorf("failed to get department: %w", err)
	} else if !ok {
		return ErrNotFound
	}
	if err := hierarchy.ValidateDelete(ctx, tree, id); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM departments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	return requireAffected(result)
}

// BatchUpdateDeptStatus enables or disables a set of departments.
func (s *Store) BatchUpdateDeptStatus(ctx context.Context, ids []int64, status Status) error {
	return s.batchStatus(ctx, deptsTable, ids, status)
}

func (s *Store) batchStatus(ctx context.Context, table string, ids []int64, status Status) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET status = $1, updated_at = $2 WHERE id = $3",
			status, now, id,
		); err != nil {
			return fmt.Errorf("failed to update %s status: %w", table, err)
		}
	}
	return tx.Commit()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
