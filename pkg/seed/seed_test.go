package seed

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			nickname TEXT,
			email TEXT,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT,
			status INTEGER NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE user_roles (
			user_id INTEGER NOT NULL,
			role_id INTEGER NOT NULL,
			PRIMARY KEY (user_id, role_id)
		);

		CREATE TABLE menus (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_id INTEGER NOT NULL DEFAULT 0,
			menu_type INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL,
			path TEXT,
			component TEXT,
			perm_key TEXT,
			icon TEXT,
			sort_order INTEGER NOT NULL DEFAULT 0,
			visible BOOLEAN NOT NULL DEFAULT 1,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE departments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_id INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL,
			code TEXT,
			leader TEXT,
			phone TEXT,
			email TEXT,
			sort_order INTEGER NOT NULL DEFAULT 0,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE role_menus (
			role_id INTEGER NOT NULL,
			menu_id INTEGER NOT NULL,
			PRIMARY KEY (role_id, menu_id)
		);
	`)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoad(t *testing.T) {
	s, err := Load("testdata/seed.yaml")
	require.NoError(t, err)

	require.Len(t, s.Menus, 2)
	assert.Equal(t, "System", s.Menus[0].Name)
	require.Len(t, s.Menus[0].Children, 2)
	assert.Equal(t, "system:user:list", s.Menus[0].Children[0].PermKey)
	assert.True(t, s.Menus[1].Hidden)
	require.Len(t, s.Roles, 2)
	assert.Equal(t, []string{"*"}, s.Roles[0].Menus)
	assert.Empty(t, s.Validate())

	_, err = Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("menus: [unterminated"))
	assert.Error(t, err)
}

func TestParseMenuType(t *testing.T) {
	tests := []struct {
		value       string
		hasChildren bool
		want        resource.MenuType
		wantErr     bool
	}{
		{"", true, resource.MenuTypeDirectory, false},
		{"", false, resource.MenuTypeMenu, false},
		{"dir", false, resource.MenuTypeDirectory, false},
		{"Menu", false, resource.MenuTypeMenu, false},
		{"button", false, resource.MenuTypeButton, false},
		{"widget", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseMenuType(tt.value, tt.hasChildren)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	s := &Seed{
		Menus: []Menu{{Name: "", Type: "widget"}},
		Depts: []Dept{{Name: "HQ", Children: []Dept{{Name: " "}}}},
		Roles: []Role{{Code: "admin", Name: "Admin"}, {Code: "admin"}},
		Users: []User{
			{Username: "alice", Password: "x", Roles: []string{"ghost"}},
			{Username: "alice"},
		},
	}

	fields := make(map[string]bool)
	for _, e := range s.Validate() {
		fields[e.Field] = true
		assert.NotEmpty(t, e.Error())
	}

	for _, field := range []string{
		"menus[0].name",
		"menus[0].type",
		"depts[0].children[0].name",
		"roles[1].code",
		"roles[1].name",
		"users[0].roles",
		"users[1].username",
		"users[1].password",
	} {
		assert.True(t, fields[field], "expected error for %s", field)
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s, err := Load("testdata/seed.yaml")
	require.NoError(t, err)

	applier := NewApplier(db, nil)
	result, err := applier.Apply(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, &Result{
		MenusCreated: 6,
		DeptsCreated: 3,
		RolesCreated: 2,
		UsersCreated: 2,
		Assignments:  2,
	}, result)

	resources := resource.NewStore(db, 0)
	forest, err := resources.MenuTree(ctx)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, resource.MenuTypeDirectory, forest[0].Item.Type)
	assert.False(t, forest[1].Item.Visible)

	users := auth.NewSQLUserStore(db)
	admin, err := users.VerifyCredentials(ctx, "admin", "admin-password")
	require.NoError(t, err)
	olivia, err := users.GetUserByUsername(ctx, "olivia")
	require.NoError(t, err)

	rbacStore := rbac.NewStore(db)
	resolver := rbac.NewResolver(rbacStore, resources)

	snap, err := resolver.Resolve(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit:view", "system:menu:list", "system:user:add", "system:user:delete", "system:user:list"}, snap.Permissions)
	assert.Equal(t, []string{"admin"}, snap.Roles)

	snap, err = resolver.Resolve(ctx, olivia.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"system:user:add", "system:user:list"}, snap.Permissions)
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s, err := Load("testdata/seed.yaml")
	require.NoError(t, err)

	applier := NewApplier(db, nil)
	_, err = applier.Apply(ctx, s)
	require.NoError(t, err)

	result, err := applier.Apply(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, result.MenusCreated)
	assert.Zero(t, result.DeptsCreated)
	assert.Zero(t, result.RolesCreated)
	assert.Zero(t, result.UsersCreated)
	assert.Equal(t, 2, result.Assignments)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM user_roles").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestApply_RejectsInvalidSeed(t *testing.T) {
	applier := NewApplier(setupTestDB(t), nil)

	_, err := applier.Apply(context.Background(), &Seed{Users: []User{{Username: "x"}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")
}

func TestApply_UnknownMenuReference(t *testing.T) {
	applier := NewApplier(setupTestDB(t), nil)

	_, err := applier.Apply(context.Background(), &Seed{
		Roles: []Role{{Code: "viewer", Name: "Viewer", Menus: []string{"nowhere"}}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown menu "nowhere"`)
}
