package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
)

const (
	validToken   = "valid-access-token"
	limitedToken = "limited-access-token"
)

// adminKeys are every permission key checked on admin routes
var adminKeys = []string{
	"dept:add", "dept:delete", "dept:edit", "dept:list", "dept:query",
	"menu:add", "menu:delete", "menu:edit", "menu:list", "menu:query",
	"role:add", "role:assign", "role:edit", "role:list", "role:query",
	"user:assign",
}

// fakeSession accepts validToken for user 7 and records calls
type fakeSession struct {
	mu sync.Mutex

	loginResult *auth.LoginResult
	loginErr    error
	loginCalls  int

	refreshResult *auth.RefreshResult
	refreshErr    error

	logoutUser  int64
	logoutToken string
	logoutCalls int
	logoutErr   error

	permissions []string
	forest      []*hierarchy.Tree[resource.Menu]
	resolveErr  error
}

func (f *fakeSession) Login(_ context.Context, username, password string) (*auth.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginResult, f.loginErr
}

func (f *fakeSession) RefreshAccessToken(context.Context, string) (*auth.RefreshResult, error) {
	return f.refreshResult, f.refreshErr
}

func (f *fakeSession) Logout(_ context.Context, userID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.logoutUser = userID
	f.logoutToken = token
	return f.logoutErr
}

func (f *fakeSession) ResolvePermissions(context.Context, int64) ([]string, error) {
	return f.permissions, f.resolveErr
}

func (f *fakeSession) MenuTree(context.Context, int64) ([]*hierarchy.Tree[resource.Menu], error) {
	return f.forest, f.resolveErr
}

func (f *fakeSession) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	switch token {
	case validToken:
		return &auth.Principal{ID: 7, Username: "alice", Scope: auth.ScopeUser}, nil
	case limitedToken:
		return &auth.Principal{ID: 8, Username: "bob", Scope: auth.ScopeUser}, nil
	case "revoked":
		return nil, auth.ErrTokenRevoked
	default:
		return nil, auth.ErrTokenInvalid
	}
}

// fakeResolver grants fixed permission keys per user
type fakeResolver struct {
	mu     sync.Mutex
	grants map[int64][]string
}

func (f *fakeResolver) grant(userID int64, keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[userID] = append(f.grants[userID], keys...)
}

func (f *fakeResolver) Resolve(_ context.Context, userID int64) (*rbac.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := append([]string{}, f.grants[userID]...)
	sort.Strings(keys)
	return &rbac.Snapshot{Permissions: keys, Roles: []string{}}, nil
}

func (f *fakeResolver) MenuTree(context.Context, int64) ([]*hierarchy.Tree[resource.Menu], error) {
	return nil, nil
}

// recordingCache records invalidations
type recordingCache struct {
	mu          sync.Mutex
	invalidated []int64
	purges      int
}

func (c *recordingCache) Invalidate(userIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userIDs...)
}

func (c *recordingCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
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

type testServer struct {
	server    *Server
	session   *fakeSession
	resources *resource.Store
	roles     *rbac.Store
	cache     *recordingCache
	perms     *fakeResolver
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := setupTestDB(t)

	ts := &testServer{
		session:   &fakeSession{},
		resources: resource.NewStore(db, 0),
		roles:     rbac.NewStore(db),
		cache:     &recordingCache{},
		perms:     &fakeResolver{grants: map[int64][]string{}},
	}
	ts.perms.grant(7, adminKeys...)
	ts.server = NewServer(Dependencies{
		Session:     ts.session,
		Resources:   ts.resources,
		Roles:       ts.roles,
		Cache:       ts.cache,
		Permissions: ts.perms,
	})
	return ts
}

// do performs a request, authenticated unless token is empty
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, APIPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]interface{}](t, rec)
	msg, _ := body["error"].(string)
	return msg
}

var _ http.Handler = (*Server)(nil)
