package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/resource"
)

type fakeAssignments struct {
	userRoles map[int64][]int64
	roleMenus map[int64][]int64
	roles     map[int64]*Role
	err       error
}

func (f *fakeAssignments) RoleIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.userRoles[userID], nil
}

func (f *fakeAssignments) MenuIDsForRole(_ context.Context, roleID int64) ([]int64, error) {
	return f.roleMenus[roleID], nil
}

func (f *fakeAssignments) GetRole(_ context.Context, id int64) (*Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

type fakeMenus struct {
	menus []resource.Menu
	calls int
}

func (f *fakeMenus) ListMenus(context.Context) ([]resource.Menu, error) {
	f.calls++
	return f.menus, nil
}

func navMenu(id, parent int64, perm string) resource.Menu {
	return resource.Menu{ID: id, ParentID: parent, Name: perm, PermKey: perm, Visible: true, Status: resource.StatusEnabled}
}

func newFixture() (*fakeAssignments, *fakeMenus) {
	assignments := &fakeAssignments{
		userRoles: map[int64][]int64{
			1: {10, 20},
			2: {},
			3: {30},
		},
		roleMenus: map[int64][]int64{
			10: {101},
			20: {102, 101},
			30: {103},
		},
		roles: map[int64]*Role{
			10: {ID: 10, Code: "editor", Status: resource.StatusEnabled},
			20: {ID: 20, Code: "reviewer", Status: resource.StatusEnabled},
			30: {ID: 30, Code: "retired", Status: resource.StatusDisabled},
		},
	}
	menus := &fakeMenus{menus: []resource.Menu{
		navMenu(100, hierarchy.RootID, ""),
		navMenu(101, 100, "user:add"),
		navMenu(102, 100, "user:edit"),
		navMenu(103, 100, "   "),
	}}
	return assignments, menus
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unions permissions across roles", func(t *testing.T) {
		assignments, menus := newFixture()
		snap, err := NewResolver(assignments, menus).Resolve(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, []string{"user:add", "user:edit"}, snap.Permissions)
		assert.Equal(t, []string{"editor", "reviewer"}, snap.Roles)
		assert.True(t, snap.Has("user:add"))
		assert.False(t, snap.Has("user:delete"))
	})

	t.Run("no roles resolves to empty sets", func(t *testing.T) {
		assignments, menus := newFixture()
		snap, err := NewResolver(assignments, menus).Resolve(ctx, 2)

		require.NoError(t, err)
		assert.Empty(t, snap.Permissions)
		assert.Empty(t, snap.Roles)
		assert.NotNil(t, snap.Permissions)
		assert.Zero(t, menus.calls)
	})

	t.Run("unknown user resolves to empty sets", func(t *testing.T) {
		assignments, menus := newFixture()
		snap, err := NewResolver(assignments, menus).Resolve(ctx, 404)

		require.NoError(t, err)
		assert.Empty(t, snap.Permissions)
	})

	t.Run("blank keys and inactive roles are dropped", func(t *testing.T) {
		assignments, menus := newFixture()
		snap, err := NewResolver(assignments, menus).Resolve(ctx, 3)

		require.NoError(t, err)
		assert.Empty(t, snap.Permissions)
		assert.Empty(t, snap.Roles)
	})

	t.Run("dangling role assignment is skipped", func(t *testing.T) {
		assignments, menus := newFixture()
		assignments.userRoles[4] = []int64{10, 99}
		snap, err := NewResolver(assignments, menus).Resolve(ctx, 4)

		require.NoError(t, err)
		assert.Equal(t, []string{"editor"}, snap.Roles)
	})

	t.Run("store error propagates", func(t *testing.T) {
		assignments, menus := newFixture()
		assignments.err = errors.New("db down")
		_, err := NewResolver(assignments, menus).Resolve(ctx, 1)

		assert.EqualError(t, err, "db down")
	})
}

func TestResolver_MenuTree(t *testing.T) {
	ctx := context.Background()

	t.Run("includes unassigned ancestors", func(t *testing.T) {
		assignments := &fakeAssignments{
			userRoles: map[int64][]int64{1: {10}},
			roleMenus: map[int64][]int64{10: {2}},
			roles:     map[int64]*Role{10: {ID: 10, Code: "ops", Status: resource.StatusEnabled}},
		}
		menus := &fakeMenus{menus: []resource.Menu{
			navMenu(1, hierarchy.RootID, ""),
			navMenu(2, 1, "x"),
			navMenu(3, 1, "y"),
		}}
		r := NewResolver(assignments, menus)

		forest, err := r.MenuTree(ctx, 1)
		require.NoError(t, err)
		require.Len(t, forest, 1)
		assert.Equal(t, int64(1), forest[0].Item.ID)
		require.Len(t, forest[0].Children, 1)
		assert.Equal(t, int64(2), forest[0].Children[0].Item.ID)

		snap, err := r.Resolve(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, snap.Permissions)
	})

	t.Run("filters hidden and disabled nodes", func(t *testing.T) {
		hidden := navMenu(3, 1, "hidden")
		hidden.Visible = false
		disabled := navMenu(4, 1, "disabled")
		disabled.Status = resource.StatusDisabled
		assignments := &fakeAssignments{
			userRoles: map[int64][]int64{1: {10}},
			roleMenus: map[int64][]int64{10: {2, 3, 4}},
			roles:     map[int64]*Role{},
		}
		menus := &fakeMenus{menus: []resource.Menu{
			navMenu(1, hierarchy.RootID, ""),
			navMenu(2, 1, "shown"),
			hidden,
			disabled,
		}}

		forest, err := NewResolver(assignments, menus).MenuTree(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, hierarchy.Count(forest))
	})

	t.Run("no roles yields empty tree", func(t *testing.T) {
		assignments, menus := newFixture()
		forest, err := NewResolver(assignments, menus).MenuTree(ctx, 2)

		require.NoError(t, err)
		assert.Empty(t, forest)
	})
}

func TestCachedResolver(t *testing.T) {
	ctx := context.Background()
	assignments, menus := newFixture()
	cached := NewCachedResolver(NewResolver(assignments, menus), 10, time.Minute)

	first, err := cached.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, menus.calls)

	second, err := cached.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, menus.calls)
	assert.Equal(t, 1, cached.Len())

	cached.Invalidate(1)
	_, err = cached.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, menus.calls)

	cached.Purge()
	assert.Zero(t, cached.Len())

	_, err = cached.MenuTree(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, menus.calls)
}

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func BenchmarkResolve(b *testing.B) {
	ctx := context.Background()
	assignments, menus := newFixture()

	b.Run("uncached", func(b *testing.B) {
		r := NewResolver(assignments, menus)
		for i := 0; i < b.N; i++ {
			if _, err := r.Resolve(ctx, 1); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("cached", func(b *testing.B) {
		r := NewCachedResolver(NewResolver(assignments, menus), 16, time.Minute)
		for i := 0; i < b.N; i++ {
			if _, err := r.Resolve(ctx, 1); err != nil {
				b.Fatal(err)
			}
		}
	})
}
