package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/resource"
)

func createMenu(t *testing.T, ts *testServer, parentID int64, name, permKey string) resource.Menu {
	t.Helper()
	rec := ts.do(t, "POST", "/menus", validToken, map[string]interface{}{
		"parent_id": parentID,
		"type":      resource.MenuTypeMenu,
		"name":      name,
		"perm_key":  permKey,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[resource.Menu](t, rec)
}

func TestMenus_CreateAndList(t *testing.T) {
	ts := newTestServer(t)

	system := createMenu(t, ts, 0, "System", "")
	users := createMenu(t, ts, system.ID, "Users", "system:user:list")
	assert.True(t, system.Visible)
	assert.Equal(t, resource.StatusEnabled, users.Status)
	assert.Equal(t, 2, ts.cache.purges)

	rec := ts.do(t, "GET", "/menus", validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	forest := decode[[]*hierarchy.Tree[resource.Menu]](t, rec)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, users.ID, forest[0].Children[0].Item.ID)

	rec = ts.do(t, "GET", "/menus?flat=true", validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]resource.Menu](t, rec), 2)

	rec = ts.do(t, "GET", fmt.Sprintf("/menus/%d", users.ID), validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "system:user:list", decode[resource.Menu](t, rec).PermKey)
}

func TestMenus_CreateValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantError  string
	}{
		{"missing name", map[string]interface{}{"type": 1}, http.StatusBadRequest, "name is required"},
		{"bad type", map[string]interface{}{"name": "x", "type": 9}, http.StatusBadRequest, "invalid menu type: 9"},
		{"unknown parent", map[string]interface{}{"name": "x", "parent_id": 42}, http.StatusBadRequest, hierarchy.ErrParentNotFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, "POST", "/menus", validToken, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorMessage(t, rec))
		})
	}
}

func TestMenus_UpdateRejectsBadParents(t *testing.T) {
	ts := newTestServer(t)
	root := createMenu(t, ts, 0, "Root", "")
	child := createMenu(t, ts, root.ID, "Child", "")
	grandchild := createMenu(t, ts, child.ID, "Grandchild", "")

	rec := ts.do(t, "PUT", fmt.Sprintf("/menus/%d", root.ID), validToken, map[string]interface{}{
		"name": "Root", "parent_id": root.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, hierarchy.ErrSelfParent.Error(), errorMessage(t, rec))

	rec = ts.do(t, "PUT", fmt.Sprintf("/menus/%d", root.ID), validToken, map[string]interface{}{
		"name": "Root", "parent_id": grandchild.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, hierarchy.ErrCycle.Error(), errorMessage(t, rec))

	stored, err := ts.resources.GetMenu(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.ParentID)

	rec = ts.do(t, "PUT", fmt.Sprintf("/menus/%d", grandchild.ID), validToken, map[string]interface{}{
		"name": "Moved", "parent_id": root.ID, "visible": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[resource.Menu](t, rec)
	assert.Equal(t, root.ID, moved.ParentID)
	assert.False(t, moved.Visible)
}

func TestMenus_UpdateUnknown(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "PUT", "/menus/99", validToken, map[string]interface{}{"name": "x"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMenus_Delete(t *testing.T) {
	ts := newTestServer(t)
	root := createMenu(t, ts, 0, "Root", "")
	child := createMenu(t, ts, root.ID, "Child", "")

	rec := ts.do(t, "DELETE", fmt.Sprintf("/menus/%d", root.ID), validToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, hierarchy.ErrHasChildren.Error(), errorMessage(t, rec))

	rec = ts.do(t, "DELETE", fmt.Sprintf("/menus/%d", child.ID), validToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, "DELETE", fmt.Sprintf("/menus/%d", child.ID), validToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, "GET", "/menus/abc", validToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMenus_BatchOperations(t *testing.T) {
	ts := newTestServer(t)
	root := createMenu(t, ts, 0, "Root", "")
	child := createMenu(t, ts, root.ID, "Child", "")
	other := createMenu(t, ts, 0, "Other", "")

	rec := ts.do(t, "POST", "/menus/batch-status", validToken, map[string]interface{}{
		"ids": []int64{root.ID, other.ID}, "status": 0,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	stored, err := ts.resources.GetMenu(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusDisabled, stored.Status)

	rec = ts.do(t, "POST", "/menus/batch-status", validToken, map[string]interface{}{
		"ids": []int64{root.ID}, "status": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/menus/batch-delete", validToken, map[string]interface{}{"ids": []int64{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/menus/batch-delete", validToken, map[string]interface{}{"ids": []int64{root.ID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/menus/batch-delete", validToken, map[string]interface{}{"ids": []int64{root.ID, child.ID}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	menus, err := ts.resources.ListMenus(context.Background())
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, other.ID, menus[0].ID)
}
