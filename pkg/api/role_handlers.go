package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/bastion/pkg/audit"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// RoleHandlers handles roles, role menus and user role assignments
type RoleHandlers struct {
	store  *rbac.Store
	cache  PermissionCache
	audit  audit.Logger
	logger *observability.Logger
}

// NewRoleHandlers creates a new role handlers instance
func NewRoleHandlers(store *rbac.Store, cache PermissionCache, auditLogger audit.Logger, logger *observability.Logger) *RoleHandlers {
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}
	return &RoleHandlers{store: store, cache: cache, audit: auditLogger, logger: logger}
}

// RegisterRoutes registers role routes
func (h *RoleHandlers) RegisterRoutes(router *mux.Router, require Gate) {
	router.Handle("/roles", require("role:list", h.list)).Methods("GET")
	router.Handle("/roles", require("role:add", h.create)).Methods("POST")
	router.Handle("/roles/{id}", require("role:query", h.get)).Methods("GET")
	router.Handle("/roles/{id}/status", require("role:edit", h.updateStatus)).Methods("PUT")
	router.Handle("/roles/{id}/menus", require("role:query", h.menus)).Methods("GET")
	router.Handle("/roles/{id}/menus", require("role:assign", h.setMenus)).Methods("PUT")
	router.Handle("/users/{userId}/roles/{roleId}", require("user:assign", h.assign)).Methods("PUT")
	router.Handle("/users/{userId}/roles/{roleId}", require("user:assign", h.unassign)).Methods("DELETE")
}

type createRoleRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func (h *RoleHandlers) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if roles == nil {
		roles = []rbac.Role{}
	}
	httputil.WriteSuccess(w, roles)
}

func (h *RoleHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (h *RoleHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	if !httputil.RequireNonEmpty(w, code, "code") || !httputil.RequireNonEmpty(w, name, "name") {
		return
	}

	role := &rbac.Role{
		Code:        code,
		Name:        name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Status:      resource.StatusEnabled,
	}
	if err := h.store.CreateRole(r.Context(), role); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.record(r, audit.EventTypeAuthzRoleChange, role.ID, "role created: "+role.Code)
	httputil.WriteCreated(w, role)
}

type roleStatusRequest struct {
	Active bool `json:"active"`
}

// updateStatus handles PUT /roles/{id}/status. Holders of the role see the
// change on their next resolve.
func (h *RoleHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req roleStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.store.UpdateRoleStatus(r.Context(), id, req.Active); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.invalidateHolders(r, id)
	h.record(r, audit.EventTypeAuthzRoleChange, id, fmt.Sprintf("role active set to %t", req.Active))
	httputil.WriteNoContent(w)
}

func (h *RoleHandlers) menus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetRole(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	menuIDs, err := h.store.MenuIDsForRole(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if menuIDs == nil {
		menuIDs = []int64{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"role_id":  id,
		"menu_ids": menuIDs,
	})
}

type roleMenusRequest struct {
	MenuIDs []int64 `json:"menu_ids"`
}

// setMenus handles PUT /roles/{id}/menus, replacing the granted menu set
func (h *RoleHandlers) setMenus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req roleMenusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if _, err := h.store.GetRole(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.store.SetRoleMenus(r.Context(), id, req.MenuIDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.invalidateHolders(r, id)
	h.record(r, audit.EventTypeAuthzRoleMenuChange, id, fmt.Sprintf("role granted %d menus", len(req.MenuIDs)))
	httputil.WriteNoContent(w)
}

func (h *RoleHandlers) assignmentIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return 0, 0, false
	}
	roleID, ok := httputil.ParsePathInt64OrError(w, r, "roleId")
	if !ok {
		return 0, 0, false
	}
	if _, err := h.store.GetRole(r.Context(), roleID); err != nil {
		writeError(w, r, h.logger, err)
		return 0, 0, false
	}
	return userID, roleID, true
}

// assign handles PUT /users/{userId}/roles/{roleId}
func (h *RoleHandlers) assign(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.assignmentIDs(w, r)
	if !ok {
		return
	}

	if err := h.store.AssignRole(r.Context(), userID, roleID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(userID)
	}
	h.record(r, audit.EventTypeAuthzRoleAssign, roleID, fmt.Sprintf("role assigned to user %d", userID))
	httputil.WriteNoContent(w)
}

// unassign handles DELETE /users/{userId}/roles/{roleId}
func (h *RoleHandlers) unassign(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.assignmentIDs(w, r)
	if !ok {
		return
	}

	if err := h.store.RevokeRole(r.Context(), userID, roleID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(userID)
	}
	h.record(r, audit.EventTypeAuthzRoleUnassign, roleID, fmt.Sprintf("role removed from user %d", userID))
	httputil.WriteNoContent(w)
}

// invalidateHolders drops cached snapshots of every user holding the role.
// When the holders cannot be listed the whole cache is purged instead.
func (h *RoleHandlers) invalidateHolders(r *http.Request, roleID int64) {
	if h.cache == nil {
		return
	}
	userIDs, err := h.store.UserIDsForRole(r.Context(), roleID)
	if err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Warn("failed to list role holders, purging permission cache")
		h.cache.Purge()
		return
	}
	h.cache.Invalidate(userIDs...)
}

func (h *RoleHandlers) record(r *http.Request, eventType audit.EventType, roleID int64, message string) {
	if err := h.audit.LogDataMutation(r.Context(), eventType, audit.ResourceTypeRole, roleID, message); err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Warn("failed to write audit event")
	}
}
