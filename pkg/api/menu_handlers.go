package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/bastion/pkg/audit"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// PermissionCache is the part of the cached resolver that handlers flush
// after changing menus, roles or assignments.
type PermissionCache interface {
	Invalidate(userIDs ...int64)
	Purge()
}

// MenuHandlers handles menu management requests
type MenuHandlers struct {
	store  *resource.Store
	cache  PermissionCache
	audit  audit.Logger
	logger *observability.Logger
}

// NewMenuHandlers creates a new menu handlers instance
func NewMenuHandlers(store *resource.Store, cache PermissionCache, auditLogger audit.Logger, logger *observability.Logger) *MenuHandlers {
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}
	return &MenuHandlers{store: store, cache: cache, audit: auditLogger, logger: logger}
}

// RegisterRoutes registers menu routes
func (h *MenuHandlers) RegisterRoutes(router *mux.Router, require Gate) {
	router.Handle("/menus", require("menu:list", h.list)).Methods("GET")
	router.Handle("/menus", require("menu:add", h.create)).Methods("POST")
	router.Handle("/menus/batch-delete", require("menu:delete", h.batchDelete)).Methods("POST")
	router.Handle("/menus/batch-status", require("menu:edit", h.batchStatus)).Methods("POST")
	router.Handle("/menus/{id}", require("menu:query", h.get)).Methods("GET")
	router.Handle("/menus/{id}", require("menu:edit", h.update)).Methods("PUT")
	router.Handle("/menus/{id}", require("menu:delete", h.delete)).Methods("DELETE")
}

type menuRequest struct {
	ParentID  int64             `json:"parent_id"`
	Type      resource.MenuType `json:"type"`
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	Component string            `json:"component"`
	PermKey   string            `json:"perm_key"`
	Icon      string            `json:"icon"`
	SortOrder int               `json:"sort_order"`
	Visible   *bool             `json:"visible"`
	Status    *resource.Status  `json:"status"`
}

func (req *menuRequest) menu(id int64) (*resource.Menu, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Type < resource.MenuTypeDirectory || req.Type > resource.MenuTypeButton {
		return nil, fmt.Errorf("invalid menu type: %d", req.Type)
	}
	if req.ParentID < 0 {
		return nil, fmt.Errorf("invalid parent_id: %d", req.ParentID)
	}

	m := &resource.Menu{
		ID:        id,
		ParentID:  req.ParentID,
		Type:      req.Type,
		Name:      name,
		Path:      req.Path,
		Component: req.Component,
		PermKey:   strings.TrimSpace(req.PermKey),
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		Visible:   true,
		Status:    resource.StatusEnabled,
	}
	if req.Visible != nil {
		m.Visible = *req.Visible
	}
	if req.Status != nil {
		m.Status = *req.Status
	}
	return m, nil
}

// list handles GET /menus. The forest is returned unless ?flat=true.
func (h *MenuHandlers) list(w http.ResponseWriter, r *http.Request) {
	flat, err := httputil.ParseQueryBool(r, "flat", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if flat {
		menus, err := h.store.ListMenus(r.Context())
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		httputil.WriteSuccess(w, menus)
		return
	}

	forest, err := h.store.MenuTree(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, forest)
}

// get handles GET /menus/{id}
func (h *MenuHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	m, err := h.store.GetMenu(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, m)
}

// create handles POST /menus
func (h *MenuHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	m, err := req.menu(0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.CreateMenu(r.Context(), m); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.changed(r, audit.EventTypeDataMenuCreate, m.ID, "menu created: "+m.Name)
	httputil.WriteCreated(w, m)
}

// update handles PUT /menus/{id}
func (h *MenuHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req menuRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	m, err := req.menu(id)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.UpdateMenu(r.Context(), m); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.changed(r, audit.EventTypeDataMenuUpdate, m.ID, "menu updated: "+m.Name)
	httputil.WriteSuccess(w, m)
}

// delete handles DELETE /menus/{id}
func (h *MenuHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteMenu(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.changed(r, audit.EventTypeDataMenuDelete, id, "menu deleted")
	httputil.WriteNoContent(w)
}

type idsRequest struct {
	IDs []int64 `json:"ids"`
}

type statusRequest struct {
	IDs    []int64         `json:"ids"`
	Status resource.Status `json:"status"`
}

func validStatus(s resource.Status) bool {
	return s == resource.StatusEnabled || s == resource.StatusDisabled
}

// batchDelete handles POST /menus/batch-delete
func (h *MenuHandlers) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		httputil.WriteBadRequest(w, "ids is required")
		return
	}

	if err := h.store.BatchDeleteMenus(r.Context(), req.IDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	for _, id := range req.IDs {
		h.changed(r, audit.EventTypeDataMenuDelete, id, "menu deleted in batch")
	}
	httputil.WriteNoContent(w)
}

// batchStatus handles POST /menus/batch-status
func (h *MenuHandlers) batchStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		httputil.WriteBadRequest(w, "ids is required")
		return
	}
	if !validStatus(req.Status) {
		httputil.WriteBadRequest(w, fmt.Sprintf("invalid status: %d", req.Status))
		return
	}

	if err := h.store.BatchUpdateMenuStatus(r.Context(), req.IDs, req.Status); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	for _, id := range req.IDs {
		h.changed(r, audit.EventTypeDataMenuUpdate, id, fmt.Sprintf("menu status set to %d", req.Status))
	}
	httputil.WriteNoContent(w)
}

// changed flushes every cached snapshot and records the mutation. Menu
// changes can alter the permissions of any user, so the whole cache goes.
func (h *MenuHandlers) changed(r *http.Request, eventType audit.EventType, id int64, message string) {
	if h.cache != nil {
		h.cache.Purge()
	}
	if err := h.audit.LogDataMutation(r.Context(), eventType, audit.ResourceTypeMenu, id, message); err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Warn("failed to write audit event")
	}
}
