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

// DeptHandlers handles department management requests
type DeptHandlers struct {
	store  *resource.Store
	audit  audit.Logger
	logger *observability.Logger
}

// NewDeptHandlers creates a new department handlers instance
func NewDeptHandlers(store *resource.Store, auditLogger audit.Logger, logger *observability.Logger) *DeptHandlers {
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}
	return &DeptHandlers{store: store, audit: auditLogger, logger: logger}
}

// RegisterRoutes registers department routes
func (h *DeptHandlers) RegisterRoutes(router *mux.Router, require Gate) {
	router.Handle("/depts", require("dept:list", h.list)).Methods("GET")
	router.Handle("/depts", require("dept:add", h.create)).Methods("POST")
	router.Handle("/depts/batch-status", require("dept:edit", h.batchStatus)).Methods("POST")
	router.Handle("/depts/{id}", require("dept:query", h.get)).Methods("GET")
	router.Handle("/depts/{id}", require("dept:edit", h.update)).Methods("PUT")
	router.Handle("/depts/{id}", require("dept:delete", h.delete)).Methods("DELETE")
}

type deptRequest struct {
	ParentID  int64            `json:"parent_id"`
	Name      string           `json:"name"`
	Code      string           `json:"code"`
	Leader    string           `json:"leader"`
	Phone     string           `json:"phone"`
	Email     string           `json:"email"`
	SortOrder int              `json:"sort_order"`
	Status    *resource.Status `json:"status"`
}

func (req *deptRequest) dept(id int64) (*resource.Dept, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.ParentID < 0 {
		return nil, fmt.Errorf("invalid parent_id: %d", req.ParentID)
	}

	d := &resource.Dept{
		ID:        id,
		ParentID:  req.ParentID,
		Name:      name,
		Code:      strings.TrimSpace(req.Code),
		Leader:    req.Leader,
		Phone:     req.Phone,
		Email:     req.Email,
		SortOrder: req.SortOrder,
		Status:    resource.StatusEnabled,
	}
	if req.Status != nil {
		d.Status = *req.Status
	}
	return d, nil
}

// list handles GET /depts. The forest is returned unless ?flat=true.
func (h *DeptHandlers) list(w http.ResponseWriter, r *http.Request) {
	flat, err := httputil.ParseQueryBool(r, "flat", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if flat {
		depts, err := h.store.ListDepts(r.Context())
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		httputil.WriteSuccess(w, depts)
		return
	}

	forest, err := h.store.DeptTree(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, forest)
}

func (h *DeptHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	d, err := h.store.GetDept(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (h *DeptHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req deptRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	d, err := req.dept(0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.CreateDept(r.Context(), d); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.record(r, audit.EventTypeDataDeptCreate, d.ID, "department created: "+d.Name)
	httputil.WriteCreated(w, d)
}

func (h *DeptHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req deptRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	d, err := req.dept(id)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.UpdateDept(r.Context(), d); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.record(r, audit.EventTypeDataDeptUpdate, d.ID, "department updated: "+d.Name)
	httputil.WriteSuccess(w, d)
}

func (h *DeptHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteDept(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.record(r, audit.EventTypeDataDeptDelete, id, "department deleted")
	httputil.WriteNoContent(w)
}

func (h *DeptHandlers) batchStatus(w http.ResponseWriter, r *http.Request) {
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

	if err := h.store.BatchUpdateDeptStatus(r.Context(), req.IDs, req.Status); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	for _, id := range req.IDs {
		h.record(r, audit.EventTypeDataDeptUpdate, id, fmt.Sprintf("department status set to %d", req.Status))
	}
	httputil.WriteNoContent(w)
}

func (h *DeptHandlers) record(r *http.Request, eventType audit.EventType, id int64, message string) {
	if err := h.audit.LogDataMutation(r.Context(), eventType, audit.ResourceTypeDept, id, message); err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Warn("failed to write audit event")
	}
}
