package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin        EventType = "auth.login"
	EventTypeAuthLogout       EventType = "auth.logout"
	EventTypeAuthLoginFailed  EventType = "auth.login_failed"
	EventTypeAuthTokenRefresh EventType = "auth.token_refresh"
	EventTypeAuthTokenRevoke  EventType = "auth.token_revoke"
	EventTypeAuthRateLimited  EventType = "auth.rate_limited"

	// Authorization events
	EventTypeAuthzRoleChange     EventType = "authz.role_change"
	EventTypeAuthzRoleAssign     EventType = "authz.role_assign"
	EventTypeAuthzRoleUnassign   EventType = "authz.role_unassign"
	EventTypeAuthzRoleMenuChange EventType = "authz.role_menu_change"

	// Data mutation events
	EventTypeDataMenuCreate EventType = "data.menu_create"
	EventTypeDataMenuUpdate EventType = "data.menu_update"
	EventTypeDataMenuDelete EventType = "data.menu_delete"
	EventTypeDataDeptCreate EventType = "data.dept_create"
	EventTypeDataDeptUpdate EventType = "data.dept_update"
	EventTypeDataDeptDelete EventType = "data.dept_delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being changed
type ResourceType string

const (
	ResourceTypeUser  ResourceType = "user"
	ResourceTypeRole  ResourceType = "role"
	ResourceTypeMenu  ResourceType = "menu"
	ResourceTypeDept  ResourceType = "dept"
	ResourceTypeToken ResourceType = "token"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
