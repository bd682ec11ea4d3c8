package resource

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a menu or department does not exist.
var ErrNotFound = errors.New("resource not found")

// Status is the enabled flag shared by menus, departments, roles and users.
type Status int

const (
	StatusDisabled Status = 0
	StatusEnabled  Status = 1
)

// MenuType distinguishes navigation folders, pages and action buttons.
type MenuType int

const (
	MenuTypeDirectory MenuType = 0
	MenuTypeMenu      MenuType = 1
	MenuTypeButton    MenuType = 2
)

// Menu is a navigation or permission node.
type Menu struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	Type      MenuType  `json:"type"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Component string    `json:"component,omitempty"`
	PermKey   string    `json:"perm_key,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sort_order"`
	Visible   bool      `json:"visible"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Menu) NodeID() int64       { return m.ID }
func (m Menu) ParentNodeID() int64 { return m.ParentID }
func (m Menu) SortKey() int        { return m.SortOrder }

// HasPermission reports whether the menu carries a permission key.
func (m Menu) HasPermission() bool {
	return strings.TrimSpace(m.PermKey) != ""
}

// Navigable reports whether the menu belongs in a user's navigation tree.
func (m Menu) Navigable() bool {
	return m.Visible && m.Status == StatusEnabled
}

// Dept is an organizational unit.
type Dept struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Leader    string    `json:"leader,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	SortOrder int       `json:"sort_order"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d Dept) NodeID() int64       { return d.ID }
func (d Dept) ParentNodeID() int64 { return d.ParentID }
func (d Dept) SortKey() int        { return d.SortOrder }
