package rbac

import (
	"errors"
	"sort"
	"time"

	"github.com/platinummonkey/bastion/pkg/resource"
)

// ErrRoleNotFound is returned when a role does not exist.
var ErrRoleNotFound = errors.New("role not found")

// Role is a named bundle of menus.
type Role struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Status      resource.Status `json:"status"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Active reports whether the role contributes its code to snapshots.
func (r Role) Active() bool {
	return r.Status == resource.StatusEnabled
}

// Snapshot is the permission state of a principal at one point in time.
type Snapshot struct {
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
}

// Has reports whether the snapshot grants a permission key.
func (s *Snapshot) Has(permission string) bool {
	i := sort.SearchStrings(s.Permissions, permission)
	return i < len(s.Permissions) && s.Permissions[i] == permission
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
