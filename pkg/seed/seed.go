package seed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/bastion/pkg/resource"
)

// GrantAll in a role's menu list grants every menu.
const GrantAll = "*"

// Seed is the bootstrap data of a fresh installation
type Seed struct {
	Menus []Menu `yaml:"menus"`
	Depts []Dept `yaml:"depts"`
	Roles []Role `yaml:"roles"`
	Users []User `yaml:"users"`
}

// Menu is a menu node and its children
type Menu struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Path      string `yaml:"path,omitempty"`
	Component string `yaml:"component,omitempty"`
	PermKey   string `yaml:"perm_key,omitempty"`
	Icon      string `yaml:"icon,omitempty"`
	SortOrder int    `yaml:"sort_order,omitempty"`
	Hidden    bool   `yaml:"hidden,omitempty"`
	Children  []Menu `yaml:"children,omitempty"`
}

// Dept is a department node and its children
type Dept struct {
	Name      string `yaml:"name"`
	Code      string `yaml:"code,omitempty"`
	Leader    string `yaml:"leader,omitempty"`
	Phone     string `yaml:"phone,omitempty"`
	Email     string `yaml:"email,omitempty"`
	SortOrder int    `yaml:"sort_order,omitempty"`
	Children  []Dept `yaml:"children,omitempty"`
}

// Role is a role and the menus it grants, referenced by permission key or
// by menu name.
type Role struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	SortOrder   int      `yaml:"sort_order,omitempty"`
	Disabled    bool     `yaml:"disabled,omitempty"`
	Menus       []string `yaml:"menus,omitempty"`
}

// User is an account and the codes of its roles
type User struct {
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Nickname string   `yaml:"nickname,omitempty"`
	Email    string   `yaml:"email,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
	Roles    []string `yaml:"roles,omitempty"`
}

// ValidationError describes one invalid field of a seed file
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and parses a seed file
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML seed document
func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &s, nil
}

// ParseMenuType maps a seed menu type onto resource.MenuType. An empty type
// is a directory when the menu has children and a page otherwise.
func ParseMenuType(value string, hasChildren bool) (resource.MenuType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		if hasChildren {
			return resource.MenuTypeDirectory, nil
		}
		return resource.MenuTypeMenu, nil
	case "directory", "dir":
		return resource.MenuTypeDirectory, nil
	case "menu", "page":
		return resource.MenuTypeMenu, nil
	case "button":
		return resource.MenuTypeButton, nil
	default:
		return 0, fmt.Errorf("unknown menu type %q", value)
	}
}

// Validate checks a seed for missing fields and dangling references
func (s *Seed) Validate() []ValidationError {
	var errs []ValidationError

	var walkMenus func(prefix string, menus []Menu)
	walkMenus = func(prefix string, menus []Menu) {
		for i, m := range menus {
			field := fmt.Sprintf("%s[%d]", prefix, i)
			if strings.TrimSpace(m.Name) == "" {
				errs = append(errs, ValidationError{Field: field + ".name", Message: "menu name is required"})
			}
			if _, err := ParseMenuType(m.Type, len(m.Children) > 0); err != nil {
				errs = append(errs, ValidationError{Field: field + ".type", Message: err.Error()})
			}
			walkMenus(field+".children", m.Children)
		}
	}
	walkMenus("menus", s.Menus)

	var walkDepts func(prefix string, depts []Dept)
	walkDepts = func(prefix string, depts []Dept) {
		for i, d := range depts {
			field := fmt.Sprintf("%s[%d]", prefix, i)
			if strings.TrimSpace(d.Name) == "" {
				errs = append(errs, ValidationError{Field: field + ".name", Message: "department name is required"})
			}
			walkDepts(field+".children", d.Children)
		}
	}
	walkDepts("depts", s.Depts)

	roleCodes := make(map[string]bool, len(s.Roles))
	for i, r := range s.Roles {
		field := fmt.Sprintf("roles[%d]", i)
		if r.Code == "" {
			errs = append(errs, ValidationError{Field: field + ".code", Message: "role code is required"})
		} else if roleCodes[r.Code] {
			errs = append(errs, ValidationError{Field: field + ".code", Message: fmt.Sprintf("duplicate role code %q", r.Code)})
		}
		roleCodes[r.Code] = true
		if r.Name == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "role name is required"})
		}
	}

	usernames := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		field := fmt.Sprintf("users[%d]", i)
		if u.Username == "" {
			errs = append(errs, ValidationError{Field: field + ".username", Message: "username is required"})
		} else if usernames[u.Username] {
			errs = append(errs, ValidationError{Field: field + ".username", Message: fmt.Sprintf("duplicate username %q", u.Username)})
		}
		usernames[u.Username] = true
		if u.Password == "" {
			errs = append(errs, ValidationError{Field: field + ".password", Message: "password is required"})
		}
		for _, code := range u.Roles {
			if !roleCodes[code] {
				errs = append(errs, ValidationError{Field: field + ".roles", Message: fmt.Sprintf("unknown role %q", code)})
			}
		}
	}

	return errs
}
