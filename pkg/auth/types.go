package auth

import (
	"time"

	"github.com/platinummonkey/bastion/pkg/resource"
)

// ScopeUser is the coarse scope carried by every access token.
const ScopeUser = "ROLE_USER"

// Principal is the authenticated identity of a request.
type Principal struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Scope     string    `json:"scope"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// User is a stored account.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Nickname     string          `json:"nickname,omitempty"`
	Email        string          `json:"email,omitempty"`
	Status       resource.Status `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Enabled reports whether the account may sign in.
func (u *User) Enabled() bool {
	return u.Status == resource.StatusEnabled
}

// LoginResult is returned once per successful login.
type LoginResult struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	Permissions  []string  `json:"permissions"`
	Roles        []string  `json:"roles"`
}

// RefreshResult is returned by RefreshAccessToken. RefreshToken is only set
// when rotation is enabled.
type RefreshResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}
