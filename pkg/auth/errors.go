package auth

import "errors"

var (
	// ErrAuthenticationFailed is returned for bad credentials. It never
	// distinguishes an unknown user from a wrong password.
	ErrAuthenticationFailed = errors.New("bad username or password")

	// ErrAccountDisabled is returned when a disabled user tries to sign in.
	// Clients see ErrAuthenticationFailed instead.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrTokenInvalid is returned for malformed or badly signed access tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned for access tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned for access tokens on the denylist.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrRefreshTokenNotFound is returned when no stored refresh token matches.
	ErrRefreshTokenNotFound = errors.New("invalid refresh token")

	// ErrRefreshTokenRevoked is returned for refresh tokens flagged as revoked.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")

	// ErrRefreshTokenExpired is returned for refresh tokens at or past expiry.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrUserNotFound is returned by user stores for unknown ids.
	ErrUserNotFound = errors.New("user not found")
)

// IsAuthError reports whether err belongs to the credential and token family.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrAuthenticationFailed,
		ErrAccountDisabled,
		ErrTokenInvalid,
		ErrTokenExpired,
		ErrTokenRevoked,
		ErrRefreshTokenNotFound,
		ErrRefreshTokenRevoked,
		ErrRefreshTokenExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
