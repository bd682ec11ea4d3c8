// Package auth issues and revokes sessions for the back office.
//
// # Tokens
//
// A session is a pair of credentials:
//
//   - an access token: an HS256-signed JWT carrying identity only (user id,
//     username, a coarse scope) valid for two hours by default
//   - a refresh token: an opaque random string persisted with an absolute
//     expiry of seven days, exchanged for new access tokens
//
// Permissions are not embedded in the access token. They are resolved once at
// login and returned next to the tokens.
//
// # Revocation
//
// Access tokens cannot be recalled once signed, so every authenticated request
// first asks the Denylist whether the token was revoked. When the denylist
// cannot answer, the token is treated as revoked.
//
// # Usage
//
//	svc, err := auth.NewService(users, resolver, issuer, refresh, registry,
//		auth.WithLogger(logger),
//	)
//	res, err := svc.Login(ctx, "alice", "s3cret")
//	access, err := svc.RefreshAccessToken(ctx, res.RefreshToken)
//	err = svc.Logout(ctx, res.UserID, access.AccessToken)
package auth
