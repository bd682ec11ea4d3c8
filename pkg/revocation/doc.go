// Package revocation keeps a Redis-backed denylist of access tokens.
//
// Tokens are never stored. Each token is reduced to a truncated SHA-256
// digest and kept under two kinds of keys:
//
//	token:denylist:<hash>  -> user id, expires with the token
//	user:tokens:<user id>  -> set of hashes issued to the user
//
// The per-user set lets DenylistAll revoke every session of a user without
// knowing the individual tokens. Both kinds of keys carry a TTL so the
// registry does not grow under steady login and logout traffic.
//
// Any Redis failure is returned as ErrUnavailable. Callers checking a token
// must treat that as revoked.
package revocation
