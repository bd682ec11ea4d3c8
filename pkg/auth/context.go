package auth

import (
	"context"
	"strconv"

	"github.com/platinummonkey/bastion/pkg/contextkeys"
)

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = contextkeys.WithAuth(ctx, p)
	return contextkeys.WithUserID(ctx, strconv.FormatInt(p.ID, 10))
}

// PrincipalFromContext returns the principal set by the authentication
// middleware, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(contextkeys.AuthKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithToken stores the raw bearer token of the request.
func WithToken(ctx context.Context, token string) context.Context {
	return contextkeys.WithToken(ctx, token)
}

// TokenFromContext returns the raw bearer token of the request.
func TokenFromContext(ctx context.Context) string {
	return contextkeys.GetToken(ctx)
}
