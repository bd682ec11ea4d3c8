package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/observability"
)

// Authenticator resolves a bearer token into a principal. It must refuse
// revoked tokens before trusting the signature.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Principal, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	authn  Authenticator
	logger *observability.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authn Authenticator, logger *observability.Logger) *AuthMiddleware {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AuthMiddleware{authn: authn, logger: logger}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "missing or malformed authorization header")
			return
		}

		principal, err := m.authn.Authenticate(r.Context(), token)
		if err != nil {
			observability.FromContext(r.Context(), m.logger).WithError(err).Debug("authentication failed")
			httputil.WriteUnauthorized(w, unauthorizedMessage(err))
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = auth.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return auth.ErrTokenExpired.Error()
	case errors.Is(err, auth.ErrTokenRevoked):
		return auth.ErrTokenRevoked.Error()
	default:
		return auth.ErrTokenInvalid.Error()
	}
}
