package middleware

import (
	"net/http"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
)

// PermissionMiddleware gates routes on the permission keys of the
// authenticated principal. It must run after AuthMiddleware.
type PermissionMiddleware struct {
	resolver rbac.PermissionResolver
	logger   *observability.Logger
}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware(resolver rbac.PermissionResolver, logger *observability.Logger) *PermissionMiddleware {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &PermissionMiddleware{resolver: resolver, logger: logger}
}

// RequirePermission creates middleware that requires a specific permission key
func (pm *PermissionMiddleware) RequirePermission(key string) func(http.Handler) http.Handler {
	return pm.RequireAnyPermission(key)
}

// RequireAnyPermission creates middleware that requires any of the given keys
func (pm *PermissionMiddleware) RequireAnyPermission(keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			// No resolver means nothing can be proven, so nothing is allowed.
			if pm.resolver == nil {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			snap, err := pm.resolver.Resolve(r.Context(), principal.ID)
			if err != nil {
				observability.FromContext(r.Context(), pm.logger).
					WithError(err).
					WithField("user_id", principal.ID).
					Error("permission check failed")
				httputil.WriteInternalError(w)
				return
			}

			for _, key := range keys {
				if snap.Has(key) {
					next.ServeHTTP(w, r)
					return
				}
			}

			observability.FromContext(r.Context(), pm.logger).WithFields(map[string]interface{}{
				"user_id":  principal.ID,
				"required": keys,
			}).Debug("permission denied")
			httputil.WriteForbidden(w, "insufficient permissions")
		})
	}
}
