package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/bastion/pkg/audit"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/middleware"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// APIPrefix is the path prefix of every API route
const APIPrefix = "/api/v1"

// DefaultMaxBodyBytes caps request bodies when Dependencies leaves it unset
const DefaultMaxBodyBytes = 1 << 20

// Session combines the session operations used by handlers with token
// authentication used by the middleware. *auth.Service satisfies it.
type Session interface {
	AuthService
	middleware.Authenticator
}

// Gate wraps a handler so it only runs for principals holding key
type Gate func(key string, h http.HandlerFunc) http.Handler

// Dependencies are the collaborators of the API server
type Dependencies struct {
	Session   Session
	Resources *resource.Store
	Roles     *rbac.Store
	Cache     PermissionCache

	// Permissions resolves the keys checked on admin routes. Nil denies
	// every admin route.
	Permissions rbac.PermissionResolver

	Audit     audit.Logger
	Logger    *observability.Logger
	Metrics   *observability.Metrics

	// LoginLimiter throttles POST /auth/login. Nil disables throttling.
	LoginLimiter *middleware.LoginRateLimitMiddleware

	AllowedOrigins []string
	MaxBodyBytes   int64

	// Tracing wraps the handler with otelhttp spans.
	Tracing bool
}

// Server is the admin API
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoopLogger{}
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{router: mux.NewRouter()}
	s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))

	api := s.router.PathPrefix(APIPrefix).Subrouter()

	authHandlers := NewAuthHandlers(deps.Session, deps.Logger)
	var loginLimiter mux.MiddlewareFunc
	if deps.LoginLimiter != nil {
		loginLimiter = deps.LoginLimiter.Handler
	}
	authHandlers.RegisterPublicRoutes(api, loginLimiter)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.NewAuthMiddleware(deps.Session, deps.Logger).Handler)

	perms := middleware.NewPermissionMiddleware(deps.Permissions, deps.Logger)
	require := func(key string, h http.HandlerFunc) http.Handler {
		return perms.RequirePermission(key)(h)
	}

	authHandlers.RegisterRoutes(protected)
	if deps.Resources != nil {
		NewMenuHandlers(deps.Resources, deps.Cache, deps.Audit, deps.Logger).RegisterRoutes(protected, require)
		NewDeptHandlers(deps.Resources, deps.Audit, deps.Logger).RegisterRoutes(protected, require)
	}
	if deps.Roles != nil {
		NewRoleHandlers(deps.Roles, deps.Cache, deps.Audit, deps.Logger).RegisterRoutes(protected, require)
	}

	var handler http.Handler = s.router
	handler = httputil.MaxBytesMiddleware(deps.MaxBodyBytes)(handler)
	handler = httputil.CORSMiddleware(deps.AllowedOrigins)(handler)
	handler = httputil.LoggingMiddleware(deps.Logger)(handler)
	handler = httputil.RecoveryMiddleware(deps.Logger)(handler)
	handler = httputil.RequestIDMiddleware(handler)
	if deps.Tracing {
		handler = otelhttp.NewHandler(handler, "bastion-api")
	}
	s.handler = handler

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router, mainly for route inspection in tests
func (s *Server) Router() *mux.Router {
	return s.router
}
