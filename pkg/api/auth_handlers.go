package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// AuthService is the session core consumed by the auth routes
type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*auth.RefreshResult, error)
	Logout(ctx context.Context, userID int64, accessToken string) error
	ResolvePermissions(ctx context.Context, userID int64) ([]string, error)
	MenuTree(ctx context.Context, userID int64) ([]*hierarchy.Tree[resource.Menu], error)
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	svc    AuthService
	logger *observability.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(svc AuthService, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{svc: svc, logger: logger}
}

// RegisterPublicRoutes registers the routes reachable without a token
func (h *AuthHandlers) RegisterPublicRoutes(router *mux.Router, loginLimiter mux.MiddlewareFunc) {
	var login http.Handler = http.HandlerFunc(h.login)
	if loginLimiter != nil {
		login = loginLimiter(login)
	}
	router.Handle("/auth/login", login).Methods("POST")
	router.HandleFunc("/auth/refresh", h.refresh).Methods("POST")
}

// RegisterRoutes registers the routes that require an authenticated principal
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/logout", h.logout).Methods("POST")
	router.HandleFunc("/auth/me/permissions", h.permissions).Methods("GET")
	router.HandleFunc("/auth/me/menus", h.menus).Methods("GET")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, r, h.logger, auth.ErrAuthenticationFailed)
		return
	}

	result, err := h.svc.Login(r.Context(), username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh handles POST /auth/refresh
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.svc.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

type logoutRequest struct {
	// All revokes every access token of the caller instead of only the
	// presented one.
	All bool `json:"all"`
}

// logout handles POST /auth/logout. The body is optional.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, r, h.logger, auth.ErrTokenInvalid)
		return
	}

	var req logoutRequest
	if err := httputil.ParseOptionalJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	token := auth.TokenFromContext(r.Context())
	if req.All {
		token = ""
	}

	if err := h.svc.Logout(r.Context(), principal.ID, token); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteNoContent(w)
}

// permissions handles GET /auth/me/permissions
func (h *AuthHandlers) permissions(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, r, h.logger, auth.ErrTokenInvalid)
		return
	}

	perms, err := h.svc.ResolvePermissions(r.Context(), principal.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":     principal.ID,
		"permissions": perms,
	})
}

// menus handles GET /auth/me/menus
func (h *AuthHandlers) menus(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, r, h.logger, auth.ErrTokenInvalid)
		return
	}

	forest, err := h.svc.MenuTree(r.Context(), principal.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if forest == nil {
		forest = []*hierarchy.Tree[resource.Menu]{}
	}
	httputil.WriteSuccess(w, forest)
}
