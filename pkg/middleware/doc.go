// Package middleware provides the HTTP middleware guarding the API.
//
// AuthMiddleware reads "Authorization: Bearer <token>", asks the
// Authenticator (auth.Service) to run the revocation pre-check and verify
// the token, and stores the principal and raw token in the request context.
// Every failure is a 401 with a JSON body.
//
//	authn := middleware.NewAuthMiddleware(authService, logger)
//	protected.Use(authn.Handler)
//
// PermissionMiddleware runs after it and lets a request through only when
// the principal's resolved permission keys hold the route's key:
//
//	perms := middleware.NewPermissionMiddleware(resolver, logger)
//	router.Handle("/roles", perms.RequirePermission("role:add")(h)).Methods("POST")
//
// LoginRateLimitMiddleware limits login attempts per client address with a
// Redis counter shared across instances. It fails open.
package middleware
