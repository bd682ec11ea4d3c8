package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/httputil"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
	"github.com/platinummonkey/bastion/pkg/revocation"
)

// statusFor maps a domain error onto an HTTP status and client message
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrAccountDisabled):
		return http.StatusUnauthorized, auth.ErrAuthenticationFailed.Error()
	case auth.IsAuthError(err):
		return http.StatusUnauthorized, authMessage(err)
	case hierarchy.IsValidationError(err):
		return http.StatusBadRequest, hierarchyMessage(err)
	case errors.Is(err, resource.ErrNotFound),
		errors.Is(err, rbac.ErrRoleNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, revocation.ErrUnavailable):
		return http.StatusServiceUnavailable, "authentication temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func authMessage(err error) string {
	for _, target := range []error{
		auth.ErrAuthenticationFailed,
		auth.ErrTokenExpired,
		auth.ErrTokenRevoked,
		auth.ErrRefreshTokenNotFound,
		auth.ErrRefreshTokenRevoked,
		auth.ErrRefreshTokenExpired,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return auth.ErrTokenInvalid.Error()
}

func hierarchyMessage(err error) string {
	for _, target := range []error{
		hierarchy.ErrSelfParent,
		hierarchy.ErrDepthExceeded,
		hierarchy.ErrCycle,
		hierarchy.ErrHasChildren,
		hierarchy.ErrParentNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid hierarchy"
}

// writeError logs err and writes the mapped error response
func writeError(w http.ResponseWriter, r *http.Request, logger *observability.Logger, err error) {
	status, message := statusFor(err)

	log := observability.FromContext(r.Context(), logger).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected")
	}

	httputil.WriteErrorMessage(w, status, message)
}
