package handler

import (
	"errors"
	"log"
	"net/http"

	"saas-erp/backend/internal/auth/service"
	"saas-erp/backend/internal/authz"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/server/httputil"
)

// writeServiceError is the single place auth/authz errors become HTTP status
// codes. Unknown errors are logged and surfaced as a generic 500 so internals
// never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, security.ErrTokenExpired):
		httputil.WriteJSONError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, security.ErrInvalidToken):
		httputil.WriteJSONError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, service.ErrSessionNotFound):
		httputil.WriteJSONError(w, http.StatusUnauthorized, "session not found")
	case errors.Is(err, service.ErrSessionRevoked):
		httputil.WriteJSONError(w, http.StatusUnauthorized, "session revoked")
	case errors.Is(err, authz.ErrPermissionDenied),
		errors.Is(err, authz.ErrModuleDisabled),
		errors.Is(err, authz.ErrTenantMismatch):
		httputil.WriteJSONError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("handler: internal error: %v", err)
		httputil.WriteJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
