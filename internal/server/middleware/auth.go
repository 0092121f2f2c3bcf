package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	authdomain "saas-erp/backend/internal/auth/domain"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/server/httputil"
	sessiondomain "saas-erp/backend/internal/session/domain"
	userdomain "saas-erp/backend/internal/user/domain"
)

// SessionChecker is the slice of the session registry the auth middleware
// needs for the stateful half of access validation.
type SessionChecker interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

// RequireAuth validates the Bearer access token (stateless signature and
// claims check) and, when sessions is non-nil, confirms the session is still
// live in the registry, so a revoked session stops working before the access
// token expires. On success the identity is placed in the request context.
func RequireAuth(tokens *security.TokenProvider, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httputil.BearerToken(r)
			if token == "" {
				httputil.WriteJSONError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			claims, err := tokens.ValidateAccess(token)
			if err != nil {
				msg := "missing or invalid authorization"
				if errors.Is(err, security.ErrTokenExpired) {
					msg = "token expired"
				}
				httputil.WriteJSONError(w, http.StatusUnauthorized, msg)
				return
			}
			if sessions != nil {
				sess, err := sessions.GetByID(r.Context(), claims.SessionID)
				if err != nil {
					log.Printf("middleware: session lookup: %v", err)
					httputil.WriteJSONError(w, http.StatusInternalServerError, "internal error")
					return
				}
				if sess == nil || !sess.Valid(time.Now()) {
					httputil.WriteJSONError(w, http.StatusUnauthorized, "session revoked")
					return
				}
				go func(id string, at time.Time) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := sessions.UpdateLastSeen(ctx, id, at); err != nil {
						log.Printf("middleware: update last seen: %v", err)
					}
				}(sess.ID, time.Now().UTC())
			}
			id := authdomain.Identity{
				UserID:    claims.Subject,
				Email:     claims.Email,
				Role:      userdomain.Role(claims.Role),
				TenantID:  claims.TenantID,
				SessionID: claims.SessionID,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
