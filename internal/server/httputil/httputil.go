// Package httputil holds small HTTP helpers shared by handlers and
// middleware: JSON responses, the refresh-token cookie, and client IP
// extraction.
package httputil

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token. It is HttpOnly
// and scoped to the auth endpoints so browser scripts never see it.
const RefreshCookieName = "refresh_token"

const refreshCookiePath = "/api/auth"

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httputil: encode response: %v", err)
	}
}

// WriteJSONError writes {"error": msg} with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// SetRefreshCookie stores the refresh token in an HttpOnly cookie expiring at
// expiresAt. secure should be true outside local development.
func SetRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

// ClearRefreshCookie expires the refresh cookie.
func ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// RefreshTokenFromRequest returns the refresh token from the request body
// field already decoded by the caller, falling back to the refresh cookie.
// Returns "" when neither is present.
func RefreshTokenFromRequest(r *http.Request, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// BearerToken returns the token from an "Authorization: Bearer <tok>" header,
// or "" if the header is missing or malformed.
func BearerToken(r *http.Request) string {
	const prefix = "bearer "
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

// ClientIP returns the client IP from X-Forwarded-For or X-Real-IP headers,
// falling back to the request's RemoteAddr.
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-Ip")); s != "" {
		return s
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
