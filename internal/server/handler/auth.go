package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"saas-erp/backend/internal/auth/service"
	"saas-erp/backend/internal/server/httputil"
	"saas-erp/backend/internal/server/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	SessionID       string    `json:"session_id"`
}

type meResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	ID         string     `json:"id"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	Current    bool       `json:"current"`
}

// AuthHandler serves the /api/auth endpoints. The refresh token travels both
// in the JSON body (non-browser clients) and in an HttpOnly cookie (browsers).
type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

// NewAuthHandler returns an AuthHandler. secureCookies should be true outside
// local development.
func NewAuthHandler(auth *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password, service.LoginMeta{
		IP:        httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeTokens(w, result)
}

// Refresh handles POST /api/auth/refresh. The body is optional; the refresh
// cookie is the fallback.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	token := httputil.RefreshTokenFromRequest(r, req.RefreshToken)
	result, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		httputil.ClearRefreshCookie(w)
		writeServiceError(w, err)
		return
	}
	h.writeTokens(w, result)
}

// Logout handles POST /api/auth/logout. Always succeeds: revoking an unknown
// or already-revoked session is a no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	token := httputil.RefreshTokenFromRequest(r, req.RefreshToken)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.ClearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /api/auth/logout_all (authenticated).
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.LogoutAll(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.ClearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me (authenticated).
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.WriteJSONError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meResponse{
		UserID:    id.UserID,
		Email:     id.Email,
		Role:      string(id.Role),
		TenantID:  id.TenantID,
		SessionID: id.SessionID,
	})
}

// Sessions handles GET /api/auth/sessions (authenticated): the caller's
// active sessions for the account-security view.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.WriteJSONError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	sessions, err := h.auth.Sessions(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	now := time.Now()
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		if !s.Valid(now) {
			continue
		}
		resp := sessionResponse{
			ID:        s.ID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == id.SessionID,
		}
		resp.LastSeenAt = s.LastSeenAt
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": out})
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, result *service.AuthResult) {
	httputil.SetRefreshCookie(w, result.RefreshToken, result.RefreshExpiresAt, h.secureCookies)
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:     result.AccessToken,
		RefreshToken:    result.RefreshToken,
		AccessExpiresAt: result.AccessExpiresAt,
		SessionID:       result.SessionID,
	})
}
