package domain

import userdomain "saas-erp/backend/internal/user/domain"

// Identity is the authenticated principal produced by access-token validation.
// TenantID here is the only trusted tenant scope for the request; any tenant
// identifier supplied by the client is advisory and must be reconciled against
// it, never substituted for it.
type Identity struct {
	UserID    string
	Email     string
	Role      userdomain.Role
	TenantID  string
	SessionID string
}
