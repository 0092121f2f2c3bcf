package domain

import "time"

// AuditLog represents one persisted audit event: who did what to which
// resource, scoped to a tenant.
type AuditLog struct {
	ID        string
	TenantID  string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
