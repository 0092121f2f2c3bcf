package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"saas-erp/backend/internal/audit/domain"
	auditrepo "saas-erp/backend/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for audit events that have no tenant
// (e.g. login_failure before any identity is established).
const SentinelTenantID = "_system"

// AuditLogger writes a single audit event with explicit action/resource. Used
// by the auth service and the request guard. LogEvent is best-effort: failures
// are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, ip, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not
// returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, userID, action, resource, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// Nop is an AuditLogger that discards events. Used in tests and when auditing
// is not configured.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string, string, string) {}
