package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"saas-erp/backend/internal/audit/domain"
)

// memAuditRepo implements repository.Repository for tests.
type memAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *memAuditRepo) CountsByTenant(_ context.Context, tenantID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			out[e.Action]++
		}
	}
	return out, nil
}

func (m *memAuditRepo) Create(_ context.Context, a *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, a)
	return nil
}

func TestLogger_WritesEntry(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo)

	l.LogEvent(context.Background(), "tenant-a", "user-1", "login", "session", "10.0.0.1", "")

	if len(repo.entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("entry has no id")
	}
	if e.TenantID != "tenant-a" || e.UserID != "user-1" || e.Action != "login" || e.Resource != "session" {
		t.Errorf("entry = %+v, want logged fields", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("entry has no timestamp")
	}
}

func TestLogger_SentinelTenant(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo)

	l.LogEvent(context.Background(), "", "", "login_failure", "session", "10.0.0.1", "nobody@acme.test")

	if len(repo.entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].TenantID != SentinelTenantID {
		t.Errorf("tenant = %q, want sentinel %q", repo.entries[0].TenantID, SentinelTenantID)
	}
}

func TestLogger_BestEffort(t *testing.T) {
	repo := &memAuditRepo{createErr: errors.New("db down")}
	l := NewLogger(repo)

	// Must not panic or surface the error.
	l.LogEvent(context.Background(), "tenant-a", "user-1", "login", "session", "", "")
}

func TestNop(t *testing.T) {
	Nop{}.LogEvent(context.Background(), "t", "u", "a", "r", "", "")
}
