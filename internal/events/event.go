// Package events defines security events and their best-effort emission.
// Events are audit-adjacent signals (failed logins, replay detections, session
// revocations) consumed by downstream pipelines; losing one never fails the
// request that produced it.
package events

import (
	"context"
	"log"
	"time"
)

// Event types emitted by the auth core.
const (
	TypeLoginSuccess   = "login_success"
	TypeLoginFailure   = "login_failure"
	TypeTokenRefreshed = "token_refreshed"
	TypeTokenReplay    = "token_replay"
	TypeSessionRevoked = "session_revoked"
	TypeLogout         = "logout"
	TypeAccessDenied   = "access_denied"
)

// SecurityEvent is one auth-core occurrence worth shipping downstream.
// TenantID may be empty for events without an authenticated tenant (for
// example a failed login).
type SecurityEvent struct {
	Type      string            `json:"type"`
	TenantID  string            `json:"tenant_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Emitter emits security events. Callers use it best-effort: log and ignore
// errors.
type Emitter interface {
	Emit(ctx context.Context, event *SecurityEvent) error
}

// MultiEmitter fans one event out to several sinks (e.g. Kafka and OTel logs).
// Emit returns the last error but always tries every sink.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, event *SecurityEvent) error {
	var lastErr error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not
// blocked. emitter and event may be nil; EmitAsync then returns immediately.
// The goroutine uses context.Background() so request cancellation does not
// abort an in-flight emit.
func EmitAsync(emitter Emitter, event *SecurityEvent) {
	if emitter == nil || event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("events: async emit failed: %v", err)
		}
	}()
}
