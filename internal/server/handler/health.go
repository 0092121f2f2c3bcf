package handler

import (
	"context"
	"log"
	"net/http"

	"saas-erp/backend/internal/server/httputil"
)

// Pinger checks datastore connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker verifies the policy evaluator can still evaluate (e.g. the
// OPA evaluator's self-check).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves GET /healthz for readiness probes. Nil dependencies
// are skipped.
type HealthHandler struct {
	pinger Pinger
	policy PolicyChecker
}

func NewHealthHandler(pinger Pinger, policy PolicyChecker) *HealthHandler {
	return &HealthHandler{pinger: pinger, policy: policy}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.pinger != nil {
		if err := h.pinger.PingContext(r.Context()); err != nil {
			log.Printf("health: db ping: %v", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	if code == http.StatusOK && h.policy != nil {
		if err := h.policy.HealthCheck(r.Context()); err != nil {
			log.Printf("health: policy check: %v", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, code, map[string]string{"status": status})
}
