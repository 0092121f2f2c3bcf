// Package server assembles the HTTP API: routing, CORS, middleware order,
// and graceful shutdown.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"
	otelmetric "go.opentelemetry.io/otel/metric"

	"saas-erp/backend/internal/auth/service"
	"saas-erp/backend/internal/authz"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/server/handler"
	"saas-erp/backend/internal/server/middleware"
	"saas-erp/backend/internal/stats"
)

// Deps holds the dependencies the server wires into routes. Optional fields
// may be nil; the corresponding feature is then disabled or skipped.
type Deps struct {
	Auth           *service.AuthService
	Tokens         *security.TokenProvider
	Sessions       middleware.SessionChecker
	Guard          *middleware.Guard
	Stats          *stats.Registry
	HealthPinger   handler.Pinger
	HealthPolicy   handler.PolicyChecker
	Meter          otelmetric.Meter
	AllowedOrigins []string
	SecureCookies  bool
}

// New returns an http.Server with all routes mounted.
//
// Route map:
//   - GET  /healthz                          public
//   - POST /api/auth/login                   public
//   - POST /api/auth/refresh                 public (refresh token is the credential)
//   - POST /api/auth/logout                  public (idempotent)
//   - POST /api/auth/logout_all              authenticated
//   - GET  /api/auth/me                      authenticated
//   - GET  /api/auth/sessions                authenticated
//   - GET  /api/{module}/stats               authenticated + (resource, "read") permission
func New(addr string, deps Deps) *http.Server {
	mux := http.NewServeMux()
	authHandler := handler.NewAuthHandler(deps.Auth, deps.SecureCookies)
	requireAuth := middleware.RequireAuth(deps.Tokens, deps.Sessions)

	mux.Handle("GET /healthz", handler.NewHealthHandler(deps.HealthPinger, deps.HealthPolicy))
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("POST /api/auth/logout_all", requireAuth(http.HandlerFunc(authHandler.LogoutAll)))
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(authHandler.Me)))
	mux.Handle("GET /api/auth/sessions", requireAuth(http.HandlerFunc(authHandler.Sessions)))

	if deps.Stats != nil && deps.Guard != nil {
		for _, reg := range deps.Stats.Registrations() {
			guarded := deps.Guard.RequirePermission(reg.Resource, authz.ActionRead)(stats.Handler(reg))
			mux.Handle("GET /api/"+reg.Module+"/stats", requireAuth(guarded))
		}
	}

	var root http.Handler = mux
	root = middleware.Metrics(deps.Meter)(root)
	root = cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Tenant-Id"},
		AllowCredentials: true,
	}).Handler(root)

	return &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains the server with a timeout.
func Shutdown(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server: shutdown: %v", err)
	}
}
