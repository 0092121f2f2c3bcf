package main

import (
	"context"
	"crypto"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-erp/backend/internal/audit"
	auditrepo "saas-erp/backend/internal/audit/repository"
	authservice "saas-erp/backend/internal/auth/service"
	"saas-erp/backend/internal/authz"
	"saas-erp/backend/internal/config"
	"saas-erp/backend/internal/db"
	"saas-erp/backend/internal/events"
	"saas-erp/backend/internal/events/producer"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/server"
	"saas-erp/backend/internal/server/middleware"
	sessionrepo "saas-erp/backend/internal/session/repository"
	"saas-erp/backend/internal/stats"
	"saas-erp/backend/internal/telemetry/otel"
	"saas-erp/backend/internal/tenant"
	tenantrepo "saas-erp/backend/internal/tenant/repository"
	userrepo "saas-erp/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("server: DATABASE_URL is required")
	}

	ctx := context.Background()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	rdb, err := db.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "erp-backend", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry: shutdown: %v", err)
		}
	}()

	emitter := events.MultiEmitter{otel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitter = append(emitter, kafkaProducer)
	}

	tokens, err := buildTokenProvider(cfg)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	userRepo := userrepo.NewPostgresRepository(conn)
	tenantRepo := tenantrepo.NewPostgresRepository(conn)
	sessionRepo := sessionrepo.NewPostgresRepository(conn)
	auditRepo := auditrepo.NewPostgresRepository(conn)

	moduleCache := tenant.NewModuleCache(tenantRepo, rdb, cfg.CacheTTL())
	auditLogger := audit.NewLogger(auditRepo)
	hasher := security.NewHasher(cfg.BcryptCost)

	authSvc := authservice.NewAuthService(userRepo, sessionRepo, moduleCache, hasher, tokens, auditLogger, emitter)

	grants, err := authz.LoadDefaultGrants()
	if err != nil {
		log.Fatalf("authz: %v", err)
	}
	evaluator, err := authz.NewOPAEvaluator(grants, "")
	if err != nil {
		log.Fatalf("authz: %v", err)
	}

	registry := stats.NewRegistry()
	for module, resources := range grants.Modules() {
		registry.Register(stats.Registration{
			Module:   module,
			Resource: resources[0],
			Provider: activityProvider(auditRepo),
		})
	}

	guard := middleware.NewGuard(evaluator, moduleCache, userModulesAdapter{userRepo}, emitter)

	srv := server.New(cfg.HTTPAddr, server.Deps{
		Auth:           authSvc,
		Tokens:         tokens,
		Sessions:       sessionRepo,
		Guard:          guard,
		Stats:          registry,
		HealthPinger:   conn,
		HealthPolicy:   evaluator,
		Meter:          providers.MeterProvider.Meter("erp-backend"),
		AllowedOrigins: cfg.AllowedOriginsList(),
		SecureCookies:  cfg.Env == "production",
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	server.Shutdown(srv, 15*time.Second)
	log.Println("HTTP server stopped")
}

// buildTokenProvider loads the configured key pair, or generates an ephemeral
// ECDSA pair outside production so a bare checkout runs without setup.
func buildTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	var (
		signer crypto.Signer
		pub    crypto.PublicKey
		err    error
	)
	if cfg.JWTPrivateKey != "" {
		signer, err = security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err = security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("JWT keys not configured; using an ephemeral key pair (sessions reset on restart)")
		signer, err = security.GenerateECDSAKey()
		if err != nil {
			return nil, err
		}
		pub = signer.Public()
	}
	return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(), cfg.Leeway()), nil
}

// userModulesAdapter exposes the user repository's narrowing set to the guard.
type userModulesAdapter struct {
	repo *userrepo.PostgresRepository
}

func (a userModulesAdapter) EnabledModules(ctx context.Context, userID string) ([]string, error) {
	u, err := a.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return u.EnabledModules, nil
}

// activityProvider reports the tenant's audit activity counters. Business
// module data lives in separate services; the auth core exposes security
// activity per tenant under each module's stats route.
func activityProvider(repo auditrepo.Repository) stats.Provider {
	return stats.ProviderFunc(func(ctx context.Context, tenantID string) (stats.Result, error) {
		counts, err := repo.CountsByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return stats.Result(counts), nil
	})
}
