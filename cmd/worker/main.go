// Worker periodically deletes expired session rows past the retention window.
// Revoked and expired sessions stay queryable until then for the audit trail.
// Set DATABASE_URL, CLEANUP_INTERVAL, and CLEANUP_RETENTION.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-erp/backend/internal/config"
	"saas-erp/backend/internal/db"
	sessionrepo "saas-erp/backend/internal/session/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	sessions := sessionrepo.NewPostgresRepository(conn)
	interval := cfg.WorkerInterval()
	retention := cfg.WorkerRetention()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: cleaning sessions every %s, retention %s", interval, retention)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, sessions, retention)
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			sweep(ctx, sessions, retention)
		}
	}
}

func sweep(ctx context.Context, sessions *sessionrepo.PostgresRepository, retention time.Duration) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	cutoff := time.Now().UTC().Add(-retention)
	n, err := sessions.DeleteExpired(sweepCtx, cutoff)
	if err != nil {
		log.Printf("worker: delete expired sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("worker: deleted %d expired sessions", n)
	}
}
