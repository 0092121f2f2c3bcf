// seed upserts development sample data for local testing. Safe to re-run:
// existing tenants get their module set refreshed (through the cache, so a
// configured Redis is invalidated too) and existing users get the dev password
// re-applied.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"saas-erp/backend/internal/config"
	"saas-erp/backend/internal/db"
	"saas-erp/backend/internal/security"
	"saas-erp/backend/internal/tenant"
	tenantdomain "saas-erp/backend/internal/tenant/domain"
	tenantrepo "saas-erp/backend/internal/tenant/repository"
	userdomain "saas-erp/backend/internal/user/domain"
	userrepo "saas-erp/backend/internal/user/repository"
)

const (
	devPassword = "password123"

	acmeSlug   = "acme"
	globexSlug = "globex"
)

type seedTenant struct {
	slug    string
	name    string
	modules []string
}

type seedUser struct {
	tenantSlug string
	email      string
	name       string
	role       userdomain.Role
	// modules narrows the tenant set when non-empty.
	modules []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	rdb, err := db.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)
	moduleCache := tenant.NewModuleCache(tenants, rdb, cfg.CacheTTL())

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	tenantIDs := make(map[string]string)
	for _, st := range []seedTenant{
		{slug: acmeSlug, name: "Acme Manufacturing", modules: []string{"accounting", "crm", "inventory"}},
		{slug: globexSlug, name: "Globex Elevators", modules: []string{"elevators", "hr"}},
	} {
		existing, err := tenants.GetBySlug(ctx, st.slug)
		if err != nil {
			log.Fatalf("seed: lookup tenant %s: %v", st.slug, err)
		}
		if existing != nil {
			if err := moduleCache.SetModules(ctx, existing.ID, st.modules); err != nil {
				log.Fatalf("seed: refresh modules for %s: %v", st.slug, err)
			}
			tenantIDs[st.slug] = existing.ID
			continue
		}
		t := &tenantdomain.Tenant{
			ID:             uuid.New().String(),
			Name:           st.name,
			Slug:           st.slug,
			EnabledModules: st.modules,
			Status:         tenantdomain.TenantStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tenants.Create(ctx, t); err != nil {
			log.Fatalf("seed: create tenant %s: %v", st.slug, err)
		}
		tenantIDs[st.slug] = t.ID
	}

	seedUsers := []seedUser{
		{tenantSlug: acmeSlug, email: "owner@acme.test", name: "Acme Owner", role: userdomain.RoleOwner},
		{tenantSlug: acmeSlug, email: "manager@acme.test", name: "Acme Manager", role: userdomain.RoleManager},
		// Narrowed: the clerk sees accounting only, even though the tenant
		// also enables crm and inventory.
		{tenantSlug: acmeSlug, email: "clerk@acme.test", name: "Acme Clerk", role: userdomain.RoleStaff, modules: []string{"accounting"}},
		{tenantSlug: globexSlug, email: "admin@globex.test", name: "Globex Admin", role: userdomain.RoleAdmin},
	}
	for _, su := range seedUsers {
		existing, err := users.GetByEmail(ctx, su.email)
		if err != nil {
			log.Fatalf("seed: lookup user %s: %v", su.email, err)
		}
		if existing != nil {
			if err := users.UpdatePasswordHash(ctx, existing.ID, hash); err != nil {
				log.Fatalf("seed: reset password for %s: %v", su.email, err)
			}
			continue
		}
		u := &userdomain.User{
			ID:             uuid.New().String(),
			TenantID:       tenantIDs[su.tenantSlug],
			Email:          su.email,
			Name:           su.name,
			Role:           su.role,
			PasswordHash:   hash,
			EnabledModules: su.modules,
			Status:         userdomain.UserStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("seed: create user %s: %v", su.email, err)
		}
	}

	log.Printf("seed: upserted %d tenants and %d users (password %q)", len(tenantIDs), len(seedUsers), devPassword)
}
