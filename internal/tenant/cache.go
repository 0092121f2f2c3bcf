// Package tenant provides the tenant-scoped lookups the request path depends
// on, including the cached enabled-module set consulted on every permission
// check.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"saas-erp/backend/internal/tenant/domain"
	"saas-erp/backend/internal/tenant/repository"
)

// ErrTenantNotFound is returned when the tenant does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// cached is the Redis payload: the two fields the request path needs.
type cached struct {
	Modules []string `json:"modules"`
	Status  string   `json:"status"`
}

// ModuleCache serves tenant enabled-module sets from Redis with the tenant
// repository as fallback, so the permission gate never hits Postgres on the hot
// path. Redis being down or unset degrades to repository reads, never to
// request failures.
type ModuleCache struct {
	repo repository.Repository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewModuleCache returns a ModuleCache. rdb may be nil; then every lookup goes
// to the repository.
func NewModuleCache(repo repository.Repository, rdb *redis.Client, ttl time.Duration) *ModuleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ModuleCache{repo: repo, rdb: rdb, ttl: ttl}
}

func cacheKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s:modules", tenantID)
}

// Modules returns the tenant's enabled-module set and whether the tenant is
// active. Suspended tenants report active=false with their module set intact;
// callers must deny on inactive regardless of modules.
func (c *ModuleCache) Modules(ctx context.Context, tenantID string) (modules []string, active bool, err error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, cacheKey(tenantID)).Result()
		if err == nil {
			var v cached
			if jerr := json.Unmarshal([]byte(raw), &v); jerr == nil {
				return v.Modules, v.Status == string(domain.TenantStatusActive), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("tenant cache: redis get %s: %v", tenantID, err)
		}
	}

	t, err := c.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		return nil, false, ErrTenantNotFound
	}

	if c.rdb != nil {
		b, jerr := json.Marshal(cached{Modules: t.EnabledModules, Status: string(t.Status)})
		if jerr == nil {
			if serr := c.rdb.Set(ctx, cacheKey(tenantID), b, c.ttl).Err(); serr != nil {
				log.Printf("tenant cache: redis set %s: %v", tenantID, serr)
			}
		}
	}
	return t.EnabledModules, t.Status == domain.TenantStatusActive, nil
}

// SetModules replaces the tenant's enabled-module set in the repository and
// drops the cached entry so the next permission check reads the new set.
func (c *ModuleCache) SetModules(ctx context.Context, tenantID string, modules []string) error {
	if err := c.repo.UpdateEnabledModules(ctx, tenantID, modules); err != nil {
		return err
	}
	c.Invalidate(ctx, tenantID)
	return nil
}

// Invalidate drops the cached entry for the tenant. Called after module-set or
// status changes.
func (c *ModuleCache) Invalidate(ctx context.Context, tenantID string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		log.Printf("tenant cache: redis del %s: %v", tenantID, err)
	}
}
