package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/ports"
)

const (
	roleKeyPrefix = "role:name:"
	roleCacheTTL  = time.Hour
)

// CachedRoleRepository is a read-through cache over a RoleRepository.
// Role definitions are written once at seeding and read-only afterwards,
// so entries only ever expire, they are never invalidated. Per-user
// assignment lookups change with every write and bypass the cache.
type CachedRoleRepository struct {
	inner  ports.RoleRepository
	client *redis.Client
}

func NewCachedRoleRepository(inner ports.RoleRepository, client *redis.Client) *CachedRoleRepository {
	return &CachedRoleRepository{inner: inner, client: client}
}

func (c *CachedRoleRepository) Count(ctx context.Context) (int64, error) {
	return c.inner.Count(ctx)
}

func (c *CachedRoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	if role, ok := c.get(ctx, name); ok {
		return role, nil
	}

	role, err := c.inner.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.put(ctx, *role)
	return role, nil
}

func (c *CachedRoleRepository) FindByNames(ctx context.Context, names []domain.RoleName) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(names))
	for _, name := range names {
		role, ok := c.get(ctx, name)
		if !ok {
			// One miss means a round trip anyway; resolve the whole list
			// against the store so unknown-name errors stay consistent.
			resolved, err := c.inner.FindByNames(ctx, names)
			if err != nil {
				return nil, err
			}
			for _, r := range resolved {
				c.put(ctx, r)
			}
			return resolved, nil
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func (c *CachedRoleRepository) FindByUserID(ctx context.Context, userID int64) ([]domain.Role, error) {
	return c.inner.FindByUserID(ctx, userID)
}

func (c *CachedRoleRepository) CreateAll(ctx context.Context, roles []domain.Role) ([]domain.Role, error) {
	created, err := c.inner.CreateAll(ctx, roles)
	if err != nil {
		return nil, err
	}
	for _, r := range created {
		c.put(ctx, r)
	}
	return created, nil
}

// get returns the cached role, or false on miss or any cache failure.
// The cache is an optimization; failures fall back to the store.
func (c *CachedRoleRepository) get(ctx context.Context, name domain.RoleName) (*domain.Role, bool) {
	payload, err := c.client.Get(ctx, roleKey(name)).Bytes()
	if err != nil {
		return nil, false
	}
	var role domain.Role
	if err := json.Unmarshal(payload, &role); err != nil {
		return nil, false
	}
	return &role, true
}

func (c *CachedRoleRepository) put(ctx context.Context, role domain.Role) {
	payload, err := json.Marshal(role)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, roleKey(role.Name), payload, roleCacheTTL).Err()
}

func roleKey(name domain.RoleName) string {
	return fmt.Sprintf("%s%s", roleKeyPrefix, name)
}
