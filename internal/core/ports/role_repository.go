package ports

import (
	"context"

	"github.com/xapps/user-management-service/internal/core/domain"
)

// RoleRepository defines lookup and seeding access to role definitions.
// Roles are written once during seeding and read-only afterwards.
type RoleRepository interface {
	Count(ctx context.Context) (int64, error)
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	// FindByNames resolves every given name; an unknown name fails the
	// whole lookup with domain.ErrUnknownRole.
	FindByNames(ctx context.Context, names []domain.RoleName) ([]domain.Role, error)
	FindByUserID(ctx context.Context, userID int64) ([]domain.Role, error)
	// CreateAll persists the given roles and fills in their generated IDs.
	CreateAll(ctx context.Context, roles []domain.Role) ([]domain.Role, error)
}
