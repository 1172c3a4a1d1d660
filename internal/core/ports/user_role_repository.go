package ports

import (
	"context"

	"github.com/xapps/user-management-service/internal/core/domain"
)

// UserRoleRepository defines persistence for the user/role join rows.
type UserRoleRepository interface {
	CreateAll(ctx context.Context, assignments []domain.UserRoleAssignment) error
	DeleteByUserID(ctx context.Context, userID int64) error
}
