package ports

import (
	"context"

	"github.com/xapps/user-management-service/internal/core/domain"
)

// UserRepository defines the persistence capability for user records.
// Each call is an independent operation; there are no cross-call
// transactions.
type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// ExistsByUsernameExcluding reports whether a user other than id
	// already holds the username.
	ExistsByUsernameExcluding(ctx context.Context, id int64, username string) (bool, error)
	// Create persists a new user and fills in its generated ID.
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	DeleteByID(ctx context.Context, id int64) error
}
