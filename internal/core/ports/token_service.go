package ports

import (
	"context"
	"time"

	"github.com/xapps/user-management-service/internal/core/domain"
)

// TokenService shapes and validates bearer token claims. Signing and
// signature verification belong to the underlying JWT implementation.
type TokenService interface {
	// Issue returns a signed token for the user and the unix expiration
	// second embedded in it.
	Issue(user domain.User, roles []domain.RoleName, now time.Time) (token string, expiration int64, err error)
	// Verify validates a raw token and returns the principal it carries.
	// Any failure collapses to domain.ErrInvalidToken.
	Verify(raw string) (*domain.Principal, error)
}

// Seeder initializes the role catalog and the root administrator once.
type Seeder interface {
	Seed(ctx context.Context) error
}
