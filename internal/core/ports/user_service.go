package ports

import (
	"context"

	"github.com/xapps/user-management-service/internal/core/domain"
)

// CreateUserInput carries the fields of a user creation request.
// An empty Roles slice defaults the new user to the Guest role.
type CreateUserInput struct {
	Surname  string
	Lastname string
	Username string
	Password string
	Roles    []domain.RoleName
}

// UpdateUserInput carries a partial patch. Nil fields leave the stored
// value unchanged; a nil or empty Roles slice leaves the assignment set
// untouched.
type UpdateUserInput struct {
	Surname  *string
	Lastname *string
	Username *string
	Password *string
	Roles    []domain.RoleName
}

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	Type       string
	Token      string
	Expiration int64
}

// UserService is the façade the HTTP boundary talks to. Create and
// Update take the caller's principal (nil for anonymous callers) and
// render the authorization decision before any write happens.
type UserService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	ReadAll(ctx context.Context) ([]domain.User, error)
	Read(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, caller *domain.Principal, input CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, caller *domain.Principal, id int64, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}
