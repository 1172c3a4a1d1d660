package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/ports"
)

// Seeder performs the one-time initialization of the role catalog and
// the root administrator account. Both steps are gated by persisted
// existence checks, so running it on every startup is safe.
type Seeder struct {
	users        ports.UserRepository
	roles        ports.RoleRepository
	userRoles    ports.UserRoleRepository
	rootPassword string
	logger       zerolog.Logger
}

func NewSeeder(
	users ports.UserRepository,
	roles ports.RoleRepository,
	userRoles ports.UserRoleRepository,
	rootPassword string,
	logger zerolog.Logger,
) *Seeder {
	return &Seeder{
		users:        users,
		roles:        roles,
		userRoles:    userRoles,
		rootPassword: rootPassword,
		logger:       logger,
	}
}

// Seed inserts the Administrator and Guest roles when the role catalog
// is empty, then the root administrator when the directory holds no
// users.
func (s *Seeder) Seed(ctx context.Context) error {
	roleCount, err := s.roles.Count(ctx)
	if err != nil {
		return fmt.Errorf("count roles: %w", err)
	}

	var administrator domain.Role
	if roleCount == 0 {
		created, err := s.roles.CreateAll(ctx, []domain.Role{
			{Name: domain.RoleAdministrator},
			{Name: domain.RoleGuest},
		})
		if err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		administrator = created[0]
		s.logger.Info().Msg("role catalog seeded")
	} else {
		existing, err := s.roles.FindByName(ctx, domain.RoleAdministrator)
		if err != nil {
			return fmt.Errorf("find administrator role: %w", err)
		}
		administrator = *existing
	}

	userCount, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(s.rootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	root := &domain.User{
		Surname:      "Root",
		Lastname:     "the First",
		Username:     "root",
		PasswordHash: string(digest),
	}
	if err := s.users.Create(ctx, root); err != nil {
		return fmt.Errorf("seed root user: %w", err)
	}
	if err := s.userRoles.CreateAll(ctx, []domain.UserRoleAssignment{
		{UserID: root.ID, RoleID: administrator.ID},
	}); err != nil {
		return fmt.Errorf("seed root assignment: %w", err)
	}

	s.logger.Info().Int64("user_id", root.ID).Msg("root administrator seeded")
	return nil
}
