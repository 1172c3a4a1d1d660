package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/xapps/user-management-service/internal/api/metrics"
	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/ports"
)

const bearerTokenType = "Bearer"

// UserService is the façade over the user aggregate. Every write that
// touches both the user row and its role assignments runs as an ordered
// sequence of independent repository calls: there is no multi-entity
// transaction and no rollback. A failure after the primary write
// surfaces as *domain.PartialWriteError so the inconsistency is
// observable instead of silent.
type UserService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	userRoles ports.UserRoleRepository
	tokens    ports.TokenService
	logger    zerolog.Logger
}

func NewUserService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	userRoles ports.UserRoleRepository,
	tokens ports.TokenService,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		roles:     roles,
		userRoles: userRoles,
		tokens:    tokens,
		logger:    logger,
	}
}

// Login authenticates a username/password pair and issues a bearer
// token. Unknown user, missing roles, and wrong password all collapse
// to domain.ErrBadCredentials so callers cannot probe for usernames.
func (s *UserService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}

	roles, err := s.roles.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrBadCredentials
	}

	token, expiration, err := s.tokens.Issue(*user, roleNames(roles), time.Now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info().Str("username", user.Username).Int64("user_id", user.ID).Msg("user logged in")

	return &ports.LoginResult{Type: bearerTokenType, Token: token, Expiration: expiration}, nil
}

// ReadAll returns every user in the directory.
func (s *UserService) ReadAll(ctx context.Context) ([]domain.User, error) {
	return s.users.FindAll(ctx)
}

// Read returns one user by id.
func (s *UserService) Read(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// Create persists a new user and its role assignments. Stages, in
// order: validate username, write the user row, write the assignment
// rows. Password hashing runs concurrently with the validation reads
// and role resolution; everything completes before the user row is
// written.
func (s *UserService) Create(ctx context.Context, caller *domain.Principal, input ports.CreateUserInput) (*domain.User, error) {
	decision := s.decide(domain.AuthorizationRequest{
		Principal:    caller,
		AllowedRoles: []domain.RoleName{domain.RoleAdministrator},
		PendingWrite: pendingWrite(input.Roles),
	})
	if !decision.Allowed() {
		return nil, domain.ErrForbidden
	}

	// Hash while the uniqueness check and role resolution are in flight.
	type hashed struct {
		digest string
		err    error
	}
	hashCh := make(chan hashed, 1)
	go func() {
		digest, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		hashCh <- hashed{digest: string(digest), err: err}
	}()

	taken, err := s.users.ExistsByUsername(ctx, input.Username)
	if err != nil {
		metrics.UserWritesTotal.WithLabelValues("create", "failure").Inc()
		return nil, err
	}
	if taken {
		metrics.UserWritesTotal.WithLabelValues("create", "failure").Inc()
		return nil, fmt.Errorf("username %q: %w", input.Username, domain.ErrDuplicateUsername)
	}

	roles, err := s.resolveRoles(ctx, input.Roles)
	if err != nil {
		metrics.UserWritesTotal.WithLabelValues("create", "failure").Inc()
		return nil, err
	}

	hash := <-hashCh
	if hash.err != nil {
		metrics.UserWritesTotal.WithLabelValues("create", "failure").Inc()
		return nil, fmt.Errorf("hash password: %w", hash.err)
	}

	user := &domain.User{
		Surname:      input.Surname,
		Lastname:     input.Lastname,
		Username:     input.Username,
		PasswordHash: hash.digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		metrics.UserWritesTotal.WithLabelValues("create", "failure").Inc()
		return nil, err
	}

	if err := s.userRoles.CreateAll(ctx, assignmentsFor(user.ID, roles)); err != nil {
		// The user row is committed; it now has no roles until reconciled.
		return nil, s.partialWrite("create", domain.StageWriteAssignments, user.ID, err)
	}

	metrics.UserWritesTotal.WithLabelValues("create", "success").Inc()
	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user created")
	return user, nil
}

// Update applies a partial patch to a user. Absent fields keep their
// stored value; a supplied role list replaces the whole assignment set
// (delete all, then insert the new rows).
func (s *UserService) Update(ctx context.Context, caller *domain.Principal, id int64, input ports.UpdateUserInput) (*domain.User, error) {
	decision := s.decide(domain.AuthorizationRequest{
		Principal:       caller,
		AllowedRoles:    []domain.RoleName{domain.RoleAdministrator},
		ResourceOwnerID: &id,
		PendingWrite:    pendingWrite(input.Roles),
	})
	if !decision.Allowed() {
		return nil, domain.ErrForbidden
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		taken, err := s.users.ExistsByUsernameExcluding(ctx, id, *input.Username)
		if err != nil {
			metrics.UserWritesTotal.WithLabelValues("update", "failure").Inc()
			return nil, err
		}
		if taken {
			metrics.UserWritesTotal.WithLabelValues("update", "failure").Inc()
			return nil, fmt.Errorf("username %q: %w", *input.Username, domain.ErrDuplicateUsername)
		}
	}

	if input.Surname != nil {
		user.Surname = *input.Surname
	}
	if input.Lastname != nil {
		user.Lastname = *input.Lastname
	}
	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Password != nil {
		digest, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			metrics.UserWritesTotal.WithLabelValues("update", "failure").Inc()
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(digest)
	}

	if err := s.users.Update(ctx, user); err != nil {
		metrics.UserWritesTotal.WithLabelValues("update", "failure").Inc()
		return nil, err
	}

	if len(input.Roles) > 0 {
		// Resolve before touching the assignment rows so an unknown role
		// name leaves the current set intact.
		roles, err := s.roles.FindByNames(ctx, input.Roles)
		if err != nil {
			metrics.UserWritesTotal.WithLabelValues("update", "failure").Inc()
			return nil, err
		}
		if err := s.userRoles.DeleteByUserID(ctx, id); err != nil {
			return nil, s.partialWrite("update", domain.StageClearAssignments, id, err)
		}
		if err := s.userRoles.CreateAll(ctx, assignmentsFor(id, roles)); err != nil {
			// Old assignments are gone; the user holds no roles until
			// reconciled.
			return nil, s.partialWrite("update", domain.StageWriteAssignments, id, err)
		}
	}

	metrics.UserWritesTotal.WithLabelValues("update", "success").Inc()
	s.logger.Info().Int64("user_id", id).Msg("user updated")
	return user, nil
}

// Delete removes a user and all of its role assignments, user row
// first.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	exists, err := s.users.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}

	if err := s.users.DeleteByID(ctx, id); err != nil {
		metrics.UserWritesTotal.WithLabelValues("delete", "failure").Inc()
		return err
	}

	if err := s.userRoles.DeleteByUserID(ctx, id); err != nil {
		// The user row is gone but its assignment rows remain orphaned.
		return s.partialWrite("delete", domain.StageDeleteAssignments, id, err)
	}

	metrics.UserWritesTotal.WithLabelValues("delete", "success").Inc()
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) decide(req domain.AuthorizationRequest) domain.Decision {
	decision := domain.Decide(req)
	metrics.AuthzDecisionsTotal.WithLabelValues(decision.String()).Inc()
	return decision
}

// resolveRoles looks up the requested role names, defaulting to Guest
// when none were requested.
func (s *UserService) resolveRoles(ctx context.Context, names []domain.RoleName) ([]domain.Role, error) {
	if len(names) == 0 {
		guest, err := s.roles.FindByName(ctx, domain.RoleGuest)
		if err != nil {
			return nil, err
		}
		return []domain.Role{*guest}, nil
	}
	return s.roles.FindByNames(ctx, names)
}

func (s *UserService) partialWrite(operation string, stage domain.WriteStage, userID int64, err error) error {
	metrics.UserWritesTotal.WithLabelValues(operation, "failure").Inc()
	metrics.PartialWritesTotal.WithLabelValues(operation, string(stage)).Inc()
	s.logger.Error().Err(err).
		Str("operation", operation).
		Str("stage", string(stage)).
		Int64("user_id", userID).
		Msg("multi-entity write left partially applied")
	return &domain.PartialWriteError{Operation: operation, Stage: stage, Err: err}
}

func pendingWrite(roles []domain.RoleName) *domain.PendingWrite {
	if len(roles) == 0 {
		return nil
	}
	return &domain.PendingWrite{RequestedRoles: roles}
}

func roleNames(roles []domain.Role) []domain.RoleName {
	names := make([]domain.RoleName, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}

func assignmentsFor(userID int64, roles []domain.Role) []domain.UserRoleAssignment {
	assignments := make([]domain.UserRoleAssignment, 0, len(roles))
	for _, r := range roles {
		assignments = append(assignments, domain.UserRoleAssignment{UserID: userID, RoleID: r.ID})
	}
	return assignments
}
