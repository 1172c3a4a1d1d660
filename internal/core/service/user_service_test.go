package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/ports"
)

// --- stub repositories -----------------------------------------------------

type stubUserRepo struct {
	users     map[int64]*domain.User
	nextID    int64
	createErr error
	deletes   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	return &clone
}

func (r *stubUserRepo) Count(context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *stubUserRepo) FindAll(context.Context) ([]domain.User, error) {
	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *u)
	}
	return all, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, domain.ErrUserNotFound)
}

func (r *stubUserRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) ExistsByUsernameExcluding(_ context.Context, id int64, username string) (bool, error) {
	for _, u := range r.users {
		if u.ID != id && u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("update user %d: %w", user.ID, domain.ErrDatabase)
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id int64) error {
	r.deletes++
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("delete user %d: %w", id, domain.ErrDatabase)
	}
	delete(r.users, id)
	return nil
}

type stubRoleRepo struct {
	roles  []domain.Role
	byUser map[int64][]domain.Role
}

func newStubRoleRepo(roles ...domain.Role) *stubRoleRepo {
	return &stubRoleRepo{roles: roles, byUser: make(map[int64][]domain.Role)}
}

func (r *stubRoleRepo) Count(context.Context) (int64, error) {
	return int64(len(r.roles)), nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			found := role
			return &found, nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, domain.ErrRoleNotFound)
}

func (r *stubRoleRepo) FindByNames(ctx context.Context, names []domain.RoleName) ([]domain.Role, error) {
	resolved := make([]domain.Role, 0, len(names))
	for _, name := range names {
		role, err := r.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", name, domain.ErrUnknownRole)
		}
		resolved = append(resolved, *role)
	}
	return resolved, nil
}

func (r *stubRoleRepo) FindByUserID(_ context.Context, userID int64) ([]domain.Role, error) {
	roles, ok := r.byUser[userID]
	if !ok || len(roles) == 0 {
		return nil, fmt.Errorf("roles for user %d: %w", userID, domain.ErrRoleNotFound)
	}
	return roles, nil
}

func (r *stubRoleRepo) CreateAll(_ context.Context, roles []domain.Role) ([]domain.Role, error) {
	created := make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		role.ID = int64(len(r.roles) + 1)
		r.roles = append(r.roles, role)
		created = append(created, role)
	}
	return created, nil
}

type stubUserRoleRepo struct {
	assignments []domain.UserRoleAssignment
	createErr   error
	deleteErr   error
	creates     int
	deletes     int
}

func (r *stubUserRoleRepo) CreateAll(_ context.Context, assignments []domain.UserRoleAssignment) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	r.assignments = append(r.assignments, assignments...)
	return nil
}

func (r *stubUserRoleRepo) DeleteByUserID(_ context.Context, userID int64) error {
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	kept := r.assignments[:0]
	for _, a := range r.assignments {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	r.assignments = kept
	return nil
}

func (r *stubUserRoleRepo) roleIDsOf(userID int64) []int64 {
	var ids []int64
	for _, a := range r.assignments {
		if a.UserID == userID {
			ids = append(ids, a.RoleID)
		}
	}
	return ids
}

// --- fixture ---------------------------------------------------------------

const (
	administratorRoleID = int64(1)
	guestRoleID         = int64(2)
)

func newFixture() (*UserService, *stubUserRepo, *stubRoleRepo, *stubUserRoleRepo) {
	users := newStubUserRepo()
	roles := newStubRoleRepo(
		domain.Role{ID: administratorRoleID, Name: domain.RoleAdministrator},
		domain.Role{ID: guestRoleID, Name: domain.RoleGuest},
	)
	userRoles := &stubUserRoleRepo{}
	tokens := NewTokenService("secret", time.Hour)
	svc := NewUserService(users, roles, userRoles, tokens, zerolog.Nop())
	return svc, users, roles, userRoles
}

func adminPrincipal() *domain.Principal {
	return &domain.Principal{Subject: domain.User{ID: 1, Username: "root"}, Roles: []domain.RoleName{domain.RoleAdministrator}}
}

func ownerPrincipal(id int64) *domain.Principal {
	return &domain.Principal{Subject: domain.User{ID: id, Username: "owner"}, Roles: []domain.RoleName{domain.RoleGuest}}
}

// --- create ----------------------------------------------------------------

func TestUserService_Create_DefaultsToGuest(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	user, err := svc.Create(context.Background(), nil, ports.CreateUserInput{
		Surname:  "Alice",
		Username: "alice",
		Password: "p@ss",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected generated id")
	}

	stored := users.users[user.ID]
	if stored == nil {
		t.Fatalf("user not persisted")
	}
	if stored.PasswordHash == "p@ss" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("p@ss")); err != nil {
		t.Fatalf("stored digest does not match password: %v", err)
	}

	ids := userRoles.roleIDsOf(user.ID)
	if len(ids) != 1 || ids[0] != guestRoleID {
		t.Fatalf("expected single guest assignment, got %v", ids)
	}
}

func TestUserService_Create_DuplicateUsername(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	if _, err := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	before := len(users.users)

	_, err := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "B", Username: "alice", Password: "y"})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if len(users.users) != before {
		t.Fatalf("duplicate create persisted a user")
	}
	if userRoles.creates != 1 {
		t.Fatalf("duplicate create touched assignments")
	}
}

func TestUserService_Create_UnknownRole(t *testing.T) {
	svc, users, _, _ := newFixture()

	_, err := svc.Create(context.Background(), adminPrincipal(), ports.CreateUserInput{
		Surname:  "A",
		Username: "alice",
		Password: "x",
		Roles:    []domain.RoleName{"Wizard"},
	})
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if len(users.users) != 0 {
		t.Fatalf("user persisted despite unknown role")
	}
}

func TestUserService_Create_AnonymousEscalationDenied(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	_, err := svc.Create(context.Background(), nil, ports.CreateUserInput{
		Surname:  "Eve",
		Username: "eve",
		Password: "x",
		Roles:    []domain.RoleName{domain.RoleAdministrator},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(users.users) != 0 || userRoles.creates != 0 {
		t.Fatalf("denied create produced side effects")
	}
}

func TestUserService_Create_AdminMayAssignAdministrator(t *testing.T) {
	svc, _, _, userRoles := newFixture()

	user, err := svc.Create(context.Background(), adminPrincipal(), ports.CreateUserInput{
		Surname:  "Bob",
		Username: "bob",
		Password: "x",
		Roles:    []domain.RoleName{domain.RoleAdministrator},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	ids := userRoles.roleIDsOf(user.ID)
	if len(ids) != 1 || ids[0] != administratorRoleID {
		t.Fatalf("expected administrator assignment, got %v", ids)
	}
}

func TestUserService_Create_AuthenticatedNonAdminDenied(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.Create(context.Background(), ownerPrincipal(7), ports.CreateUserInput{
		Surname:  "C",
		Username: "carol",
		Password: "x",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for authenticated non-admin creator, got %v", err)
	}
}

func TestUserService_Create_PartialWriteSurfaced(t *testing.T) {
	svc, users, _, userRoles := newFixture()
	userRoles.createErr = errors.New("connection reset")

	_, err := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var partial *domain.PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialWriteError, got %T: %v", err, err)
	}
	if partial.Operation != "create" || partial.Stage != domain.StageWriteAssignments {
		t.Fatalf("unexpected partial write detail: %+v", partial)
	}
	if !errors.Is(err, domain.ErrDatabase) {
		t.Fatalf("partial write should map to ErrDatabase")
	}
	// The documented consistency gap: the user row stays committed.
	if len(users.users) != 1 {
		t.Fatalf("expected the orphaned user row to remain")
	}
}

// --- update ----------------------------------------------------------------

func TestUserService_Update_PartialPatch(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	created, err := svc.Create(context.Background(), nil, ports.CreateUserInput{
		Surname:  "Alice",
		Lastname: "Smith",
		Username: "alice",
		Password: "p@ss",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	originalHash := users.users[created.ID].PasswordHash

	surname := "X"
	updated, err := svc.Update(context.Background(), ownerPrincipal(created.ID), created.ID, ports.UpdateUserInput{Surname: &surname})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Surname != "X" || updated.Lastname != "Smith" || updated.Username != "alice" {
		t.Fatalf("patch touched unspecified fields: %+v", updated)
	}
	if users.users[created.ID].PasswordHash != originalHash {
		t.Fatalf("password digest changed without a new password")
	}
	if ids := userRoles.roleIDsOf(created.ID); len(ids) != 1 || ids[0] != guestRoleID {
		t.Fatalf("assignments changed without a role list: %v", ids)
	}
}

func TestUserService_Update_Idempotent(t *testing.T) {
	svc, users, _, _ := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "p@ss"})

	surname, username, password := "New", "alice2", "s3cret"
	input := ports.UpdateUserInput{Surname: &surname, Username: &username, Password: &password}

	first, err := svc.Update(context.Background(), adminPrincipal(), created.ID, input)
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	second, err := svc.Update(context.Background(), adminPrincipal(), created.ID, input)
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	if first.Surname != second.Surname || first.Username != second.Username || first.Lastname != second.Lastname {
		t.Fatalf("repeated update diverged: %+v vs %+v", first, second)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users.users[created.ID].PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("stored digest does not match new password: %v", err)
	}
}

func TestUserService_Update_OwnerCannotSelfElevate(t *testing.T) {
	svc, users, _, _ := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})

	_, err := svc.Update(context.Background(), ownerPrincipal(created.ID), created.ID, ports.UpdateUserInput{
		Roles: []domain.RoleName{domain.RoleAdministrator},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for self-elevation, got %v", err)
	}

	surname := "X"
	if _, err := svc.Update(context.Background(), ownerPrincipal(created.ID), created.ID, ports.UpdateUserInput{Surname: &surname}); err != nil {
		t.Fatalf("harmless self-update denied: %v", err)
	}
	if users.users[created.ID].Surname != "X" {
		t.Fatalf("surname not updated")
	}
}

func TestUserService_Update_ReplacesRoleSet(t *testing.T) {
	svc, _, _, userRoles := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})

	_, err := svc.Update(context.Background(), adminPrincipal(), created.ID, ports.UpdateUserInput{
		Roles: []domain.RoleName{domain.RoleAdministrator, domain.RoleGuest},
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	ids := userRoles.roleIDsOf(created.ID)
	if len(ids) != 2 {
		t.Fatalf("expected replaced assignment set, got %v", ids)
	}
	if userRoles.deletes != 1 {
		t.Fatalf("expected one delete-then-insert replacement, deletes=%d", userRoles.deletes)
	}
}

func TestUserService_Update_RoleReplacePartialWrite(t *testing.T) {
	svc, _, _, userRoles := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})
	userRoles.createErr = errors.New("connection reset")

	_, err := svc.Update(context.Background(), adminPrincipal(), created.ID, ports.UpdateUserInput{
		Roles: []domain.RoleName{domain.RoleGuest},
	})

	var partial *domain.PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialWriteError, got %v", err)
	}
	if partial.Operation != "update" || partial.Stage != domain.StageWriteAssignments {
		t.Fatalf("unexpected partial write detail: %+v", partial)
	}
	// Old assignments were deleted, the new set never landed.
	if ids := userRoles.roleIDsOf(created.ID); len(ids) != 0 {
		t.Fatalf("expected user left without roles, got %v", ids)
	}
}

func TestUserService_Update_DuplicateUsername(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, _ = svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})
	bob, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "B", Username: "bob", Password: "x"})

	taken := "alice"
	_, err := svc.Update(context.Background(), adminPrincipal(), bob.ID, ports.UpdateUserInput{Username: &taken})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	// Re-submitting the current username is not a conflict.
	same := "bob"
	if _, err := svc.Update(context.Background(), adminPrincipal(), bob.ID, ports.UpdateUserInput{Username: &same}); err != nil {
		t.Fatalf("same-username update failed: %v", err)
	}
}

func TestUserService_Update_NotFound(t *testing.T) {
	svc, _, _, _ := newFixture()

	surname := "X"
	_, err := svc.Update(context.Background(), adminPrincipal(), 999, ports.UpdateUserInput{Surname: &surname})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// --- delete ----------------------------------------------------------------

func TestUserService_Delete_Success(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(users.users) != 0 {
		t.Fatalf("user row still present")
	}
	if ids := userRoles.roleIDsOf(created.ID); len(ids) != 0 {
		t.Fatalf("assignments still present: %v", ids)
	}
}

func TestUserService_Delete_NotFound(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	err := svc.Delete(context.Background(), 999)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if users.deletes != 0 || userRoles.deletes != 0 {
		t.Fatalf("delete of missing user attempted writes")
	}
}

func TestUserService_Delete_PartialWrite(t *testing.T) {
	svc, users, _, userRoles := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})
	userRoles.deleteErr = errors.New("connection reset")

	err := svc.Delete(context.Background(), created.ID)

	var partial *domain.PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialWriteError, got %v", err)
	}
	if partial.Operation != "delete" || partial.Stage != domain.StageDeleteAssignments {
		t.Fatalf("unexpected partial write detail: %+v", partial)
	}
	// The user row is gone; its assignment rows are orphaned.
	if len(users.users) != 0 {
		t.Fatalf("user row should be deleted")
	}
	if ids := userRoles.roleIDsOf(created.ID); len(ids) == 0 {
		t.Fatalf("expected orphaned assignment rows to remain")
	}
}

// --- login -----------------------------------------------------------------

func TestUserService_Login_SeededRoot(t *testing.T) {
	svc, users, roles, _ := newFixture()

	digest, _ := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	root := &domain.User{Surname: "Root", Lastname: "the First", Username: "root", PasswordHash: string(digest)}
	_ = users.Create(context.Background(), root)
	roles.byUser[root.ID] = []domain.Role{{ID: administratorRoleID, Name: domain.RoleAdministrator}}

	result, err := svc.Login(context.Background(), "root", "123456")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Type != "Bearer" {
		t.Fatalf("expected Bearer token type, got %q", result.Type)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(result.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if roles, _ := claims["roles"].(string); roles != "Administrator" {
		t.Fatalf("unexpected roles claim: %v", claims["roles"])
	}
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	if exp <= iat {
		t.Fatalf("expiration %v not after issued-at %v", exp, iat)
	}
	if result.Expiration != int64(exp) {
		t.Fatalf("response expiration %d does not match claim %v", result.Expiration, exp)
	}
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	svc, users, roles, _ := newFixture()

	digest, _ := bcrypt.GenerateFromPassword([]byte("goodpass"), bcrypt.DefaultCost)
	u := &domain.User{Surname: "D", Username: "dave", PasswordHash: string(digest)}
	_ = users.Create(context.Background(), u)
	roles.byUser[u.ID] = []domain.Role{{ID: guestRoleID, Name: domain.RoleGuest}}

	if _, err := svc.Login(context.Background(), "dave", "badpass"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestUserService_Login_UnknownUser(t *testing.T) {
	svc, _, _, _ := newFixture()

	// Indistinguishable from a wrong password.
	if _, err := svc.Login(context.Background(), "ghost", "pass"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestUserService_Login_UserWithoutRoles(t *testing.T) {
	svc, users, _, _ := newFixture()

	digest, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.DefaultCost)
	u := &domain.User{Surname: "N", Username: "noroles", PasswordHash: string(digest)}
	_ = users.Create(context.Background(), u)

	if _, err := svc.Login(context.Background(), "noroles", "pass"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

// --- reads -----------------------------------------------------------------

func TestUserService_Read(t *testing.T) {
	svc, _, _, _ := newFixture()

	created, _ := svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})

	got, err := svc.Read(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := svc.Read(context.Background(), 999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_ReadAll(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, _ = svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "A", Username: "alice", Password: "x"})
	_, _ = svc.Create(context.Background(), nil, ports.CreateUserInput{Surname: "B", Username: "bob", Password: "x"})

	all, err := svc.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 users, got %d", len(all))
	}
}
