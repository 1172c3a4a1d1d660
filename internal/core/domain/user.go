package domain

// RoleName is the closed set of role identifiers understood by the
// authorization rules. Roles themselves are rows, so deployments can add
// more; only these two names carry special meaning.
type RoleName string

const (
	RoleAdministrator RoleName = "Administrator"
	RoleGuest         RoleName = "Guest"
)

// User is an identity record in the directory. ID zero means the record
// has not been persisted yet. PasswordHash is never serialized.
type User struct {
	ID           int64  `json:"id"`
	Surname      string `json:"surname"`
	Lastname     string `json:"lastname"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Role is a named permission class.
type Role struct {
	ID   int64    `json:"id"`
	Name RoleName `json:"value"`
}

// UserRoleAssignment links one user to one role. The pair is the primary
// key: the same user+role pair may not be assigned twice.
type UserRoleAssignment struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}
