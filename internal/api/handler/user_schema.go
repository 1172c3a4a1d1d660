package handler

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Type       string `json:"type"`
	Token      string `json:"token"`
	Expiration int64  `json:"expiration"`
}

type createUserRequest struct {
	Surname  string   `json:"surname" validate:"required"`
	Lastname string   `json:"lastname"`
	Username string   `json:"username" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles"`
}

// updateUserRequest is a partial patch: nil fields leave the stored
// value unchanged, and an absent role list leaves assignments alone.
type updateUserRequest struct {
	Surname  *string  `json:"surname"`
	Lastname *string  `json:"lastname"`
	Username *string  `json:"username"`
	Password *string  `json:"password"`
	Roles    []string `json:"roles"`
}

// userResponse is the public view of a user. It never carries the
// password digest.
type userResponse struct {
	ID       int64  `json:"id"`
	Surname  string `json:"surname"`
	Lastname string `json:"lastname"`
	Username string `json:"username"`
}
