package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrRoleNotFound      = errors.New("role not found")
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrDuplicateUsername = errors.New("username not available")
	ErrUnknownRole       = errors.New("unknown role name")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidToken      = errors.New("invalid token")
	ErrDatabase          = errors.New("database failure")
)

// WriteStage identifies where inside an orchestrated write a failure
// occurred. The stages of one operation run strictly in order; there is
// no rollback once a stage has committed.
type WriteStage string

const (
	StageValidate          WriteStage = "validate"
	StageWriteUser         WriteStage = "write_user"
	StageWriteAssignments  WriteStage = "write_assignments"
	StageDeleteUser        WriteStage = "delete_user"
	StageDeleteAssignments WriteStage = "delete_assignments"
	StageClearAssignments  WriteStage = "clear_assignments"
)

// PartialWriteError reports that an orchestrated write failed after one
// or more of its stages had already committed, leaving the user and its
// role assignments inconsistent. It matches ErrDatabase for status
// mapping and unwraps to the underlying cause.
type PartialWriteError struct {
	Operation string
	Stage     WriteStage
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: partial write at stage %s: %v", e.Operation, e.Stage, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

func (e *PartialWriteError) Is(target error) bool { return target == ErrDatabase }
