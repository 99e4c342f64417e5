package service

import (
	"errors"
	"fmt"

	"license-binding-server/internal/database"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict covers every license-state rejection.
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrMismatch     = errors.New("password mismatch")
	// ErrStorageFailure is matched by every storage I/O or decode failure.
	ErrStorageFailure = database.ErrStorage
)

// Validation and login rejections. Each satisfies errors.Is(err, ErrConflict).
var (
	ErrBlocked          = reason(ErrConflict, "license is blocked")
	ErrExpired          = reason(ErrConflict, "license has expired")
	ErrHardwareMismatch = reason(ErrConflict, "hardware id does not match the license")
	ErrAlreadyConsumed  = reason(ErrConflict, "license has already been used")
	ErrNoLicense        = reason(ErrConflict, "user has no license")
)

var (
	ErrLicenseNotFound = reason(ErrNotFound, "license not found")
	ErrUserNotFound    = reason(ErrNotFound, "user not found")
	ErrUserExists      = reason(ErrAlreadyExists, "username already exists")
	ErrBadCredentials  = reason(ErrUnauthorized, "invalid username or password")
)

// reasonError pairs a taxonomy sentinel with a human-readable reason.
type reasonError struct {
	kind error
	msg  string
}

func reason(kind error, msg string) *reasonError {
	return &reasonError{kind: kind, msg: msg}
}

func invalidInput(format string, args ...interface{}) error {
	return reason(ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (e *reasonError) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *reasonError) Unwrap() error { return e.kind }

// Reason returns the caller-facing message for err. Storage failures and
// unknown errors get a generic message so internal state never leaks.
func Reason(err error) string {
	if errors.Is(err, ErrStorageFailure) {
		return "internal error"
	}
	var re *reasonError
	if errors.As(err, &re) {
		return re.msg
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid input"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrAlreadyExists):
		return "already exists"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrMismatch):
		return "unauthorized"
	}
	return "internal error"
}
