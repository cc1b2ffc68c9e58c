package core

import "github.com/pkg/errors"

var (
	// ErrUnauthenticated is returned when an operation requires an identity and none was asserted.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")

	// ErrForbidden is returned when the asserted identity may not perform the operation.
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a missing entity. Packages declare one sentinel per entity.
type NotFoundError struct {
	Entity string
}

func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

func (err NotFoundError) Error() string {
	return err.Entity + " not found"
}

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Message string
}

func NewConflictError(msg string) error {
	return &ConflictError{Message: msg}
}

func (err ConflictError) Error() string {
	return err.Message
}

// InvalidRoleError reports an operation that the caller's role can never perform.
type InvalidRoleError struct {
	Message string
}

func NewInvalidRoleError(msg string) error {
	return &InvalidRoleError{Message: msg}
}

func (err InvalidRoleError) Error() string {
	return err.Message
}

// IsNotFound reports whether the cause of err is a *NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
