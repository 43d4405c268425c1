// errors/store_errors.go
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPolicySetNotFound = errors.New("policy set not found")
	ErrInvalidPolicySet  = errors.New("invalid policy set")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)

// ValidationError rejects a malformed policy set at the store boundary. It
// carries every violation found, not just the first, so an author can fix a
// definition in one round trip.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy set: %s", strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPolicySet
}

// NotFoundError reports an unknown policy set id or version. Version 0 means
// the id itself was unknown.
type NotFoundError struct {
	ID      string
	Version int
}

func (e *NotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("policy set %q version %d not found", e.ID, e.Version)
	}
	return fmt.Sprintf("policy set %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrPolicySetNotFound
}
