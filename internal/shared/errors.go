package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the ledger error taxonomy. Services wrap these with
// fmt.Errorf and the HTTP layer maps them onto problem responses.
var (
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced entity is absent or archived.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller's scope does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated indicates the request carries no valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict indicates a uniqueness or dependent-record violation.
	ErrConflict = errors.New("conflict")
	// ErrStorage indicates a transaction or commit failure. Not retried.
	ErrStorage = errors.New("storage failure")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UserSafeMessage returns a message suitable for API consumers. Storage
// errors are not echoed back verbatim.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorage):
		return "a storage error occurred, please retry the request"
	default:
		return err.Error()
	}
}
