package internal

import (
	"errors"
	"fmt"
)

// ErrValidation is the class every request validation failure wraps, so
// handlers can map the whole family to a 400 with one errors.Is check.
var ErrValidation = errors.New("validation")

var (
	ErrURLRequired      = fmt.Errorf("%w: original url is required", ErrValidation)
	ErrAliasTooShort    = fmt.Errorf("%w: custom alias is too short", ErrValidation)
	ErrAliasTaken       = fmt.Errorf("%w: custom alias is already in use", ErrValidation)
	ErrExpirationInPast = fmt.Errorf("%w: expiration date must be in the future", ErrValidation)
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrUserNotFound = errors.New("user not found")

	// ErrForbidden signals a mutation attempted by someone other than the
	// link's owner, or an admin operation against a protected account.
	ErrForbidden = errors.New("operation not allowed")

	// ErrDuplicateCode is returned by LinkStore.Insert when the active-code
	// uniqueness constraint rejects the row. The service treats it as a
	// signal to generate a fresh code and retry.
	ErrDuplicateCode = errors.New("short code already in use")

	// ErrStoreUnavailable wraps driver level failures so callers can tell
	// an unreachable database apart from a missing row.
	ErrStoreUnavailable = errors.New("link store unavailable")
)
