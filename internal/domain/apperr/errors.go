// Package apperr holds the error kinds shared by the lifecycle services.
// Every business-rule failure unwraps to exactly one of the sentinel kinds so
// callers can classify with errors.Is. Anything that does not is a store
// failure and must be treated as "nothing was committed".
package apperr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation_error"
	KindInvalidState Kind = "invalid_state"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error is a business error carrying a user-facing message.
type Error struct {
	kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func InvalidState(format string, args ...any) error {
	return newError(ErrInvalidState, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

// InsufficientBalanceError reports a debit or request that exceeds the
// available balance of a benefit type that does not allow negatives.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient balance. Available: %s, Requested: %s", e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrValidation
}

// KindOf classifies err. Errors outside the taxonomy report KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

// Message returns the user-facing message of a business error, or fallback
// for store failures whose text must not leak.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var balanceErr *InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		return balanceErr.Error()
	}
	return fallback
}
