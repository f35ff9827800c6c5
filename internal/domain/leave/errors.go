package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("overlapping leave request")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidState        = errors.New("invalid state")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError carries the active request that already covers the range.
type ConflictError struct {
	Existing LeaveRequest
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("overlapping leave request %s (%s to %s, %s)",
		e.Existing.ID, e.Existing.FromDate.Format(dateLayout), e.Existing.ToDate.Format(dateLayout), e.Existing.Status)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type InsufficientBalanceError struct {
	TrainerID string
	LeaveType LeaveType
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for trainer %s: available %s, requested %s",
		e.LeaveType, e.TrainerID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type StateError struct {
	RequestID  string
	Current    string
	Transition string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %s", e.Transition, e.RequestID, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// IsClientError reports whether err is caused by the caller rather than the infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidState)
}
