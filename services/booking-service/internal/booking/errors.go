package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden means the caller does not own the shop the appointment belongs to.
	ErrForbidden = errors.New("shop does not belong to caller")
	// ErrDuplicateToken is returned by Tx.InsertAppointment when the token is already taken.
	ErrDuplicateToken = errors.New("duplicate appointment token")
	// ErrTokenSpaceExhausted means no free token was found within the retry budget.
	ErrTokenSpaceExhausted = errors.New("appointment token space exhausted")
)

// ValidationError is a malformed or missing input. No state was changed.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ConflictError is a request that is well formed but clashes with current
// state: slot full, blocked, same-day duplicate or already cancelled.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

func conflict(reason string) error { return &ConflictError{Reason: reason} }

func notFound(resource string) error { return &NotFoundError{Resource: resource} }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
