package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy returned to the API layer. Every error is a typed value the
// transport can map to an accurate response; none of them are process-fatal.
var (
	// ErrInvalidRange — malformed or past-dated date range; caller error.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidArgument — other malformed input, e.g. an empty dispute reason.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict — overlapping reservation; re-query busy ranges and pick
	// another range, retrying as-is will not succeed.
	ErrConflict = errors.New("reservation conflict")
	// ErrBusy — vehicle lock could not be acquired within the bounded wait;
	// transient, retry with backoff.
	ErrBusy = errors.New("vehicle busy, retry later")
	// ErrForbidden — actor is not authorized for this transition.
	ErrForbidden = errors.New("actor not allowed")
	// ErrInvalidState — an operation found its target in a state that does not
	// allow it: a report transition from the wrong status, a duplicate live
	// report, or a status compare-and-set that lost to a concurrent writer.
	ErrInvalidState = errors.New("state does not allow this operation")
	// ErrIllegalTransition — booking lifecycle equivalent of ErrInvalidState.
	ErrIllegalTransition = errors.New("illegal booking transition")
	// ErrNotFound — entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable — underlying storage failure; surfaced as-is, never
	// papered over with partial success.
	ErrUnavailable = errors.New("storage unavailable")
)

type OverlapKind string

const (
	OverlapFull    OverlapKind = "FULL"
	OverlapPartial OverlapKind = "PARTIAL"
)

// ConflictError carries the overlap kind of a rejected reservation. It never
// references the conflicting bookings or their renters.
type ConflictError struct {
	Kind OverlapKind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requested range conflicts with an existing reservation (%s overlap)", e.Kind)
}

// Is makes ConflictError match ErrConflict under errors.Is.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Unavailable wraps a storage error so callers can match ErrUnavailable while
// keeping the cause in the message.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
