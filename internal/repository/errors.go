// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the lifecycle service to distinguish between failure
// scenarios. ErrForbidden indicates that the current identity is not
// authorized to act on a resource owned by someone else, while
// ErrConflict signals that a state transition is not defined from the
// record's current status (e.g. confirming a cancelled reservation).
package repository

import "errors"

// ErrReservationNotFound is returned when a reservation id is unknown to
// the store. The cancellation path deliberately reports ownership
// failures with this same error so callers cannot probe for existence.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate it into the same 404 body
// as ErrReservationNotFound so a foreign id is indistinguishable from a
// missing one.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as confirming a reservation that has already
// been cancelled. Handlers translate it into an HTTP 409 response whose
// body carries the current status when one was loaded.
var ErrConflict = errors.New("conflict")

// ErrDataIntegrity is returned when a persisted status value is not one
// of the three known states. It is never treated as a fourth state.
var ErrDataIntegrity = errors.New("invalid status value in store")
