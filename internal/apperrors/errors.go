package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors so callers can branch with errors.Is without depending on
// the concrete error types.
var (
	ErrValidation         = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrRiderBusy          = errors.New("rider has an unfinished job")
	ErrParcelNotClaimable = errors.New("parcel is not claimable")
	ErrAlreadyClaimed     = errors.New("parcel already claimed")
	ErrPartialSync        = errors.New("parcel and delivery status out of sync")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrUnknownStatus      = errors.New("unknown status")
	ErrStaleTransition    = errors.New("delivery status changed concurrently")
)

// ValidationError reports malformed input detected at the boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RiderBusyError rejects a claim from a rider that still holds a pending or
// in-transit delivery. ExistingJobs carries how many.
type RiderBusyError struct {
	RiderID      uint
	ExistingJobs int
}

func (e *RiderBusyError) Error() string {
	return fmt.Sprintf("rider %d has %d unfinished job(s)", e.RiderID, e.ExistingJobs)
}

func (e *RiderBusyError) Unwrap() error { return ErrRiderBusy }

// ParcelNotClaimableError rejects a claim on a parcel that is not waiting
// for a rider anymore (or never was).
type ParcelNotClaimableError struct {
	ParcelID uint
	Status   int
}

func (e *ParcelNotClaimableError) Error() string {
	return fmt.Sprintf("parcel %d cannot be claimed in status %d", e.ParcelID, e.Status)
}

func (e *ParcelNotClaimableError) Unwrap() error { return ErrParcelNotClaimable }

// AlreadyClaimedError is the expected loss-of-race outcome: another rider's
// conditional write landed first.
type AlreadyClaimedError struct {
	ParcelID uint
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("parcel %d was claimed by another rider", e.ParcelID)
}

func (e *AlreadyClaimedError) Unwrap() error { return ErrAlreadyClaimed }

// PartialSyncError reports that the delivery row was written but the
// mirrored parcel write failed. The reconciliation job repairs these.
type PartialSyncError struct {
	DeliveryID uint
	ParcelID   uint
	Cause      error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("delivery %d updated but parcel %d was not: %v", e.DeliveryID, e.ParcelID, e.Cause)
}

func (e *PartialSyncError) Unwrap() error { return ErrPartialSync }

// StoreUnavailableError reports that the store stayed unreachable after
// retries, or that its circuit breaker is open.
type StoreUnavailableError struct {
	Op    string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error { return ErrStoreUnavailable }

// StaleTransitionError reports a delivery transition whose conditional
// write found the row already moved past the observed status.
type StaleTransitionError struct {
	DeliveryID uint
	Expected   int
}

func (e *StaleTransitionError) Error() string {
	return fmt.Sprintf("delivery %d is no longer in status %d", e.DeliveryID, e.Expected)
}

func (e *StaleTransitionError) Unwrap() error { return ErrStaleTransition }

// UnknownStatusError reports a status literal outside the known vocabulary.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status %q", e.Value)
}

func (e *UnknownStatusError) Unwrap() error { return ErrUnknownStatus }

// HTTPStatus maps an error onto the status code the API responds with.
// Race losses are client errors, not server faults.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyClaimed),
		errors.Is(err, ErrStaleTransition):
		return http.StatusConflict
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrRiderBusy),
		errors.Is(err, ErrParcelNotClaimable),
		errors.Is(err, ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, ErrPartialSync):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
