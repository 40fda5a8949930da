package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapping(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{&ValidationError{Field: "status", Reason: "bad"}, ErrValidation},
		{&NotFoundError{Entity: "parcel", ID: 7}, ErrNotFound},
		{&RiderBusyError{RiderID: 3, ExistingJobs: 1}, ErrRiderBusy},
		{&ParcelNotClaimableError{ParcelID: 7, Status: 3}, ErrParcelNotClaimable},
		{&AlreadyClaimedError{ParcelID: 7}, ErrAlreadyClaimed},
		{&PartialSyncError{DeliveryID: 1, ParcelID: 7}, ErrPartialSync},
		{&StoreUnavailableError{Op: "parcels.get"}, ErrStoreUnavailable},
		{&UnknownStatusError{Value: "shipped"}, ErrUnknownStatus},
		{&StaleTransitionError{DeliveryID: 5, Expected: 1}, ErrStaleTransition},
	}

	for _, tt := range tests {
		assert.True(t, errors.Is(tt.err, tt.sentinel), "%T should unwrap to %v", tt.err, tt.sentinel)
	}
}

func TestErrorUnwrappingThroughWrap(t *testing.T) {
	err := fmt.Errorf("claim failed: %w", &AlreadyClaimedError{ParcelID: 42})
	assert.True(t, errors.Is(err, ErrAlreadyClaimed))

	var claimed *AlreadyClaimedError
	require.ErrorAs(t, err, &claimed)
	assert.Equal(t, uint(42), claimed.ParcelID)
}

func TestPartialSyncErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &PartialSyncError{DeliveryID: 1, ParcelID: 2, Cause: cause}
	assert.Contains(t, err.Error(), "delivery 1")
	assert.Contains(t, err.Error(), "parcel 2")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&NotFoundError{Entity: "parcel", ID: 7}, http.StatusNotFound},
		{&AlreadyClaimedError{ParcelID: 7}, http.StatusConflict},
		{&StaleTransitionError{DeliveryID: 5, Expected: 1}, http.StatusConflict},
		{&ValidationError{Field: "status", Reason: "bad"}, http.StatusBadRequest},
		{&RiderBusyError{RiderID: 3, ExistingJobs: 1}, http.StatusBadRequest},
		{&ParcelNotClaimableError{ParcelID: 7, Status: 3}, http.StatusBadRequest},
		{&UnknownStatusError{Value: "shipped"}, http.StatusBadRequest},
		{&StoreUnavailableError{Op: "parcels.get"}, http.StatusServiceUnavailable},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusRequestTimeout},
		{&PartialSyncError{DeliveryID: 1, ParcelID: 7}, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%T", tt.err)
	}
}
