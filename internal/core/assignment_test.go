package core

import (
	"context"
	"errors"
	"testing"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testParcelID = uint(7)
	testRiderID  = uint(3)
)

// claimFixture wires a coordinator whose stores describe the happy path;
// individual tests override the step they want to fail.
type claimFixture struct {
	parcels    *fakeParcelStore
	deliveries *fakeDeliveryStore
	cache      *memoryCache

	casCalls []casCall
}

type casCall struct {
	from, to models.ParcelStatus
}

func newClaimFixture() *claimFixture {
	f := &claimFixture{cache: newMemoryCache()}

	f.parcels = &fakeParcelStore{
		getFn: func(ctx context.Context, id uint) (*models.Parcel, error) {
			return &models.Parcel{SenderID: 1, ReceiverID: 2, Status: models.ParcelWaitingForRider}, nil
		},
		casFn: func(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error) {
			f.casCalls = append(f.casCalls, casCall{from: from, to: to})
			return 1, nil
		},
	}

	delivery := &models.Delivery{ParcelID: testParcelID, Status: models.DeliveryPending}
	f.deliveries = &fakeDeliveryStore{
		countUnfinishedFn: func(ctx context.Context, riderID uint) (int64, error) { return 0, nil },
		claimedFn:         func(ctx context.Context, parcelID uint) (bool, error) { return false, nil },
		assignRiderFn:     func(ctx context.Context, parcelID, riderID uint) (int64, error) { return 1, nil },
		latestByParcelFn: func(ctx context.Context, parcelID uint) (*models.Delivery, error) {
			rider := testRiderID
			claimed := *delivery
			claimed.RiderID = &rider
			return &claimed, nil
		},
	}
	return f
}

func (f *claimFixture) coordinator() *Coordinator {
	return NewCoordinator(f.parcels, f.deliveries, f.cache)
}

func TestClaimSuccess(t *testing.T) {
	f := newClaimFixture()

	delivery, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.NoError(t, err)
	require.NotNil(t, delivery.RiderID)
	assert.Equal(t, testRiderID, *delivery.RiderID)

	require.Len(t, f.casCalls, 1)
	assert.Equal(t, models.ParcelWaitingForRider, f.casCalls[0].from)
	assert.Equal(t, models.ParcelRiderAccepted, f.casCalls[0].to)
	assert.Equal(t, 1, f.cache.invalidatedAll, "claim must invalidate the read views")
}

func TestClaimRiderBusy(t *testing.T) {
	f := newClaimFixture()
	f.deliveries.countUnfinishedFn = func(ctx context.Context, riderID uint) (int64, error) {
		return 1, nil
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRiderBusy))

	var busy *apperrors.RiderBusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, testRiderID, busy.RiderID)
	assert.Equal(t, 1, busy.ExistingJobs)
	assert.Empty(t, f.casCalls, "a busy rider must not reach the parcel write")
}

func TestClaimParcelNotWaiting(t *testing.T) {
	f := newClaimFixture()
	f.parcels.getFn = func(ctx context.Context, id uint) (*models.Parcel, error) {
		return &models.Parcel{Status: models.ParcelRiderPickedUp}, nil
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrParcelNotClaimable))
	assert.Empty(t, f.casCalls)
}

func TestClaimParcelMissing(t *testing.T) {
	f := newClaimFixture()
	f.parcels.getFn = func(ctx context.Context, id uint) (*models.Parcel, error) {
		return nil, &apperrors.NotFoundError{Entity: "parcel", ID: id}
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestClaimAlreadyTakenOnPrecheck(t *testing.T) {
	f := newClaimFixture()
	f.deliveries.claimedFn = func(ctx context.Context, parcelID uint) (bool, error) {
		return true, nil
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyClaimed))
	assert.Empty(t, f.casCalls)
}

func TestClaimLosesParcelWrite(t *testing.T) {
	f := newClaimFixture()
	f.parcels.casFn = func(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error) {
		f.casCalls = append(f.casCalls, casCall{from: from, to: to})
		return 0, nil // someone else moved the parcel first
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyClaimed))
	assert.Len(t, f.casCalls, 1, "no compensation needed when the first write loses")
}

func TestClaimLosesDeliveryWriteAndCompensates(t *testing.T) {
	f := newClaimFixture()
	f.deliveries.assignRiderFn = func(ctx context.Context, parcelID, riderID uint) (int64, error) {
		return 0, nil // another rider took the delivery slot
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyClaimed))

	// The winning parcel write must be reverted so the parcel stays claimable.
	require.Len(t, f.casCalls, 2)
	assert.Equal(t, casCall{from: models.ParcelRiderAccepted, to: models.ParcelWaitingForRider}, f.casCalls[1])
	assert.Equal(t, 0, f.cache.invalidatedAll)
}

func TestClaimCompensationFails(t *testing.T) {
	f := newClaimFixture()
	f.deliveries.assignRiderFn = func(ctx context.Context, parcelID, riderID uint) (int64, error) {
		return 0, errors.New("connection reset")
	}
	f.parcels.casFn = func(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error) {
		f.casCalls = append(f.casCalls, casCall{from: from, to: to})
		if from == models.ParcelRiderAccepted {
			return 0, errors.New("store down")
		}
		return 1, nil
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPartialSync),
		"a failed revert leaves the rows inconsistent and must say so")
}

func TestClaimReadBackFailureStillInvalidates(t *testing.T) {
	f := newClaimFixture()
	f.deliveries.latestByParcelFn = func(ctx context.Context, parcelID uint) (*models.Delivery, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.Equal(t, 1, f.cache.invalidatedAll,
		"the claim committed, so the stale feed must be dropped even when the read-back fails")
}

func TestClaimAssignErrorPropagatesAfterRevert(t *testing.T) {
	f := newClaimFixture()
	assignErr := errors.New("deadlock detected")
	f.deliveries.assignRiderFn = func(ctx context.Context, parcelID, riderID uint) (int64, error) {
		return 0, assignErr
	}

	_, err := f.coordinator().Claim(context.Background(), testParcelID, testRiderID)
	require.Error(t, err)
	assert.ErrorIs(t, err, assignErr)
	require.Len(t, f.casCalls, 2, "revert must still run before the error surfaces")
}
