package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweepStore struct {
	mismatches []MismatchRow
	stuck      []uint
	stuckErr   error
}

func (f *fakeSweepStore) MismatchedDeliveries(ctx context.Context) ([]MismatchRow, error) {
	return f.mismatches, nil
}

func (f *fakeSweepStore) StuckClaims(ctx context.Context, cutoff time.Time) ([]uint, error) {
	return f.stuck, f.stuckErr
}

type casCall struct {
	parcelID uint
	from, to models.ParcelStatus
}

type fakeParcelStore struct {
	calls    []casCall
	affected int64
	err      error
}

func (f *fakeParcelStore) Get(ctx context.Context, id uint) (*models.Parcel, error) {
	panic("not used by the sweep")
}

func (f *fakeParcelStore) CompareAndSetStatus(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error) {
	f.calls = append(f.calls, casCall{parcelID: id, from: from, to: to})
	return f.affected, f.err
}

func (f *fakeParcelStore) SetStatus(ctx context.Context, id uint, to models.ParcelStatus) error {
	panic("the sweep must only use conditional writes")
}

type countingCache struct {
	invalidatedAll int
}

func (c *countingCache) GetJSON(ctx context.Context, key string, dest interface{}) bool { return false }
func (c *countingCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
}
func (c *countingCache) Invalidate(ctx context.Context, keys ...string) {}
func (c *countingCache) InvalidateAll(ctx context.Context)              { c.invalidatedAll++ }

func TestSweepRepairsDriftedParcel(t *testing.T) {
	store := &fakeSweepStore{
		mismatches: []MismatchRow{{
			DeliveryID:     5,
			ParcelID:       7,
			DeliveryStatus: models.DeliveryInTransit,
			ParcelStatus:   models.ParcelRiderAccepted,
		}},
	}
	parcels := &fakeParcelStore{affected: 1}
	cache := &countingCache{}

	repaired, err := NewReconciler(store, parcels, cache).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	require.Len(t, parcels.calls, 1)
	assert.Equal(t, casCall{parcelID: 7, from: models.ParcelRiderAccepted, to: models.ParcelRiderPickedUp}, parcels.calls[0])
	assert.Equal(t, 1, cache.invalidatedAll)
}

func TestSweepReleasesParcelStrandedByFailedCompensation(t *testing.T) {
	// The shape a failed claim compensation leaves behind: parcel moved to
	// RIDER_ACCEPTED, delivery still unclaimed, revert write lost.
	store := &fakeSweepStore{stuck: []uint{7}}
	parcels := &fakeParcelStore{affected: 1}
	cache := &countingCache{}

	repaired, err := NewReconciler(store, parcels, cache).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	require.Len(t, parcels.calls, 1)
	assert.Equal(t, casCall{
		parcelID: 7,
		from:     models.ParcelRiderAccepted,
		to:       models.ParcelWaitingForRider,
	}, parcels.calls[0], "the parcel must become claimable again")
	assert.Equal(t, 1, cache.invalidatedAll)
}

func TestSweepSkipsUnknownDeliveryStatus(t *testing.T) {
	store := &fakeSweepStore{
		mismatches: []MismatchRow{{DeliveryID: 5, ParcelID: 7, DeliveryStatus: models.DeliveryStatus(9)}},
	}
	parcels := &fakeParcelStore{affected: 1}
	cache := &countingCache{}

	repaired, err := NewReconciler(store, parcels, cache).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, repaired)
	assert.Empty(t, parcels.calls)
	assert.Zero(t, cache.invalidatedAll, "nothing repaired, nothing to invalidate")
}

func TestSweepLostRaceCountsNothing(t *testing.T) {
	// Zero affected rows: a legitimate transition got there first.
	store := &fakeSweepStore{stuck: []uint{7}}
	parcels := &fakeParcelStore{affected: 0}
	cache := &countingCache{}

	repaired, err := NewReconciler(store, parcels, cache).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, repaired)
	assert.Zero(t, cache.invalidatedAll)
}

func TestSweepSurfacesScanErrors(t *testing.T) {
	store := &fakeSweepStore{stuckErr: errors.New("connection reset")}
	parcels := &fakeParcelStore{affected: 1}
	cache := &countingCache{}

	_, err := NewReconciler(store, parcels, cache).Sweep(context.Background())
	assert.Error(t, err)
}
