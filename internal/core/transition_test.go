package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitionFixture struct {
	parcels    *fakeParcelStore
	deliveries *fakeDeliveryStore
	uploader   *fakeUploader
	cache      *memoryCache

	mu                sync.Mutex
	deliveryStatusSet []models.DeliveryStatus
	parcelStatusSet   []models.ParcelStatus
}

func newTransitionFixture(current models.DeliveryStatus) *transitionFixture {
	f := &transitionFixture{cache: newMemoryCache()}
	rider := uint(3)

	f.deliveries = &fakeDeliveryStore{
		getFn: func(ctx context.Context, id uint) (*models.Delivery, error) {
			return &models.Delivery{ParcelID: 7, RiderID: &rider, Status: current}, nil
		},
		casStatusFn: func(ctx context.Context, id uint, from, to models.DeliveryStatus) (int64, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.deliveryStatusSet = append(f.deliveryStatusSet, to)
			return 1, nil
		},
		setProofImageFn: func(ctx context.Context, id uint, status models.DeliveryStatus, url string) error {
			return nil
		},
	}

	f.parcels = &fakeParcelStore{
		getFn: func(ctx context.Context, id uint) (*models.Parcel, error) {
			status := models.ParcelRiderAccepted
			f.mu.Lock()
			if n := len(f.parcelStatusSet); n > 0 {
				status = f.parcelStatusSet[n-1]
			}
			f.mu.Unlock()
			return &models.Parcel{SenderID: 1, ReceiverID: 2, Status: status}, nil
		},
		setFn: func(ctx context.Context, id uint, to models.ParcelStatus) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.parcelStatusSet = append(f.parcelStatusSet, to)
			return nil
		},
	}

	f.uploader = &fakeUploader{
		uploadFn: func(ctx context.Context, data, folder string) (string, error) {
			return "https://cdn.example.com/proof.jpg", nil
		},
	}
	return f
}

func (f *transitionFixture) engine() *Engine {
	return NewEngine(f.parcels, f.deliveries, f.uploader, f.cache)
}

func TestTransitionPickup(t *testing.T) {
	f := newTransitionFixture(models.DeliveryPending)

	delivery, parcel, err := f.engine().Transition(context.Background(), 5, models.DeliveryInTransit, "")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryInTransit, delivery.Status)
	assert.Equal(t, models.ParcelRiderPickedUp, parcel.Status)

	assert.Equal(t, []models.DeliveryStatus{models.DeliveryInTransit}, f.deliveryStatusSet)
	assert.Equal(t, []models.ParcelStatus{models.ParcelRiderPickedUp}, f.parcelStatusSet)
	assert.Equal(t, 1, f.cache.invalidatedAll)
}

func TestTransitionDelivered(t *testing.T) {
	f := newTransitionFixture(models.DeliveryInTransit)

	delivery, parcel, err := f.engine().Transition(context.Background(), 5, models.DeliveryDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, delivery.Status)
	assert.Equal(t, models.ParcelDelivered, parcel.Status)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	f := newTransitionFixture(models.DeliveryPending)

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryStatus(9), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Empty(t, f.deliveryStatusSet, "invalid input must not write")
}

func TestTransitionRejectsBackwardMove(t *testing.T) {
	f := newTransitionFixture(models.DeliveryInTransit)

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryPending, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Empty(t, f.deliveryStatusSet)
}

func TestTransitionRejectsSkippingPickup(t *testing.T) {
	f := newTransitionFixture(models.DeliveryPending)

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryDelivered, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestTransitionMissingDelivery(t *testing.T) {
	f := newTransitionFixture(models.DeliveryPending)
	f.deliveries.getFn = func(ctx context.Context, id uint) (*models.Delivery, error) {
		return nil, &apperrors.NotFoundError{Entity: "delivery", ID: id}
	}

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryInTransit, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestTransitionLostRaceLeavesConcurrentWriteIntact(t *testing.T) {
	f := newTransitionFixture(models.DeliveryInTransit)
	f.deliveries.casStatusFn = func(ctx context.Context, id uint, from, to models.DeliveryStatus) (int64, error) {
		return 0, nil // someone already moved the delivery past in_transit
	}

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryDelivered, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStaleTransition))
	assert.Empty(t, f.parcelStatusSet, "losing the race must not rewind the parcel")
	assert.Equal(t, 0, f.cache.invalidatedAll)
}

func TestTransitionParcelWriteFails(t *testing.T) {
	f := newTransitionFixture(models.DeliveryPending)
	f.parcels.setFn = func(ctx context.Context, id uint, to models.ParcelStatus) error {
		return errors.New("connection reset")
	}

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryInTransit, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPartialSync),
		"delivery moved but parcel did not: caller must learn about the drift")

	var partial *apperrors.PartialSyncError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, uint(5), partial.DeliveryID)
	assert.Equal(t, uint(7), partial.ParcelID)
}

func TestTransitionAttachesProofImageInBackground(t *testing.T) {
	f := newTransitionFixture(models.DeliveryInTransit)

	attached := make(chan string, 1)
	f.deliveries.setProofImageFn = func(ctx context.Context, id uint, status models.DeliveryStatus, url string) error {
		attached <- url
		return nil
	}

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryDelivered, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	select {
	case url := <-attached:
		assert.Equal(t, "https://cdn.example.com/proof.jpg", url)
	case <-time.After(2 * time.Second):
		t.Fatal("proof image was never attached")
	}
}

func TestTransitionProofUploadFailureIsSwallowed(t *testing.T) {
	f := newTransitionFixture(models.DeliveryInTransit)

	uploadTried := make(chan struct{}, 1)
	f.uploader.uploadFn = func(ctx context.Context, data, folder string) (string, error) {
		uploadTried <- struct{}{}
		return "", errors.New("bucket unreachable")
	}

	_, _, err := f.engine().Transition(context.Background(), 5, models.DeliveryDelivered, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err, "a lost photo must not fail the transition")

	select {
	case <-uploadTried:
	case <-time.After(2 * time.Second):
		t.Fatal("upload was never attempted")
	}
}
