package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/models"
)

// Function-field fakes for the store ports. Unset fields panic, which makes
// an unexpected call fail the test loudly.

type fakeParcelStore struct {
	getFn func(ctx context.Context, id uint) (*models.Parcel, error)
	casFn func(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error)
	setFn func(ctx context.Context, id uint, to models.ParcelStatus) error
}

func (f *fakeParcelStore) Get(ctx context.Context, id uint) (*models.Parcel, error) {
	return f.getFn(ctx, id)
}

func (f *fakeParcelStore) CompareAndSetStatus(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error) {
	return f.casFn(ctx, id, from, to)
}

func (f *fakeParcelStore) SetStatus(ctx context.Context, id uint, to models.ParcelStatus) error {
	return f.setFn(ctx, id, to)
}

type fakeDeliveryStore struct {
	getFn             func(ctx context.Context, id uint) (*models.Delivery, error)
	latestByParcelFn  func(ctx context.Context, parcelID uint) (*models.Delivery, error)
	countUnfinishedFn func(ctx context.Context, riderID uint) (int64, error)
	claimedFn         func(ctx context.Context, parcelID uint) (bool, error)
	assignRiderFn     func(ctx context.Context, parcelID, riderID uint) (int64, error)
	casStatusFn       func(ctx context.Context, id uint, from, to models.DeliveryStatus) (int64, error)
	setProofImageFn   func(ctx context.Context, id uint, status models.DeliveryStatus, url string) error
}

func (f *fakeDeliveryStore) Get(ctx context.Context, id uint) (*models.Delivery, error) {
	return f.getFn(ctx, id)
}

func (f *fakeDeliveryStore) LatestByParcel(ctx context.Context, parcelID uint) (*models.Delivery, error) {
	return f.latestByParcelFn(ctx, parcelID)
}

func (f *fakeDeliveryStore) CountUnfinishedByRider(ctx context.Context, riderID uint) (int64, error) {
	return f.countUnfinishedFn(ctx, riderID)
}

func (f *fakeDeliveryStore) ClaimedByAnyRider(ctx context.Context, parcelID uint) (bool, error) {
	return f.claimedFn(ctx, parcelID)
}

func (f *fakeDeliveryStore) AssignRider(ctx context.Context, parcelID, riderID uint) (int64, error) {
	return f.assignRiderFn(ctx, parcelID, riderID)
}

func (f *fakeDeliveryStore) CompareAndSetStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (int64, error) {
	return f.casStatusFn(ctx, id, from, to)
}

func (f *fakeDeliveryStore) SetProofImage(ctx context.Context, id uint, status models.DeliveryStatus, url string) error {
	return f.setProofImageFn(ctx, id, status, url)
}

type fakeProjectionStore struct {
	waitingParcelsFn        func(ctx context.Context) ([]models.Parcel, error)
	deliveriesByParcelIDsFn func(ctx context.Context, parcelIDs []uint) ([]models.Delivery, error)
	riderDeliveriesFn       func(ctx context.Context, riderID uint, statuses []models.DeliveryStatus) ([]models.Delivery, error)
	parcelsForUserFn        func(ctx context.Context, userID uint) ([]models.Parcel, error)
}

func (f *fakeProjectionStore) WaitingParcels(ctx context.Context) ([]models.Parcel, error) {
	return f.waitingParcelsFn(ctx)
}

func (f *fakeProjectionStore) DeliveriesByParcelIDs(ctx context.Context, parcelIDs []uint) ([]models.Delivery, error) {
	return f.deliveriesByParcelIDsFn(ctx, parcelIDs)
}

func (f *fakeProjectionStore) RiderDeliveries(ctx context.Context, riderID uint, statuses []models.DeliveryStatus) ([]models.Delivery, error) {
	return f.riderDeliveriesFn(ctx, riderID, statuses)
}

func (f *fakeProjectionStore) ParcelsForUser(ctx context.Context, userID uint) ([]models.Parcel, error) {
	return f.parcelsForUserFn(ctx, userID)
}

// memoryCache is an in-process Cache with the same miss-on-anything
// semantics as the Redis-backed one.
type memoryCache struct {
	entries        map[string][]byte
	invalidatedAll int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	raw, ok := m.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.entries[key] = raw
}

func (m *memoryCache) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		delete(m.entries, key)
	}
}

func (m *memoryCache) InvalidateAll(ctx context.Context) {
	m.entries = make(map[string][]byte)
	m.invalidatedAll++
}

type fakeUploader struct {
	uploadFn func(ctx context.Context, data, folder string) (string, error)
}

func (f *fakeUploader) UploadBase64(ctx context.Context, data, folder string) (string, error) {
	return f.uploadFn(ctx, data, folder)
}
