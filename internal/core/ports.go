package core

import (
	"context"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/models"
)

// ParcelStore is the parcel slice of the store adapter the core depends on.
// Conditional updates must be single atomic statements reporting the
// affected-row count; zero rows is how a lost race is observed.
type ParcelStore interface {
	Get(ctx context.Context, id uint) (*models.Parcel, error)
	CompareAndSetStatus(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error)
	SetStatus(ctx context.Context, id uint, to models.ParcelStatus) error
}

// DeliveryStore is the delivery slice of the store adapter.
type DeliveryStore interface {
	Get(ctx context.Context, id uint) (*models.Delivery, error)
	LatestByParcel(ctx context.Context, parcelID uint) (*models.Delivery, error)
	CountUnfinishedByRider(ctx context.Context, riderID uint) (int64, error)
	ClaimedByAnyRider(ctx context.Context, parcelID uint) (bool, error)
	AssignRider(ctx context.Context, parcelID, riderID uint) (int64, error)
	CompareAndSetStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (int64, error)
	SetProofImage(ctx context.Context, id uint, status models.DeliveryStatus, url string) error
}

// ProjectionStore serves the read-side joins.
type ProjectionStore interface {
	WaitingParcels(ctx context.Context) ([]models.Parcel, error)
	DeliveriesByParcelIDs(ctx context.Context, parcelIDs []uint) ([]models.Delivery, error)
	RiderDeliveries(ctx context.Context, riderID uint, statuses []models.DeliveryStatus) ([]models.Delivery, error)
	ParcelsForUser(ctx context.Context, userID uint) ([]models.Parcel, error)
}

// Cache is best effort only: a miss and an outage look the same to the
// caller, and Set/Invalidate never report failure.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
	InvalidateAll(ctx context.Context)
}

// ImageUploader stores a base64-encoded image and returns its public URL.
type ImageUploader interface {
	UploadBase64(ctx context.Context, data, folder string) (string, error)
}
