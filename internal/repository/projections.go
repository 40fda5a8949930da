package repository

import (
	"context"

	"github.com/sendeeapp/sendee-backend/internal/models"
	"gorm.io/gorm"
)

// ProjectionRepository serves the read-only joins behind the cached views.
// It never writes.
type ProjectionRepository struct {
	db    *gorm.DB
	guard *Guard
}

func NewProjectionRepository(db *gorm.DB) *ProjectionRepository {
	return &ProjectionRepository{db: db, guard: NewGuard("Postgres-Projections")}
}

// WaitingParcels returns parcels still waiting for a rider, newest first,
// with sender and receiver contact loaded.
func (r *ProjectionRepository) WaitingParcels(ctx context.Context) ([]models.Parcel, error) {
	var parcels []models.Parcel
	err := r.guard.Do(ctx, "projections.waiting_parcels", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Preload("Sender").
			Preload("Receiver").
			Where("status = ?", models.ParcelWaitingForRider).
			Order("created_at DESC").
			Find(&parcels).Error
	})
	return parcels, err
}

// DeliveriesByParcelIDs returns every delivery row belonging to the given
// parcels, newest first so the first row per parcel is the current one.
func (r *ProjectionRepository) DeliveriesByParcelIDs(ctx context.Context, parcelIDs []uint) ([]models.Delivery, error) {
	if len(parcelIDs) == 0 {
		return nil, nil
	}
	var deliveries []models.Delivery
	err := r.guard.Do(ctx, "projections.deliveries_by_parcels", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Where("parcel_id IN ?", parcelIDs).
			Order("created_at DESC").
			Find(&deliveries).Error
	})
	return deliveries, err
}

// RiderDeliveries returns a rider's deliveries in the given status group,
// joined to the parcel and its counterpart users, newest first.
func (r *ProjectionRepository) RiderDeliveries(ctx context.Context, riderID uint, statuses []models.DeliveryStatus) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.guard.Do(ctx, "projections.rider_deliveries", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Preload("Parcel").
			Preload("Parcel.Sender").
			Preload("Parcel.Receiver").
			Where("rider_id = ? AND status IN ?", riderID, statuses).
			Order("created_at DESC").
			Find(&deliveries).Error
	})
	return deliveries, err
}

// ParcelsForUser returns parcels the user sent or will receive, with the
// counterpart users and their saved addresses loaded.
func (r *ProjectionRepository) ParcelsForUser(ctx context.Context, userID uint) ([]models.Parcel, error) {
	var parcels []models.Parcel
	err := r.guard.Do(ctx, "projections.parcels_for_user", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Preload("Sender").
			Preload("Sender.Addresses").
			Preload("Receiver").
			Preload("Receiver.Addresses").
			Where("sender_id = ? OR receiver_id = ?", userID, userID).
			Order("created_at DESC").
			Find(&parcels).Error
	})
	return parcels, err
}
