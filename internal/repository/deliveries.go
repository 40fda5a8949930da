package repository

import (
	"context"
	"errors"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"gorm.io/gorm"
)

// DeliveryRepository is the delivery side of the store adapter.
type DeliveryRepository struct {
	db    *gorm.DB
	guard *Guard
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db, guard: NewGuard("Postgres-Deliveries")}
}

func (r *DeliveryRepository) Get(ctx context.Context, id uint) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.guard.Do(ctx, "deliveries.get", func(ctx context.Context) error {
		return r.db.WithContext(ctx).First(&delivery, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Entity: "delivery", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// LatestByParcel returns the most recent delivery row for a parcel. Older
// data may hold several rows per parcel; highest created_at wins.
func (r *DeliveryRepository) LatestByParcel(ctx context.Context, parcelID uint) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.guard.Do(ctx, "deliveries.latest_by_parcel", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Where("parcel_id = ?", parcelID).
			Order("created_at DESC").
			First(&delivery).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Entity: "delivery for parcel", ID: parcelID}
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// CountUnfinishedByRider counts the rider's deliveries in PENDING or
// IN_TRANSIT. Non-zero means the rider may not claim another parcel.
func (r *DeliveryRepository) CountUnfinishedByRider(ctx context.Context, riderID uint) (int64, error) {
	var count int64
	err := r.guard.Do(ctx, "deliveries.count_unfinished", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("rider_id = ? AND status IN ?", riderID,
				[]models.DeliveryStatus{models.DeliveryPending, models.DeliveryInTransit}).
			Count(&count).Error
	})
	return count, err
}

// ClaimedByAnyRider reports whether any delivery row for the parcel already
// carries a rider.
func (r *DeliveryRepository) ClaimedByAnyRider(ctx context.Context, parcelID uint) (bool, error) {
	var count int64
	err := r.guard.Do(ctx, "deliveries.claimed_check", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("parcel_id = ? AND rider_id IS NOT NULL", parcelID).
			Count(&count).Error
	})
	return count > 0, err
}

// AssignRider sets the rider on the parcel's delivery row only while the
// rider slot is still empty. Zero affected rows means a concurrent claimant
// won the slot.
func (r *DeliveryRepository) AssignRider(ctx context.Context, parcelID, riderID uint) (int64, error) {
	var affected int64
	err := r.guard.Do(ctx, "deliveries.assign_rider", func(ctx context.Context) error {
		res := r.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("parcel_id = ? AND rider_id IS NULL", parcelID).
			Updates(map[string]interface{}{
				"rider_id": riderID,
				"status":   models.DeliveryPending,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// CompareAndSetStatus moves a delivery's status only while it still holds
// the expected prior value. Zero affected rows means a concurrent writer
// moved the row first, never an error.
func (r *DeliveryRepository) CompareAndSetStatus(ctx context.Context, id uint, from, to models.DeliveryStatus) (int64, error) {
	var affected int64
	err := r.guard.Do(ctx, "deliveries.cas_status", func(ctx context.Context) error {
		res := r.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", to)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// SetProofImage attaches an uploaded proof image to a delivery. Called from
// the background upload path; best effort all the way down.
func (r *DeliveryRepository) SetProofImage(ctx context.Context, id uint, status models.DeliveryStatus, url string) error {
	column := "pickup_image"
	if status == models.DeliveryDelivered {
		column = "delivery_image"
	}
	return r.guard.Do(ctx, "deliveries.set_proof_image", func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("id = ?", id).
			Update(column, url).Error
	})
}
