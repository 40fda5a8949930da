package repository

import (
	"context"
	"errors"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"gorm.io/gorm"
)

// ParcelRepository is the parcel side of the store adapter. Mutations are
// single-row UPDATE statements; the affected-row count is the race signal.
type ParcelRepository struct {
	db    *gorm.DB
	guard *Guard
}

func NewParcelRepository(db *gorm.DB) *ParcelRepository {
	return &ParcelRepository{db: db, guard: NewGuard("Postgres-Parcels")}
}

func (r *ParcelRepository) Get(ctx context.Context, id uint) (*models.Parcel, error) {
	var parcel models.Parcel
	err := r.guard.Do(ctx, "parcels.get", func(ctx context.Context) error {
		return r.db.WithContext(ctx).First(&parcel, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Entity: "parcel", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &parcel, nil
}

// CompareAndSetStatus transitions a parcel's status only if it still holds
// the expected prior value. Zero affected rows means another writer landed
// first, never an error.
func (r *ParcelRepository) CompareAndSetStatus(ctx context.Context, id uint, from, to models.ParcelStatus) (int64, error) {
	var affected int64
	err := r.guard.Do(ctx, "parcels.cas_status", func(ctx context.Context) error {
		res := r.db.WithContext(ctx).
			Model(&models.Parcel{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", to)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// SetStatus mirrors a delivery transition onto the parcel row.
func (r *ParcelRepository) SetStatus(ctx context.Context, id uint, to models.ParcelStatus) error {
	return r.guard.Do(ctx, "parcels.set_status", func(ctx context.Context) error {
		res := r.db.WithContext(ctx).
			Model(&models.Parcel{}).
			Where("id = ?", id).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
