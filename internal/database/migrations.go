package database

import (
	"github.com/sendeeapp/sendee-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Rider{},
		&models.UserAddress{},
		&models.Parcel{},
		&models.Delivery{},
		&models.RiderLocation{},
	)
	if err != nil {
		return err
	}

	// A parcel may accumulate delivery rows over its lifetime, but only one
	// may be live (not yet delivered) at a time.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_deliveries_one_live_per_parcel
		ON deliveries (parcel_id)
		WHERE status < 2 AND deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	// The busy-rider check scans on (rider_id, status) for every claim.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_deliveries_rider_status
		ON deliveries (rider_id, status)
	`).Error; err != nil {
		return err
	}

	return nil
}
