package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Rider delivers parcels. A rider's availability is derived, never stored:
// a rider is busy while it holds a delivery in PENDING or IN_TRANSIT.
type Rider struct {
	gorm.Model
	Name         string `gorm:"column:name;not null" json:"name"`
	Phone        string `gorm:"column:phone;unique;not null" json:"phone"`
	Password     string `gorm:"-:all" json:"-"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	ProfileImage string `gorm:"column:profile_image" json:"profileImage,omitempty"`
	VehicleImage string `gorm:"column:vehicle_image" json:"vehicleImage,omitempty"`
	LicensePlate string `gorm:"column:license_plate" json:"licensePlate,omitempty"`
	Location     string `gorm:"column:location" json:"location,omitempty"`
}

func (Rider) TableName() string {
	return "riders"
}

func (r *Rider) HashPassword() error {
	if r.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	r.PasswordHash = string(hashedPassword)
	return nil
}

func (r *Rider) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password))
}
