package models

import "gorm.io/gorm"

// RiderLocation is the last reported GPS position of a rider.
type RiderLocation struct {
	gorm.Model
	RiderID   uint    `gorm:"uniqueIndex;not null" json:"riderId"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
}

func (RiderLocation) TableName() string {
	return "rider_locations"
}
