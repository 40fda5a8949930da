package models

import "gorm.io/gorm"

// Delivery tracks a single rider's execution of a parcel's transport.
// Created together with the parcel with a null rider; claimed by setting
// RiderID through a conditional update. Pickup and dropoff coordinates are
// captured here at parcel-creation time so later edits to the sender's or
// receiver's saved addresses do not move an in-flight job.
type Delivery struct {
	gorm.Model
	ParcelID          uint           `gorm:"not null;index" json:"parcelId"`
	RiderID           *uint          `gorm:"index:idx_deliveries_rider_status" json:"riderId"`
	Status            DeliveryStatus `gorm:"not null;default:0;index:idx_deliveries_rider_status" json:"status"`
	PickupLatitude    float64        `json:"pickupLatitude"`
	PickupLongitude   float64        `json:"pickupLongitude"`
	PickupAddress     string         `json:"pickupAddress"`
	DeliveryLatitude  float64        `json:"deliveryLatitude"`
	DeliveryLongitude float64        `json:"deliveryLongitude"`
	DeliveryAddress   string         `json:"deliveryAddress"`
	PickupImage       string         `json:"pickupImage,omitempty"`
	DeliveryImage     string         `json:"deliveryImage,omitempty"`
	Parcel            Parcel         `gorm:"foreignKey:ParcelID" json:"parcel,omitempty"`
	Rider             *Rider         `gorm:"foreignKey:RiderID" json:"rider,omitempty"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

// Unfinished reports whether the delivery still blocks its rider from
// claiming another parcel.
func (d *Delivery) Unfinished() bool {
	return d.Status == DeliveryPending || d.Status == DeliveryInTransit
}
