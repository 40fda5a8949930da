package models

import "gorm.io/gorm"

// UserAddress is one of a user's saved addresses. The earliest-created
// address is the user's primary address and cannot be deleted.
type UserAddress struct {
	gorm.Model
	MemberID         uint    `gorm:"not null;index" json:"memberId"`
	AddressText      string  `gorm:"not null" json:"addressText"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	PlaceID          string  `json:"placeId,omitempty"`
}

func (UserAddress) TableName() string {
	return "user_addresses"
}

// Text prefers the geocoder's formatted address over the raw user input.
func (a *UserAddress) Text() string {
	if a.FormattedAddress != "" {
		return a.FormattedAddress
	}
	return a.AddressText
}
