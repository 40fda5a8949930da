package models

import "gorm.io/gorm"

// Parcel is the shippable item record. Status moves forward only:
// waiting (1) -> accepted (2) -> picked up (3) -> delivered (4).
// The 1->2 edge belongs to the assignment coordinator, the rest to the
// status transition engine.
type Parcel struct {
	gorm.Model
	SenderID    uint         `gorm:"not null;index" json:"senderId"`
	ReceiverID  uint         `gorm:"not null;index" json:"receiverId"`
	Description string       `gorm:"not null" json:"description"`
	ItemImage   string       `json:"itemImage,omitempty"`
	Status      ParcelStatus `gorm:"not null;default:1" json:"status"`
	Sender      User         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver    User         `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}
