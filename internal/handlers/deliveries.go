package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/internal/services"
	"gorm.io/gorm"
)

// GetAvailableParcels lists parcels waiting for a rider. When the rider
// passes its position (?lat=&lng=) each entry carries distance and ETA to
// the pickup point.
func GetAvailableParcels(projections *core.Projections) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		var riderLat, riderLng *float64
		if rawLat, rawLng := c.Query("lat"), c.Query("lng"); rawLat != "" && rawLng != "" {
			lat, errLat := strconv.ParseFloat(rawLat, 64)
			lng, errLng := strconv.ParseFloat(rawLng, 64)
			if errLat != nil || errLng != nil {
				c.JSON(400, gin.H{"error": "lat and lng must be numbers"})
				return
			}
			riderLat, riderLng = &lat, &lng
		}

		views, err := projections.AvailableParcels(c.Request.Context(), riderLat, riderLng)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"parcels": views})
	}
}

// AcceptParcel claims a waiting parcel for the authenticated rider. The
// claim either fully succeeds or leaves the parcel claimable; a lost race
// comes back as 409.
func AcceptParcel(db *gorm.DB, coordinator *core.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		parcelID, ok := pathID(c, "id")
		if !ok {
			return
		}
		riderID := accountID(c)

		delivery, err := coordinator.Claim(c.Request.Context(), parcelID, riderID)
		if err != nil {
			respondError(c, err)
			return
		}

		var parcel models.Parcel
		if result := db.First(&parcel, parcelID); result.Error == nil {
			hub.SendParcelClaimed(parcel.SenderID, parcel.ReceiverID, services.ParcelClaimed{
				ParcelID:   parcelID,
				DeliveryID: delivery.ID,
				RiderID:    riderID,
			})
		}

		c.JSON(200, gin.H{
			"message":  "Parcel accepted",
			"delivery": delivery,
		})
	}
}

type UpdateDeliveryStatusInput struct {
	Status *int   `json:"status" binding:"required"`
	Image  string `json:"image"` // optional base64 proof photo
}

// UpdateDeliveryStatus moves a delivery forward (pending -> in_transit ->
// delivered) and mirrors the change onto the parcel. The proof photo, when
// present, is stored in the background and never blocks the response.
func UpdateDeliveryStatus(db *gorm.DB, engine *core.Engine, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		deliveryID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var input UpdateDeliveryStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		// Only the rider holding the job may move it.
		var owned models.Delivery
		if result := db.Where("id = ? AND rider_id = ?", deliveryID, accountID(c)).
			First(&owned); result.Error != nil {
			c.JSON(403, gin.H{"error": "This delivery is not yours"})
			return
		}

		delivery, parcel, err := engine.Transition(
			c.Request.Context(), deliveryID, models.DeliveryStatus(*input.Status), input.Image)
		if err != nil {
			respondError(c, err)
			return
		}

		hub.SendDeliveryStatusChanged(parcel.SenderID, parcel.ReceiverID, delivery.RiderID,
			services.DeliveryStatusChanged{
				DeliveryID:   delivery.ID,
				ParcelID:     parcel.ID,
				Status:       delivery.Status,
				StatusLabel:  delivery.Status.Label(),
				ParcelStatus: parcel.Status,
			})

		c.JSON(200, gin.H{
			"message":  "Delivery status updated",
			"delivery": delivery,
			"parcel":   parcel,
		})
	}
}

func GetDelivery(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var delivery models.Delivery
		if result := db.Preload("Parcel").Preload("Parcel.Sender").
			Preload("Parcel.Receiver").Preload("Rider").
			First(&delivery, id); result.Error != nil {
			c.JSON(404, gin.H{"error": "Delivery not found"})
			return
		}

		c.JSON(200, gin.H{"delivery": delivery})
	}
}
