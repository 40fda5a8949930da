package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/internal/services"
	"gorm.io/gorm"
)

type PointInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

type CreateParcelInput struct {
	ReceiverID  uint        `json:"receiverId" binding:"required"`
	Description string      `json:"description" binding:"required"`
	ItemImage   string      `json:"itemImage"` // base64
	Pickup      *PointInput `json:"pickup"`
	Dropoff     *PointInput `json:"dropoff"`
}

// CreateParcel registers a parcel and its delivery row in one request. The
// delivery row captures pickup and dropoff coordinates immediately; when the
// request omits them they are resolved from the sender's and receiver's most
// recent saved address.
func CreateParcel(db *gorm.DB, cache core.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		var input CreateParcelInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		senderID := accountID(c)
		if input.ReceiverID == senderID {
			c.JSON(400, gin.H{"error": "Cannot send a parcel to yourself"})
			return
		}

		var receiver models.User
		if result := db.First(&receiver, input.ReceiverID); result.Error != nil {
			c.JSON(404, gin.H{"error": "Receiver not found"})
			return
		}

		pickup, err := resolvePoint(db, input.Pickup, senderID)
		if err != nil {
			c.JSON(400, gin.H{"error": "Pickup location missing and sender has no saved address"})
			return
		}
		dropoff, err := resolvePoint(db, input.Dropoff, input.ReceiverID)
		if err != nil {
			c.JSON(400, gin.H{"error": "Dropoff location missing and receiver has no saved address"})
			return
		}

		var itemImageURL string
		if input.ItemImage != "" {
			url, err := services.UploadBase64Image(c.Request.Context(), input.ItemImage, "parcels")
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to upload item image"})
				return
			}
			itemImageURL = url
		}

		parcel := models.Parcel{
			SenderID:    senderID,
			ReceiverID:  input.ReceiverID,
			Description: input.Description,
			ItemImage:   itemImageURL,
			Status:      models.ParcelWaitingForRider,
		}
		if result := db.Create(&parcel); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to create parcel"})
			return
		}

		delivery := models.Delivery{
			ParcelID:          parcel.ID,
			Status:            models.DeliveryPending,
			PickupLatitude:    pickup.Latitude,
			PickupLongitude:   pickup.Longitude,
			PickupAddress:     pickup.Address,
			DeliveryLatitude:  dropoff.Latitude,
			DeliveryLongitude: dropoff.Longitude,
			DeliveryAddress:   dropoff.Address,
		}
		if result := db.Create(&delivery); result.Error != nil {
			// Don't leave a parcel without coordinates for riders to claim.
			db.Unscoped().Delete(&parcel)
			c.JSON(500, gin.H{"error": "Failed to create delivery"})
			return
		}

		cache.InvalidateAll(c.Request.Context())

		c.JSON(201, gin.H{
			"message":  "Parcel created successfully",
			"parcel":   parcel,
			"delivery": delivery,
		})
	}
}

type resolvedPoint struct {
	Latitude  float64
	Longitude float64
	Address   string
}

func resolvePoint(db *gorm.DB, input *PointInput, userID uint) (*resolvedPoint, error) {
	if input != nil && input.Latitude != nil && input.Longitude != nil {
		return &resolvedPoint{
			Latitude:  *input.Latitude,
			Longitude: *input.Longitude,
			Address:   input.Address,
		}, nil
	}

	var address models.UserAddress
	if result := db.Where("member_id = ?", userID).
		Order("created_at DESC").First(&address); result.Error != nil {
		return nil, result.Error
	}
	return &resolvedPoint{
		Latitude:  address.Latitude,
		Longitude: address.Longitude,
		Address:   address.Text(),
	}, nil
}

// GetParcels lists the authenticated user's parcels, optionally filtered by
// status. The filter accepts numeric codes and the text vocabulary
// ("waitingForRider", "pickedUp", ...).
func GetParcels(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		userID := accountID(c)
		query := db.Preload("Sender").Preload("Receiver").
			Where("sender_id = ? OR receiver_id = ?", userID, userID).
			Order("created_at DESC")

		if raw := c.Query("status"); raw != "" {
			status, err := models.ParseParcelStatus(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			query = query.Where("status = ?", status)
		}

		var parcels []models.Parcel
		if result := query.Find(&parcels); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch parcels"})
			return
		}

		c.JSON(200, gin.H{"parcels": parcels})
	}
}

func GetParcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var parcel models.Parcel
		if result := db.Preload("Sender").Preload("Receiver").
			First(&parcel, id); result.Error != nil {
			c.JSON(404, gin.H{"error": "Parcel not found"})
			return
		}

		var delivery models.Delivery
		var deliveryOut interface{}
		if result := db.Where("parcel_id = ?", id).
			Order("created_at DESC").First(&delivery); result.Error == nil {
			deliveryOut = delivery
		}

		c.JSON(200, gin.H{"parcel": parcel, "delivery": deliveryOut})
	}
}

type UpdateParcelStatusInput struct {
	Status string `json:"status" binding:"required"`
	Image  string `json:"image"` // optional base64 proof photo
}

// UpdateParcelStatus moves a parcel by its status vocabulary. The write is
// routed through the delivery row so the two status fields cannot drift:
// "pickedUp" on the parcel is the same transition as in_transit on its
// delivery.
func UpdateParcelStatus(db *gorm.DB, engine *core.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var input UpdateParcelStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		parcelStatus, err := models.ParseParcelStatus(input.Status)
		if err != nil {
			respondError(c, err)
			return
		}

		deliveryStatus, ok := models.DeliveryStatusFor(parcelStatus)
		if !ok {
			c.JSON(400, gin.H{"error": "Status " + parcelStatus.Label() + " cannot be set directly"})
			return
		}

		var delivery models.Delivery
		if result := db.Where("parcel_id = ?", id).
			Order("created_at DESC").First(&delivery); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Parcel has no delivery"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch delivery"})
			return
		}

		updatedDelivery, updatedParcel, err := engine.Transition(
			c.Request.Context(), delivery.ID, deliveryStatus, input.Image)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{
			"message":  "Parcel status updated",
			"parcel":   updatedParcel,
			"delivery": updatedDelivery,
		})
	}
}

// GetUserParcels returns the denormalized parcel feed for the home screen.
func GetUserParcels(projections *core.Projections) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		views, err := projections.UserParcels(c.Request.Context(), accountID(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"parcels": views})
	}
}
