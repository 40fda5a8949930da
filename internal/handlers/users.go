package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/internal/services"
	"gorm.io/gorm"
)

const (
	usersListKey      = "users_list"
	userAddressKeyFmt = "user_addresses_%d"
	listCacheTTL      = time.Minute
)

// GetUsers lists registered users so a sender can pick a receiver. The
// unfiltered list is cached; searches always hit the store.
func GetUsers(db *gorm.DB, cache core.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := c.Query("search")

		var out []gin.H
		if search == "" && cache.GetJSON(c.Request.Context(), usersListKey, &out) {
			c.JSON(200, gin.H{"users": out})
			return
		}

		var users []models.User
		query := db.Order("username ASC")
		if search != "" {
			query = query.Where("username ILIKE ? OR phone LIKE ?", "%"+search+"%", search+"%")
		}
		if result := query.Find(&users); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch users"})
			return
		}

		out = make([]gin.H, 0, len(users))
		for _, user := range users {
			out = append(out, gin.H{
				"id":           user.ID,
				"username":     user.Username,
				"phone":        user.Phone,
				"profileImage": user.ProfileImage,
			})
		}
		if search == "" {
			cache.SetJSON(c.Request.Context(), usersListKey, out, listCacheTTL)
		}
		c.JSON(200, gin.H{"users": out})
	}
}

func GetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var user models.User
		if result := db.Preload("Addresses").First(&user, id); result.Error != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		c.JSON(200, gin.H{"user": user})
	}
}

type UpdateProfileInput struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"` // base64
}

func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		var input UpdateProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if result := db.First(&user, accountID(c)); result.Error != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if input.Username != "" {
			user.Username = input.Username
		}
		if input.ProfileImage != "" {
			url, err := services.UploadBase64Image(c.Request.Context(), input.ProfileImage, "profiles")
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to upload profile image"})
				return
			}
			user.ProfileImage = url
		}

		if result := db.Save(&user); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, gin.H{"user": user})
	}
}

type AddAddressInput struct {
	AddressText      string  `json:"addressText" binding:"required"`
	Latitude         float64 `json:"latitude" binding:"required"`
	Longitude        float64 `json:"longitude" binding:"required"`
	FormattedAddress string  `json:"formattedAddress"`
	PlaceID          string  `json:"placeId"`
}

func AddAddress(db *gorm.DB, cache core.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		var input AddAddressInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		address := models.UserAddress{
			MemberID:         accountID(c),
			AddressText:      input.AddressText,
			Latitude:         input.Latitude,
			Longitude:        input.Longitude,
			FormattedAddress: input.FormattedAddress,
			PlaceID:          input.PlaceID,
		}

		if result := db.Create(&address); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to save address"})
			return
		}

		cache.Invalidate(c.Request.Context(), fmt.Sprintf(userAddressKeyFmt, accountID(c)))

		c.JSON(201, gin.H{"address": address})
	}
}

// GetAddresses lists the user's saved addresses oldest-first, so the
// primary address leads.
func GetAddresses(db *gorm.DB, cache core.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		key := fmt.Sprintf(userAddressKeyFmt, accountID(c))
		var addresses []models.UserAddress
		if cache.GetJSON(c.Request.Context(), key, &addresses) {
			c.JSON(200, gin.H{"addresses": addresses})
			return
		}

		if result := db.Where("member_id = ?", accountID(c)).
			Order("created_at ASC").Find(&addresses); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch addresses"})
			return
		}

		cache.SetJSON(c.Request.Context(), key, addresses, listCacheTTL)
		c.JSON(200, gin.H{"addresses": addresses})
	}
}

// DeleteAddress removes a saved address. The earliest-created address is the
// user's primary address and stays.
func DeleteAddress(db *gorm.DB, cache core.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "user") {
			return
		}

		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var address models.UserAddress
		if result := db.Where("id = ? AND member_id = ?", id, accountID(c)).
			First(&address); result.Error != nil {
			c.JSON(404, gin.H{"error": "Address not found"})
			return
		}

		var primary models.UserAddress
		if result := db.Where("member_id = ?", accountID(c)).
			Order("created_at ASC").First(&primary); result.Error == nil && primary.ID == address.ID {
			c.JSON(403, gin.H{"error": "Cannot delete your primary address"})
			return
		}

		if result := db.Delete(&address); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to delete address"})
			return
		}

		cache.Invalidate(c.Request.Context(), fmt.Sprintf(userAddressKeyFmt, accountID(c)))

		c.JSON(200, gin.H{"message": "Address deleted"})
	}
}
