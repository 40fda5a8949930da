package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/internal/services"
	"gorm.io/gorm"
)

func GetRider(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var rider models.Rider
		if result := db.First(&rider, id); result.Error != nil {
			c.JSON(404, gin.H{"error": "Rider not found"})
			return
		}

		c.JSON(200, gin.H{"rider": rider})
	}
}

type UpdateRiderProfileInput struct {
	Name         string `json:"name"`
	LicensePlate string `json:"licensePlate"`
	ProfileImage string `json:"profileImage"` // base64
	VehicleImage string `json:"vehicleImage"` // base64
}

func UpdateRiderProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		var input UpdateRiderProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var rider models.Rider
		if result := db.First(&rider, accountID(c)); result.Error != nil {
			c.JSON(404, gin.H{"error": "Rider not found"})
			return
		}

		if input.Name != "" {
			rider.Name = input.Name
		}
		if input.LicensePlate != "" {
			rider.LicensePlate = input.LicensePlate
		}
		if input.ProfileImage != "" {
			url, err := services.UploadBase64Image(c.Request.Context(), input.ProfileImage, "riders")
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to upload profile image"})
				return
			}
			rider.ProfileImage = url
		}
		if input.VehicleImage != "" {
			url, err := services.UploadBase64Image(c.Request.Context(), input.VehicleImage, "riders")
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to upload vehicle image"})
				return
			}
			rider.VehicleImage = url
		}

		if result := db.Save(&rider); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update rider"})
			return
		}

		c.JSON(200, gin.H{"rider": rider})
	}
}

// GetRiderCurrentJob returns the rider's unfinished delivery, if any. At
// most one exists since a busy rider cannot claim.
func GetRiderCurrentJob(projections *core.Projections) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		jobs, err := projections.RiderJobs(c.Request.Context(), accountID(c), false)
		if err != nil {
			respondError(c, err)
			return
		}

		if len(jobs) == 0 {
			c.JSON(200, gin.H{"job": nil})
			return
		}
		c.JSON(200, gin.H{"job": jobs[0]})
	}
}

// GetRiderDeliveries lists the rider's jobs: unfinished by default,
// completed with ?history=true.
func GetRiderDeliveries(projections *core.Projections) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		history := c.Query("history") == "true"
		jobs, err := projections.RiderJobs(c.Request.Context(), accountID(c), history)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"deliveries": jobs})
	}
}
