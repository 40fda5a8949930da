package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	riderLocationsKey = "rider_locations_all"
	locationCacheTTL  = 30 * time.Second
)

func GeocodeAddress(geocoder *services.Geocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.Query("address")
		if address == "" {
			c.JSON(400, gin.H{"error": "address query parameter required"})
			return
		}

		result, err := geocoder.Geocode(c.Request.Context(), address)
		if err != nil {
			c.JSON(502, gin.H{"error": "Geocoding failed"})
			return
		}

		c.Data(200, "application/json", result)
	}
}

func ReverseGeocode(geocoder *services.Geocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			c.JSON(400, gin.H{"error": "lat and lng query parameters required"})
			return
		}

		result, err := geocoder.ReverseGeocode(c.Request.Context(), lat, lng)
		if err != nil {
			c.JSON(502, gin.H{"error": "Reverse geocoding failed"})
			return
		}

		c.Data(200, "application/json", result)
	}
}

type UpdateLocationInput struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Accuracy  float64 `json:"accuracy"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
}

// UpdateRiderLocation upserts the rider's position. The row is the durable
// copy; Redis carries the same fix with a TTL for cheap lookups.
func UpdateRiderLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAccountType(c, "rider") {
			return
		}

		var input UpdateLocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		riderID := accountID(c)
		location := models.RiderLocation{
			RiderID:   riderID,
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
			Accuracy:  input.Accuracy,
			Heading:   input.Heading,
			Speed:     input.Speed,
		}

		if result := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "rider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"latitude", "longitude", "accuracy", "heading", "speed", "updated_at",
			}),
		}).Create(&location); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to save location"})
			return
		}

		if err := services.SetRiderLocation(c.Request.Context(), riderID,
			input.Latitude, input.Longitude, input.Heading, input.Speed); err != nil {
			// Redis copy is best-effort; the row is already saved.
			c.JSON(200, gin.H{"message": "Location updated (cache skipped)"})
			return
		}

		c.JSON(200, gin.H{"message": "Location updated"})
	}
}

// GetAllRiderLocations returns every rider's last known position for the
// map overview, newest fix first. Cached briefly since the map polls.
func GetAllRiderLocations(db *gorm.DB, cache core.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var locations []models.RiderLocation
		if cache.GetJSON(c.Request.Context(), riderLocationsKey, &locations) {
			c.JSON(200, gin.H{"locations": locations})
			return
		}

		if result := db.Order("updated_at DESC").Find(&locations); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch locations"})
			return
		}

		cache.SetJSON(c.Request.Context(), riderLocationsKey, locations, locationCacheTTL)
		c.JSON(200, gin.H{"locations": locations})
	}
}

type RiderLocationsBatchInput struct {
	RiderIDs []uint `json:"riderIds" binding:"required"`
}

// GetRiderLocationsBatch returns positions for a set of riders, used when
// tracking several active deliveries at once.
func GetRiderLocationsBatch(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RiderLocationsBatchInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": "riderIds array is required"})
			return
		}

		var locations []models.RiderLocation
		if result := db.Where("rider_id IN ?", input.RiderIDs).
			Order("updated_at DESC").
			Find(&locations); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch locations"})
			return
		}

		c.JSON(200, gin.H{"locations": locations})
	}
}

// GetRiderLocation returns a rider's last known position, preferring the
// Redis copy and falling back to the durable row.
func GetRiderLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID, ok := pathID(c, "id")
		if !ok {
			return
		}

		if lat, lng, err := services.GetRiderLocation(c.Request.Context(), riderID); err == nil {
			c.JSON(200, gin.H{"riderId": riderID, "latitude": lat, "longitude": lng})
			return
		}

		var location models.RiderLocation
		if result := db.Where("rider_id = ?", riderID).First(&location); result.Error != nil {
			c.JSON(404, gin.H{"error": "No location for rider"})
			return
		}

		c.JSON(200, gin.H{
			"riderId":   riderID,
			"latitude":  location.Latitude,
			"longitude": location.Longitude,
			"updatedAt": location.UpdatedAt,
		})
	}
}
