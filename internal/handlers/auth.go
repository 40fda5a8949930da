package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/pkg/utils"
	"gorm.io/gorm"
)

type RegisterUserInput struct {
	Username string `json:"username" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRiderInput struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	LicensePlate string `json:"licensePlate"`
}

type LoginInput struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func RegisterUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var existing models.User
		if result := db.Where("phone = ?", input.Phone).First(&existing); result.Error == nil {
			c.JSON(409, gin.H{"error": "Phone number already registered"})
			return
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(500, gin.H{"error": "Failed to check phone number"})
			return
		}

		user := models.User{
			Username: input.Username,
			Phone:    input.Phone,
			Password: input.Password,
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if result := db.Create(&user); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to create user"})
			return
		}

		token, err := utils.GenerateToken(user.ID, "user")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(201, gin.H{
			"message": "User created successfully",
			"token":   token,
			"user": gin.H{
				"id":       user.ID,
				"username": user.Username,
				"phone":    user.Phone,
			},
		})
	}
}

func LoginUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if result := db.Where("phone = ?", input.Phone).First(&user); result.Error != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(user.ID, "user")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user": gin.H{
				"id":           user.ID,
				"username":     user.Username,
				"phone":        user.Phone,
				"profileImage": user.ProfileImage,
			},
		})
	}
}

func RegisterRider(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterRiderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var existing models.Rider
		if result := db.Where("phone = ?", input.Phone).First(&existing); result.Error == nil {
			c.JSON(409, gin.H{"error": "Phone number already registered"})
			return
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(500, gin.H{"error": "Failed to check phone number"})
			return
		}

		rider := models.Rider{
			Name:         input.Name,
			Phone:        input.Phone,
			Password:     input.Password,
			LicensePlate: input.LicensePlate,
		}
		if err := rider.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if result := db.Create(&rider); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to create rider"})
			return
		}

		token, err := utils.GenerateToken(rider.ID, "rider")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(201, gin.H{
			"message": "Rider created successfully",
			"token":   token,
			"rider": gin.H{
				"id":    rider.ID,
				"name":  rider.Name,
				"phone": rider.Phone,
			},
		})
	}
}

func LoginRider(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var rider models.Rider
		if result := db.Where("phone = ?", input.Phone).First(&rider); result.Error != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		if err := rider.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(rider.ID, "rider")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"rider": gin.H{
				"id":           rider.ID,
				"name":         rider.Name,
				"phone":        rider.Phone,
				"profileImage": rider.ProfileImage,
				"vehicleImage": rider.VehicleImage,
				"licensePlate": rider.LicensePlate,
			},
		})
	}
}
