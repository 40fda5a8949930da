package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sendeeapp/sendee-backend/internal/core"
	"github.com/sendeeapp/sendee-backend/internal/database"
	"github.com/sendeeapp/sendee-backend/internal/handlers"
	"github.com/sendeeapp/sendee-backend/internal/jobs"
	"github.com/sendeeapp/sendee-backend/internal/middleware"
	"github.com/sendeeapp/sendee-backend/internal/repository"
	"github.com/sendeeapp/sendee-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Wire the domain core: repositories behind the store ports, the claim
	// coordinator, the transition engine and the cached read projections.
	cache := services.NewProjectionCache(services.RedisClient)
	parcelRepo := repository.NewParcelRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	projectionRepo := repository.NewProjectionRepository(db)

	coordinator := core.NewCoordinator(parcelRepo, deliveryRepo, cache)
	engine := core.NewEngine(parcelRepo, deliveryRepo, services.ImageStore{}, cache)
	projections := core.NewProjections(projectionRepo, cache)
	geocoder := services.NewGeocoder()

	// Background repair of lost parcel-side writes
	reconciler := jobs.NewReconciler(jobs.NewSweepStore(db), parcelRepo, cache)
	cronJobs := reconciler.Start()
	defer cronJobs.Stop()

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve static files
	r.Static("/uploads", "/app/uploads")

	r.GET("/", handlers.Home())
	r.GET("/health", handlers.HealthCheck(db, cache, hub))
	r.GET("/health/location", handlers.LocationHealthCheck(db))

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/users/register", handlers.RegisterUser(db))
			auth.POST("/users/login", handlers.LoginUser(db))
			auth.POST("/riders/register", handlers.RegisterRider(db))
			auth.POST("/riders/login", handlers.LoginRider(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("", handlers.GetUsers(db, cache))
				users.GET("/:id", handlers.GetUser(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/addresses", handlers.AddAddress(db, cache))
				users.GET("/addresses", handlers.GetAddresses(db, cache))
				users.DELETE("/addresses/:id", handlers.DeleteAddress(db, cache))
			}

			parcels := protected.Group("/parcels")
			{
				parcels.POST("", handlers.CreateParcel(db, cache))
				parcels.GET("", handlers.GetParcels(db))
				parcels.GET("/feed", handlers.GetUserParcels(projections))
				parcels.GET("/available", handlers.GetAvailableParcels(projections))
				parcels.GET("/:id", handlers.GetParcel(db))
				parcels.PATCH("/:id/status", handlers.UpdateParcelStatus(db, engine))
				parcels.POST("/:id/accept", handlers.AcceptParcel(db, coordinator, hub))
			}

			deliveries := protected.Group("/deliveries")
			{
				deliveries.GET("/:id", handlers.GetDelivery(db))
				deliveries.PATCH("/:id/status", handlers.UpdateDeliveryStatus(db, engine, hub))
			}

			riders := protected.Group("/riders")
			{
				riders.GET("/me/current-job", handlers.GetRiderCurrentJob(projections))
				riders.GET("/me/deliveries", handlers.GetRiderDeliveries(projections))
				riders.PUT("/me/profile", handlers.UpdateRiderProfile(db))
				riders.POST("/me/location", handlers.UpdateRiderLocation(db))
				riders.GET("/locations/all", handlers.GetAllRiderLocations(db, cache))
				riders.POST("/locations/multiple", handlers.GetRiderLocationsBatch(db))
				riders.GET("/:id", handlers.GetRider(db))
				riders.GET("/:id/location", handlers.GetRiderLocation(db))
			}

			maps := protected.Group("/maps")
			{
				maps.GET("/geocode", handlers.GeocodeAddress(geocoder))
				maps.GET("/reverse-geocode", handlers.ReverseGeocode(geocoder))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
