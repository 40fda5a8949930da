package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetRiderLocation stores a rider's live position in Redis
func SetRiderLocation(ctx context.Context, riderID uint, lat, lng, heading, speed float64) error {
	locationData := map[string]interface{}{
		"lat":     lat,
		"lng":     lng,
		"heading": heading,
		"speed":   speed,
		"updated": time.Now().Unix(),
	}

	data, err := json.Marshal(locationData)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("rider:location:%d", riderID)
	return RedisClient.Set(ctx, key, data, time.Hour).Err()
}

// GetRiderLocation retrieves a rider's live position from Redis
func GetRiderLocation(ctx context.Context, riderID uint) (lat, lng float64, err error) {
	key := fmt.Sprintf("rider:location:%d", riderID)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	var locationData map[string]interface{}
	if err := json.Unmarshal([]byte(data), &locationData); err != nil {
		return 0, 0, err
	}

	lat, _ = locationData["lat"].(float64)
	lng, _ = locationData["lng"].(float64)

	return lat, lng, nil
}
