package redis

import (
	"context"
	"fmt"
	"log"

	"mastery-service/internal/config"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

// InitRedis connects the package-level client. A failed ping is logged but
// not fatal; the prerequisite cache degrades to direct database reads.
func InitRedis(cfg *config.RedisConfig) error {
	Client = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := Client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Error connecting to Redis: %s", err)
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Println("Connected to Redis successfully")
	return nil
}

func CloseRedis() {
	if Client != nil {
		if err := Client.Close(); err != nil {
			log.Printf("Error closing Redis connection: %s", err)
		}
	}
}
