package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// RedisSettings holds the connection settings shared by the health check and the refund retry queue.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient initializes a Redis client and verifies the connection.
func NewRedisClient(s RedisSettings) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     s.Addr,
		Password: s.Password,
		DB:       s.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// AsynqRedisOpt converts the settings into asynq's connection options.
func (s RedisSettings) AsynqRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     s.Addr,
		Password: s.Password,
		DB:       s.DB,
	}
}
