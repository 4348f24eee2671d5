package db

import (
	"context"
	"fmt"

	configs "github.com/codeclash-dev/DuelWssManagerService/internal/config"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cfg *configs.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}
