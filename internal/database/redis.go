package database

import (
	"fmt"

	"github.com/go-redis/redis"
	"github.com/xpanvictor/interm/internal/config"
)

// NewRedis connects to redis. An empty address means no cache and a nil
// client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Pass,
		DB:       0,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
