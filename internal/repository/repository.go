package repository

import (
	"context"
	"time"

	"reserveit/internal/config"

	"github.com/redis/go-redis/v9"
)

// RateLimiter ограничивает частоту бронирующих запросов одного клиента
// скользящим окном фиксированной длины.
type RateLimiter interface {
	// Allow отмечает запрос клиента и сообщает, укладывается ли он в лимит.
	Allow(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error)
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return err
	}
	return nil
}
