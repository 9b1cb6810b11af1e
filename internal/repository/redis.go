package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/config"
	"amenityhub/internal/models"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

type RedisResourceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResourceCache(client *redis.Client, ttl time.Duration) *RedisResourceCache {
	return &RedisResourceCache{client: client, ttl: ttl}
}

func resourceKey(id string) string {
	return "resource:" + id
}

func (r *RedisResourceCache) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, resourceKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource from redis: %w", err)
	}

	var res models.Resource
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}
	return &res, nil
}

func (r *RedisResourceCache) SetResource(ctx context.Context, res *models.Resource) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}
	if err := r.client.Set(ctx, resourceKey(res.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set resource in redis: %w", err)
	}
	return nil
}

func (r *RedisResourceCache) InvalidateResource(ctx context.Context, id string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, resourceKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete resource from redis: %w", err)
	}
	return nil
}

func (r *RedisResourceCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
