package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type CacheRepository interface {
	// GetJSON decodes the cached value into dest and reports whether the key existed.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

type cacheRepository struct {
	client *redis.Client
}

func NewCacheRepository(client *redis.Client) CacheRepository {
	return &cacheRepository{client: client}
}

func (r *cacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // Ключ не найден - это не ошибка
		}
		return false, err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

func (r *cacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, key, jsonData, expiration).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// DeleteByPrefix walks the keyspace with SCAN instead of KEYS.
func (r *cacheRepository) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}

type noopCacheRepository struct{}

// NewNoopCacheRepository is used when Redis is disabled: every read misses.
func NewNoopCacheRepository() CacheRepository {
	return noopCacheRepository{}
}

func (noopCacheRepository) GetJSON(context.Context, string, interface{}) (bool, error) {
	return false, nil
}

func (noopCacheRepository) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (noopCacheRepository) Delete(context.Context, string) error {
	return nil
}

func (noopCacheRepository) DeleteByPrefix(context.Context, string) (int64, error) {
	return 0, nil
}
