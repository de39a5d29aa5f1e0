package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const productsCacheKey = "catalog:products"

// Redis stores session keys and the product cache in Redis. Session keys
// live under "session:{id}:{key}" with a sliding TTL so abandoned sessions
// expire on their own.
type Redis struct {
	rdb        *redis.Client
	sessionTTL time.Duration
	cacheTTL   time.Duration
}

// NewRedis creates a Redis-backed store and verifies connectivity.
func NewRedis(addr, password string, db int, sessionTTL, cacheTTL time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{
		rdb:        rdb,
		sessionTTL: sessionTTL,
		cacheTTL:   cacheTTL,
	}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func sessionKey(sessionID, key string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}

// Get retrieves a session value. Absent keys yield (nil, nil).
func (r *Redis) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, sessionKey(sessionID, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get failed: %w", err)
	}
	return val, nil
}

// Set writes a session value and refreshes the session TTL.
func (r *Redis) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if err := r.rdb.Set(ctx, sessionKey(sessionID, key), value, r.sessionTTL).Err(); err != nil {
		return fmt.Errorf("session set failed: %w", err)
	}
	return nil
}

// Delete removes a session value.
func (r *Redis) Delete(ctx context.Context, sessionID, key string) error {
	if err := r.rdb.Del(ctx, sessionKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}
	return nil
}

// GetProducts returns the cached product list. The second result is false
// when the cache is cold.
func (r *Redis) GetProducts(ctx context.Context) ([]models.Product, bool, error) {
	val, err := r.rdb.Get(ctx, productsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("product cache get failed: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(val, &products); err != nil {
		return nil, false, fmt.Errorf("product cache decode failed: %w", err)
	}
	return products, true, nil
}

// SetProducts replaces the cached product list.
func (r *Redis) SetProducts(ctx context.Context, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("product cache encode failed: %w", err)
	}
	if err := r.rdb.Set(ctx, productsCacheKey, data, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("product cache set failed: %w", err)
	}
	return nil
}

// InvalidateProducts drops the cached product list. Called after a
// successful order placement since backend stock has changed.
func (r *Redis) InvalidateProducts(ctx context.Context) error {
	if err := r.rdb.Del(ctx, productsCacheKey).Err(); err != nil {
		return fmt.Errorf("product cache invalidate failed: %w", err)
	}
	return nil
}
