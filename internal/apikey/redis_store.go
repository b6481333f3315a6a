package apikey

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "orgdir:apikey:"

// RedisStore implements Store for Redis. Keys are stored as
// orgdir:apikey:<key> -> tenant id.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates a new Redis API-key store.
func NewRedisStore(host string, port int, password string, db int, logger *zap.Logger) (*RedisStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: logger,
	}, nil
}

// Resolve returns the tenant id owning the key, or ErrKeyNotFound.
func (s *RedisStore) Resolve(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrKeyNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve api key: %w", err)
	}

	tenantID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt api key mapping: %w", err)
	}
	return tenantID, nil
}

// Put registers or replaces a key for a tenant. Keys do not expire; revoking
// is an explicit operation.
func (s *RedisStore) Put(ctx context.Context, key string, tenantID int64) error {
	if err := s.client.Set(ctx, keyPrefix+key, strconv.FormatInt(tenantID, 10), 0).Err(); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	return nil
}

// Revoke removes a key.
func (s *RedisStore) Revoke(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
