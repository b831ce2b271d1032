// Package store persists fetch results and caches listings in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"coinrates/internal/fetcher"
)

const defaultPrefix = "coinrates:"

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis wraps a go-redis client. It is a coordinator sink for fetch results
// and a cache for the CoinAPI client.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis store. No connection is made until first use.
func NewRedis(opts Options) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), opts.TTL)
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: defaultPrefix,
		ttl:    ttl,
	}
}

// Ping checks the connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}

// Deliver stores a successful result's value under its key. Failed results
// are skipped so the last good value stays readable.
func (r *Redis) Deliver(ctx context.Context, result fetcher.Result) error {
	if result.Error != nil {
		return nil
	}
	value := strconv.FormatFloat(result.Value, 'f', -1, 64)
	if err := r.client.Set(ctx, result.Key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", result.Key, err)
	}
	return nil
}

// Value reads a value stored by Deliver
func (r *Redis) Value(ctx context.Context, key string) (float64, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// Get implements coinapi.Cache
func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return true, nil
}

// Set implements coinapi.Cache
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}
