// Package cache keeps short-lived copies of seat availability in Redis.
// Entries are advisory only; the reservation transaction never reads them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ethiobus/booking-backend/internal/config"
	"github.com/ethiobus/booking-backend/internal/models"
)

const keyPrefix = "seatmap"

// SeatMapCache caches the occupied seat numbers of a bus on a date
type SeatMapCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeatMapCache connects to Redis. An empty URL returns nil, nil and the
// services run uncached.
func NewSeatMapCache(ctx context.Context, cfg config.RedisConfig) (*SeatMapCache, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewSeatMapCacheFromClient(client, cfg.SeatMapTTL), nil
}

// NewSeatMapCacheFromClient wraps an existing client
func NewSeatMapCacheFromClient(client *redis.Client, ttl time.Duration) *SeatMapCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SeatMapCache{client: client, ttl: ttl}
}

// Key builds the cache key of a bus on a date at a generation
func Key(busID int64, travelDate string, generation int64) string {
	return fmt.Sprintf("%s:%d:%s:g%d", keyPrefix, busID, travelDate, generation)
}

// GenerationKey holds the counter bumped by Invalidate. Entries written under an
// older generation are never read again and expire with their TTL.
func GenerationKey(busID int64, travelDate string) string {
	return fmt.Sprintf("%s:gen:%d:%s", keyPrefix, busID, travelDate)
}

// GetOccupied returns the cached occupied seats and the generation they were
// looked up under. ok is false on a miss; the generation is still valid then and
// must be passed to SetOccupied.
func (c *SeatMapCache) GetOccupied(ctx context.Context, busID int64, travelDate string) (seats []string, generation int64, ok bool, err error) {
	generation, err = c.client.Get(ctx, GenerationKey(busID, travelDate)).Int64()
	if errors.Is(err, redis.Nil) {
		generation, err = 0, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("seat map cache generation: %w", err)
	}

	val, err := c.client.Get(ctx, Key(busID, travelDate, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, fmt.Errorf("seat map cache get: %w", err)
	}
	if err := json.Unmarshal(val, &seats); err != nil {
		return nil, generation, false, fmt.Errorf("seat map cache decode: %w", err)
	}
	return seats, generation, true, nil
}

// SetOccupied stores the occupied seats under the generation returned by GetOccupied
func (c *SeatMapCache) SetOccupied(ctx context.Context, busID int64, travelDate string, generation int64, seats []string) error {
	if seats == nil {
		seats = []string{}
	}
	models.SortSeatNumbers(seats)
	data, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("seat map cache encode: %w", err)
	}
	if err := c.client.Set(ctx, Key(busID, travelDate, generation), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("seat map cache set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation after any change to the bookings of that bus and date
func (c *SeatMapCache) Invalidate(ctx context.Context, busID int64, travelDate string) error {
	key := GenerationKey(busID, travelDate)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, c.generationTTL())
		return nil
	})
	if err != nil {
		return fmt.Errorf("seat map cache invalidate: %w", err)
	}
	return nil
}

// generationTTL outlives every entry so a counter reset cannot revive an old generation
func (c *SeatMapCache) generationTTL() time.Duration {
	if d := 100 * c.ttl; d > 24*time.Hour {
		return d
	}
	return 24 * time.Hour
}

// Ping checks the Redis connection
func (c *SeatMapCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *SeatMapCache) Close() error {
	return c.client.Close()
}
