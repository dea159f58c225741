package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethiobus/booking-backend/internal/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "seatmap:7:2026-11-20:g0", Key(7, "2026-11-20", 0))
	assert.Equal(t, "seatmap:7:2026-11-20:g3", Key(7, "2026-11-20", 3))
	assert.Equal(t, "seatmap:gen:7:2026-11-20", GenerationKey(7, "2026-11-20"))
}

func TestGenerationTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, (&SeatMapCache{ttl: 30 * time.Second}).generationTTL())
	assert.Equal(t, 100*time.Hour, (&SeatMapCache{ttl: time.Hour}).generationTTL())
}

func TestNewSeatMapCache_Disabled(t *testing.T) {
	c, err := NewSeatMapCache(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewSeatMapCache_InvalidURL(t *testing.T) {
	_, err := NewSeatMapCache(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestNewSeatMapCache_Unreachable(t *testing.T) {
	_, err := NewSeatMapCache(context.Background(), config.RedisConfig{
		URL:         "redis://127.0.0.1:1/0",
		DialTimeout: 200 * time.Millisecond,
	})
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestSeatMapCache_ErrorsSurfaceOnOutage(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewSeatMapCacheFromClient(client, 0)
	defer c.Close()

	assert.Equal(t, 30*time.Second, c.ttl)

	_, _, ok, err := c.GetOccupied(context.Background(), 1, "2026-11-20")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.SetOccupied(context.Background(), 1, "2026-11-20", 0, []string{"3"}))
	assert.Error(t, c.Invalidate(context.Background(), 1, "2026-11-20"))
}
