package testutil

import (
	"context"
	"fmt"
	"sync"
)

// Cache is an in-memory seat map cache that counts its calls. Like the Redis
// cache, entries are keyed by generation and Invalidate bumps the generation.
type Cache struct {
	mu            sync.Mutex
	entries       map[string][]string
	generations   map[string]int64
	Hits          int
	Misses        int
	Invalidations int

	// FailWith makes every call return this error when set
	FailWith error

	// BeforeSet runs once, outside the lock, before the next SetOccupied stores its entry
	BeforeSet func()
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		entries:     make(map[string][]string),
		generations: make(map[string]int64),
	}
}

func cacheKey(busID int64, travelDate string) string {
	return fmt.Sprintf("seatmap:%d:%s", busID, travelDate)
}

func entryKey(busID int64, travelDate string, generation int64) string {
	return fmt.Sprintf("%s:g%d", cacheKey(busID, travelDate), generation)
}

func (c *Cache) GetOccupied(_ context.Context, busID int64, travelDate string) ([]string, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return nil, 0, false, c.FailWith
	}
	gen := c.generations[cacheKey(busID, travelDate)]
	seats, ok := c.entries[entryKey(busID, travelDate, gen)]
	if !ok {
		c.Misses++
		return nil, gen, false, nil
	}
	c.Hits++
	return append([]string(nil), seats...), gen, true, nil
}

func (c *Cache) SetOccupied(_ context.Context, busID int64, travelDate string, generation int64, seats []string) error {
	c.mu.Lock()
	hook := c.BeforeSet
	c.BeforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return c.FailWith
	}
	c.entries[entryKey(busID, travelDate, generation)] = append([]string(nil), seats...)
	return nil
}

func (c *Cache) Invalidate(_ context.Context, busID int64, travelDate string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
	if c.FailWith != nil {
		return c.FailWith
	}
	c.generations[cacheKey(busID, travelDate)]++
	return nil
}

// Has reports whether an entry is cached for the current generation
func (c *Cache) Has(busID int64, travelDate string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[entryKey(busID, travelDate, c.generations[cacheKey(busID, travelDate)])]
	return ok
}
