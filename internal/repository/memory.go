package repository

import (
	"context"
	"sync"
	"time"

	"amenityhub/internal/models"
)

type memoryEntry struct {
	res       models.Resource
	expiresAt time.Time
}

// MemoryResourceCache is the in-process fallback for RedisResourceCache.
type MemoryResourceCache struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryResourceCache(ttl time.Duration) *MemoryResourceCache {
	return &MemoryResourceCache{ttl: ttl, now: time.Now}
}

func (c *MemoryResourceCache) GetResource(_ context.Context, id string) (*models.Resource, error) {
	val, ok := c.entries.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if c.ttl > 0 && !c.now().Before(entry.expiresAt) {
		c.entries.CompareAndDelete(id, val)
		return nil, nil
	}
	res := entry.res
	return &res, nil
}

func (c *MemoryResourceCache) SetResource(_ context.Context, res *models.Resource) error {
	c.entries.Store(res.ID, &memoryEntry{res: *res, expiresAt: c.now().Add(c.ttl)})
	return nil
}

func (c *MemoryResourceCache) InvalidateResource(_ context.Context, id string) error {
	c.entries.Delete(id)
	return nil
}
