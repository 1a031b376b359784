package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter держит счётчики окон в памяти процесса.
type MemoryRateLimiter struct {
	entries sync.Map
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryRateLimiter) Allow(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.entries.Load(clientID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.entries.Store(clientID, entry)
	return entry.count <= limit, nil
}
