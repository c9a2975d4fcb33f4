// Package rediscache holds the optional read cache in front of the
// session-status endpoint. Every student in a room polls the countdown, so
// the handful of bytes per course are worth keeping out of DynamoDB; the
// cache stores the ACTIVE session's identity and expiry (stable for the whole
// window), and remaining seconds are recomputed per read.
//
// The cache is strictly an accelerator: a miss, a stale entry, or an
// unreachable Redis all fall through to the store, and nothing on the
// redemption write path ever consults it.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/qr-attendance-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "course-status:"

// Cache wraps a Redis client for session-status reads.
type Cache struct {
	client *redis.Client
}

// New connects to Redis with short timeouts. Status reads must never block
// behind a slow cache.
func New(addr string) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})}
}

// Healthy verifies Redis connectivity.
func (c *Cache) Healthy(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

// GetStatus returns the cached status for a course, with ok=false on miss or
// any cache error.
func (c *Cache) GetStatus(ctx context.Context, courseID string) (*domain.SessionStatus, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+courseID).Bytes()
	if err != nil {
		return nil, false
	}
	var st domain.SessionStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false
	}
	return &st, true
}

// SetStatus caches the status for a course for ttl. Failures are ignored.
func (c *Cache) SetStatus(ctx context.Context, courseID string, st *domain.SessionStatus, ttl time.Duration) {
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, keyPrefix+courseID, raw, ttl).Err()
}

// Invalidate drops the cached status for a course. Called on session create
// so a superseding session is visible to pollers immediately.
func (c *Cache) Invalidate(ctx context.Context, courseID string) {
	_ = c.client.Del(ctx, keyPrefix+courseID).Err()
}
