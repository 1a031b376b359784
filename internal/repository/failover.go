package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRateLimiter использует primary (Redis), а при его недоступности
// переключается на fallback (память) и периодически пробует вернуться.
type FailoverRateLimiter struct {
	primary  RateLimiter
	fallback RateLimiter
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverRateLimiter(primary, fallback RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverRateLimiter) Allow(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		ok, err := r.primary.Allow(ctx, clientID, limit, window)
		if err == nil {
			return ok, nil
		}
		r.logger.Error().Err(err).Msg("primary rate limiter failed, falling back to memory")
		r.markDown()
	}

	if r.shouldRetryPrimary() {
		ok, err := r.primary.Allow(ctx, clientID, limit, window)
		if err == nil {
			r.isDown.Store(false)
			r.logger.Info().Msg("primary rate limiter recovered")
			return ok, nil
		}
		r.markDown()
	}

	return r.fallback.Allow(ctx, clientID, limit, window)
}

func (r *FailoverRateLimiter) markDown() {
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverRateLimiter) shouldRetryPrimary() bool {
	if !r.isDown.Load() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) > recoveryInterval
}
