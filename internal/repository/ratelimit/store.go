// Package ratelimit implements a per-tenant fixed-window request counter on
// the shared key-value store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/domain"
)

// store is the consumer interface for limiter counters (ISP).
type store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Limiter counts requests per tenant per fixed window. A store failure fails
// open: the request is allowed and the failure logged, so the limiter can
// never take search availability down with it.
type Limiter struct {
	store  store
	prefix string
	limit  int64
	window time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// New creates a fixed-window limiter. limit <= 0 disables limiting.
func New(s store, prefix string, limit int64, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:  s,
		prefix: prefix,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// Allow counts one request for the tenant. Returns domain.ErrRateLimited when
// the tenant exceeded its window budget.
func (l *Limiter) Allow(ctx context.Context, tenantID string) error {
	if l.limit <= 0 {
		return nil
	}

	windowStart := l.now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("%sratelimit:%s:%d", l.prefix, tenantID, windowStart)

	n, err := l.store.IncrBy(ctx, key, 1)
	if err != nil {
		l.logger.Warn("Rate limit counter unavailable, allowing request",
			zap.String("tenant", tenantID), zap.Error(err))
		return nil
	}

	// Expire two windows out so stale counters clean themselves up.
	if err := l.store.Expire(ctx, key, 2*l.window, true); err != nil {
		l.logger.Warn("Failed to arm rate limit TTL", zap.String("key", key), zap.Error(err))
	}

	if n > l.limit {
		return fmt.Errorf("%w: tenant %s exceeded %d requests per %s",
			domain.ErrRateLimited, tenantID, l.limit, l.window)
	}
	return nil
}
