// Package ratelimit implements per-user, per-category fixed-window request
// limiting. The counter lives behind a Store so single-instance deployments
// use the in-process map while multi-instance deployments point at redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Limit is a fixed-window quota.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result reports the outcome of one quota check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Store increments the counter for key within its current window and
// reports whether the request fits under limit. Implementations must make
// the increment-and-compare atomic per key.
type Store interface {
	IncrementAndCheck(ctx context.Context, key string, limit Limit) (Result, error)
}

// DefaultLimits mirrors the per-category quotas; pattern detection is the
// most expensive path and is throttled hardest.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"chat":              {Requests: 30, Window: time.Minute},
		"journal":           {Requests: 10, Window: time.Minute},
		"mood":              {Requests: 60, Window: time.Minute},
		"cbt":               {Requests: 10, Window: time.Minute},
		"pattern-detection": {Requests: 5, Window: time.Minute},
	}
}

// Limiter resolves a category to its quota and consults the store.
type Limiter struct {
	store  Store
	limits map[string]Limit
	logger *zap.Logger
}

func NewLimiter(store Store, limits map[string]Limit, logger *zap.Logger) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{store: store, limits: limits, logger: logger}
}

// Check consumes one request from the (category, userID) window. Categories
// without a configured limit are always allowed. A store failure fails open:
// availability wins over strict quotas here, and the event is logged.
func (l *Limiter) Check(ctx context.Context, category string, userID int) Result {
	limit, ok := l.limits[category]
	if !ok {
		return Result{Allowed: true, Remaining: -1}
	}
	key := fmt.Sprintf("%s:%d", category, userID)
	res, err := l.store.IncrementAndCheck(ctx, key, limit)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			zap.String("key", key), zap.Error(err))
		return Result{Allowed: true, Remaining: limit.Requests - 1}
	}
	return res
}
