package guardrail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leadsentry/leadsentry/pkg/infra/prometheus"
	"github.com/leadsentry/leadsentry/pkg/security"
)

const (
	DefaultMaxRequestsPerMinute = 10
	rateLimitWindow             = time.Minute
)

// Store abstracts rate-limit state per user key so the limiter can run against
// an in-process map for single-instance deployments or a shared store (redis)
// for multi-instance deployments without changing the algorithm.
type Store interface {
	Get(ctx context.Context, userID string) (*RateLimitEntry, error)
	Set(ctx context.Context, entry *RateLimitEntry) error
}

// RateLimiter is an approximate fixed-window per-user limiter. It permits
// bursts at window boundaries; sliding-window accuracy is not required.
type RateLimiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *logrus.Logger
	events security.Sink

	timeProvider func() time.Time

	// Per-user locks serialize the read-modify-write on a single entry so
	// concurrent requests for the same user cannot undercount. Requests for
	// different users only meet on the lock-table lookup.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

type RateLimiterOpts struct {
	TimeProvider func() time.Time
}

func NewRateLimiter(store Store, limit int, logger *logrus.Logger, events security.Sink, opts *RateLimiterOpts) *RateLimiter {
	if limit <= 0 {
		limit = DefaultMaxRequestsPerMinute
	}
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}

	return &RateLimiter{
		store:        store,
		limit:        limit,
		window:       rateLimitWindow,
		logger:       logger,
		events:       events,
		timeProvider: timeProvider,
		userLocks:    make(map[string]*sync.Mutex),
	}
}

// Window returns the fixed window size.
func (r *RateLimiter) Window() time.Duration {
	return r.window
}

// CheckRateLimit reports whether the user may proceed. The first call of a
// window replaces the entry with count=1; at the limit the call is denied
// without incrementing. A store failure is logged and the request is allowed,
// since throttling must not take the pipeline down with it.
func (r *RateLimiter) CheckRateLimit(ctx context.Context, userID string) bool {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := r.timeProvider()

	entry, err := r.store.Get(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("rate limit store read failed, allowing request")
		return true
	}

	if entry == nil || !now.Before(entry.ResetAt) {
		fresh := &RateLimitEntry{
			UserID:  userID,
			Count:   1,
			ResetAt: now.Add(r.window),
		}
		if err := r.store.Set(ctx, fresh); err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("rate limit store write failed")
		}
		return true
	}

	if entry.Count >= r.limit {
		prometheus.RateLimitDeniedTotal.Inc()
		r.events.Emit(security.Event{
			UserID:    userID,
			EventType: security.EventRateLimit,
			Severity:  security.SeverityMedium,
			Details:   fmt.Sprintf("rate limit of %d requests per minute exceeded", r.limit),
			Timestamp: now,
		})
		r.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"count":   entry.Count,
			"limit":   r.limit,
		}).Warn("rate limit exceeded")
		return false
	}

	entry.Count++
	if err := r.store.Set(ctx, entry); err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("rate limit store write failed")
	}
	return true
}

func (r *RateLimiter) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.userLocks[userID] = lock
	}
	return lock
}
