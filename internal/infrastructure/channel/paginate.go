package channel

import (
	"context"
	"time"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// Defaults for the rate-limit-aware pagination loop
const (
	// rateLimitThreshold is the remaining-request count below which the
	// loop switches from burst avoidance to adaptive backoff
	rateLimitThreshold = 10
	// burstDelay is the fixed delay applied between pages while the
	// request budget is healthy
	burstDelay = 200 * time.Millisecond
	// minBackoffDelay is the floor for the adaptive backoff delay
	minBackoffDelay = 500 * time.Millisecond
)

// PageFetcher fetches one page of items. page is 0-based; pageSize is the
// number of items requested for this page. hasMore reports whether the
// marketplace has further pages.
type PageFetcher[T any] func(ctx context.Context, page, pageSize int) (items []T, hasMore bool, err error)

// PageLoop drives a rate-limit-aware pagination loop over a marketplace
// listing endpoint. The marketplace pushes no backpressure signal, so the
// loop self-throttles from the adapter's own rate-limit introspection: while
// the remaining budget is below the threshold it spreads the remaining calls
// evenly until the window resets, otherwise it applies a small fixed delay
// between pages to avoid bursting.
type PageLoop[T any] struct {
	// MaxPageSize is the marketplace's maximum page size
	MaxPageSize int
	// Fetch fetches one page
	Fetch PageFetcher[T]
	// RateLimit returns the adapter's current request budget
	RateLimit func() marketplace.RateLimitStatus

	// Now and Sleep are injectable for tests; nil means real clock
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run fetches until the marketplace is exhausted or limit items are
// accumulated, then truncates to exactly limit. limit <= 0 returns nil.
func (l *PageLoop[T]) Run(ctx context.Context, limit int) ([]T, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := l.Now
	if now == nil {
		now = time.Now
	}
	sleep := l.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var accumulated []T
	hasMore := true

	for page := 0; hasMore && len(accumulated) < limit; page++ {
		pageSize := l.MaxPageSize
		if remaining := limit - len(accumulated); remaining < pageSize {
			pageSize = remaining
		}

		items, more, err := l.Fetch(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		accumulated = append(accumulated, items...)
		hasMore = more

		if !hasMore || len(accumulated) >= limit {
			break
		}

		if err := sleep(ctx, l.nextDelay(now())); err != nil {
			return nil, err
		}
	}

	if len(accumulated) > limit {
		accumulated = accumulated[:limit]
	}
	return accumulated, nil
}

// nextDelay computes the pause before the next page fetch
func (l *PageLoop[T]) nextDelay(now time.Time) time.Duration {
	status := l.RateLimit()
	if status.Remaining >= rateLimitThreshold {
		return burstDelay
	}

	untilReset := status.Reset.Sub(now)
	if untilReset <= 0 {
		return minBackoffDelay
	}

	// Spread the remaining calls evenly until the window resets
	delay := untilReset
	if status.Remaining > 0 {
		delay = untilReset / time.Duration(status.Remaining)
	}
	if delay < minBackoffDelay {
		delay = minBackoffDelay
	}
	return delay
}

// sleepContext sleeps for d or until the context is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
