package governance

import (
	"context"
	"time"
)

const (
	rateWindow  = time.Hour
	quotaWindow = 24 * time.Hour
)

// UsageCounter derives rate and quota usage from the append-only usage log.
type UsageCounter interface {
	CountRequestsSince(ctx context.Context, identityID string, since time.Time) (int, error)
	SumTokensSince(ctx context.Context, identityID string, since time.Time) (int, error)
}

type Decision struct {
	Allowed bool
	Used    int
	Limit   int
}

// RateLimiter is a sliding one-hour window over usage records.
// It holds no counters of its own.
type RateLimiter struct {
	usage UsageCounter
}

func NewRateLimiter(usage UsageCounter) *RateLimiter {
	return &RateLimiter{usage: usage}
}

// Check denies once the identity has made limit or more requests in the trailing hour.
func (r *RateLimiter) Check(ctx context.Context, identityID string, limit int, now time.Time) (Decision, error) {
	used, err := r.usage.CountRequestsSince(ctx, identityID, now.Add(-rateWindow))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: used < limit, Used: used, Limit: limit}, nil
}
