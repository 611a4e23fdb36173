package governance

import (
	"context"
	"time"
)

// QuotaTracker sums tokens over the trailing 24 hours.
type QuotaTracker struct {
	usage UsageCounter
}

func NewQuotaTracker(usage UsageCounter) *QuotaTracker {
	return &QuotaTracker{usage: usage}
}

func (q *QuotaTracker) Check(ctx context.Context, identityID string, limit int, now time.Time) (Decision, error) {
	used, err := q.usage.SumTokensSince(ctx, identityID, now.Add(-quotaWindow))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: used < limit, Used: used, Limit: limit}, nil
}

// Remaining is the token allowance left, never negative.
func (d Decision) Remaining() int {
	if d.Used >= d.Limit {
		return 0
	}
	return d.Limit - d.Used
}
