package monitor

import (
	"sync"
	"time"
)

const defaultLatencyWindow = 256

// LatencyTracker keeps the most recent request durations in a fixed ring.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = defaultLatencyWindow
	}
	return &LatencyTracker{samples: make([]time.Duration, window)}
}

func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples[l.next] = d
	l.next = (l.next + 1) % len(l.samples)
	if l.next == 0 {
		l.full = true
	}
}

// Average is zero until something has been observed.
func (l *LatencyTracker) Average() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.next
	if l.full {
		n = len(l.samples)
	}
	if n == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range l.samples[:n] {
		total += d
	}
	return total / time.Duration(n)
}
