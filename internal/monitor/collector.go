package monitor

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/store"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MetricsStore is the slice of the store the collector reads and writes.
type MetricsStore interface {
	Ping(ctx context.Context) (time.Duration, error)
	Stats() sql.DBStats
	UsageByProvider(ctx context.Context, identityID string, since time.Time) ([]store.ProviderUsage, error)
	SecurityEventCounts(ctx context.Context, since time.Time) ([]store.EventCount, error)
	InsertSnapshot(ctx context.Context, snapshot models.SystemMetricsSnapshot) error
	ErrorCount() int64
}

type ContentSource interface {
	Content(ctx context.Context, now time.Time) (models.ContentMetrics, error)
	Users(ctx context.Context, now time.Time) (models.UserMetrics, error)
}

// SystemSampler reports host memory and CPU utilisation in percent.
type SystemSampler interface {
	Sample(ctx context.Context) (memoryPct, cpuPct float64, err error)
}

type LatencySource interface {
	Average() time.Duration
}

type HostSampler struct{}

func (HostSampler) Sample(ctx context.Context) (float64, float64, error) {
	memStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	cpuPct := 0.0
	if values, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(values) > 0 {
		cpuPct = values[0]
	}
	return memStat.UsedPercent, cpuPct, nil
}

type Collector struct {
	store   MetricsStore
	content ContentSource
	system  SystemSampler
	latency LatencySource
	now     func() time.Time
	logger  *zap.Logger

	// store error count at the last persisted snapshot
	seenErrors atomic.Int64
}

func NewCollector(s MetricsStore, content ContentSource, system SystemSampler, latency LatencySource, now func() time.Time, logger *zap.Logger) *Collector {
	if system == nil {
		system = HostSampler{}
	}
	if now == nil {
		now = time.Now
	}
	return &Collector{store: s, content: content, system: system, latency: latency, now: now, logger: logging.OrNop(logger)}
}

// Collect samples the platform and persists the snapshot. The snapshot is
// returned even when persisting it fails.
func (c *Collector) Collect(ctx context.Context) (models.SystemMetricsSnapshot, error) {
	snapshot, storeErrors := c.sample(ctx)
	c.seenErrors.Store(storeErrors)
	if err := c.store.InsertSnapshot(ctx, snapshot); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// Sample gathers every metric concurrently without persisting anything.
// Database.Errors holds the store failures since the last persisted snapshot,
// including the sample's own failed queries, plus failed content queries.
func (c *Collector) Sample(ctx context.Context) models.SystemMetricsSnapshot {
	snapshot, _ := c.sample(ctx)
	return snapshot
}

func (c *Collector) sample(ctx context.Context) (models.SystemMetricsSnapshot, int64) {
	now := c.now().UTC()
	since := now.Add(-24 * time.Hour)
	snapshot := models.SystemMetricsSnapshot{Timestamp: now}
	var failures atomic.Int32
	fail := func(source string, err error) {
		// store failures are already in the store's own count
		if !errors.Is(err, store.ErrUnavailable) {
			failures.Add(1)
		}
		c.logger.Warn("metrics query failed", zap.String("source", source), zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		elapsed, err := c.store.Ping(gctx)
		if err != nil {
			fail("ping", err)
			return nil
		}
		snapshot.Database.QueryTimeMs = elapsed.Milliseconds()
		return nil
	})
	g.Go(func() error {
		rows, err := c.store.UsageByProvider(gctx, "", since)
		if err != nil {
			fail("ai_usage", err)
			return nil
		}
		snapshot.AI = aiMetrics(rows)
		return nil
	})
	g.Go(func() error {
		counts, err := c.store.SecurityEventCounts(gctx, since)
		if err != nil {
			fail("security_events", err)
			return nil
		}
		for _, count := range counts {
			switch count.Severity {
			case models.SeverityHigh:
				snapshot.Security.HighSeverityEvents += count.Count
			case models.SeverityCritical:
				snapshot.Security.CriticalEvents += count.Count
			}
		}
		return nil
	})
	if c.content != nil {
		g.Go(func() error {
			content, err := c.content.Content(gctx, now)
			if err != nil {
				fail("content", err)
				return nil
			}
			snapshot.Content = content
			return nil
		})
		g.Go(func() error {
			users, err := c.content.Users(gctx, now)
			if err != nil {
				fail("users", err)
				return nil
			}
			snapshot.User = users
			return nil
		})
	}
	g.Go(func() error {
		memoryPct, cpuPct, err := c.system.Sample(gctx)
		if err != nil {
			c.logger.Warn("system sample failed", zap.Error(err))
			return nil
		}
		snapshot.Performance.MemoryUsagePct = memoryPct
		snapshot.Performance.CPUUsagePct = cpuPct
		return nil
	})
	_ = g.Wait()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	snapshot.Performance.HeapUsedBytes = memStats.HeapAlloc
	if c.latency != nil {
		snapshot.Performance.ResponseTimeMs = c.latency.Average().Milliseconds()
	}
	snapshot.Database.ConnectionCount = c.store.Stats().OpenConnections
	storeErrors := c.store.ErrorCount()
	snapshot.Database.Errors = int(failures.Load()) + int(storeErrors-c.seenErrors.Load())
	return snapshot, storeErrors
}

func aiMetrics(rows []store.ProviderUsage) models.AIMetrics {
	var out models.AIMetrics
	var failures int
	var weighted float64
	for _, row := range rows {
		out.RequestsToday += row.Requests
		out.TokensUsed += row.Tokens
		failures += row.Failures
		weighted += row.AvgResponseTimeMs * float64(row.Requests)
	}
	if out.RequestsToday > 0 {
		out.AvgResponseTimeMs = int64(weighted / float64(out.RequestsToday))
		out.ErrorRatePct = float64(failures) / float64(out.RequestsToday) * 100
	}
	return out
}
