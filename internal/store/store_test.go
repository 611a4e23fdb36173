package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"fluxao-backend-go/internal/db"
	"fluxao-backend-go/internal/migrations"
	"fluxao-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Apply(ctx, database))
	return New(database)
}

func usage(identity, provider string, tokens int, success bool, at time.Time) models.UsageRecord {
	return models.UsageRecord{
		IdentityID:     identity,
		Provider:       provider,
		Task:           "analysis",
		Success:        success,
		TokensUsed:     tokens,
		ResponseTimeMs: 200,
		CreatedAt:      at,
	}
}

func TestUsageAggregates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	failure := "provider timeout"
	failed := usage("u1", "openai", 0, false, base.Add(-50*time.Minute))
	failed.Error = &failure
	cached := usage("u1", "claude", 0, true, base.Add(-5*time.Minute))
	cached.Cached = true

	for _, rec := range []models.UsageRecord{
		usage("u1", "claude", 100, true, base.Add(-10*time.Minute)),
		failed,
		cached,
		usage("u1", "claude", 400, true, base.Add(-2*time.Hour)),
		usage("u2", "claude", 900, true, base.Add(-1*time.Minute)),
	} {
		require.NoError(t, s.InsertUsage(ctx, rec))
	}

	count, err := s.CountRequestsSince(ctx, "u1", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	tokens, err := s.SumTokensSince(ctx, "u1", base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 500, tokens)

	none, err := s.SumTokensSince(ctx, "nobody", base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, none)

	rows, err := s.UsageByProvider(ctx, "u1", base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "claude", rows[0].Provider)
	assert.Equal(t, 3, rows[0].Requests)
	assert.Equal(t, 500, rows[0].Tokens)
	assert.Equal(t, 1, rows[0].Cached)
	assert.Equal(t, "openai", rows[1].Provider)
	assert.Equal(t, 1, rows[1].Failures)
	assert.InDelta(t, 200.0, rows[1].AvgResponseTimeMs, 0.001)

	all, err := s.UsageByProvider(ctx, "", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 3, all[0].Requests)
}

func TestSecurityEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	events := []models.SecurityEvent{
		{IdentityID: "u1", Action: "blocked_keyword", Severity: models.SeverityHigh, Details: `{"keyword":"drop table"}`, Timestamp: base.Add(-time.Minute)},
		{IdentityID: "u1", Action: "blocked_keyword", Severity: models.SeverityHigh, Details: `{}`, Timestamp: base.Add(-2 * time.Minute)},
		{IdentityID: "u2", Action: "injection_detected", Severity: models.SeverityCritical, Details: `{}`, Timestamp: base.Add(-3 * time.Minute)},
		{IdentityID: "u3", Action: "request_validated", Severity: models.SeverityLow, Details: `{}`, Timestamp: base.Add(-4 * time.Minute)},
		{IdentityID: "u3", Action: "request_validated", Severity: models.SeverityLow, Details: `{}`, Timestamp: base.Add(-48 * time.Hour)},
	}
	for _, event := range events {
		require.NoError(t, s.InsertSecurityEvent(ctx, event))
	}

	counts, err := s.SecurityEventCounts(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, EventCount{Action: "blocked_keyword", Severity: models.SeverityHigh, Count: 2}, counts[0])

	recent, err := s.RecentSecurityEvents(ctx, base.Add(-24*time.Hour), []models.Severity{models.SeverityHigh, models.SeverityCritical}, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "u1", recent[0].IdentityID)
	assert.Equal(t, `{"keyword":"drop table"}`, recent[0].Details)
	assert.True(t, recent[0].Timestamp.Equal(base.Add(-time.Minute)))
	assert.Equal(t, models.SeverityCritical, recent[2].Severity)

	risky, err := s.TopEventIdentities(ctx, base.Add(-24*time.Hour), []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}, 10)
	require.NoError(t, err)
	assert.Equal(t, []IdentityEventCount{{IdentityID: "u1", Count: 2}, {IdentityID: "u2", Count: 1}}, risky)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		snapshot := models.SystemMetricsSnapshot{Timestamp: base.Add(time.Duration(i) * time.Minute)}
		snapshot.Database.QueryTimeMs = int64(100 * (i + 1))
		require.NoError(t, s.InsertSnapshot(ctx, snapshot))
	}

	items, err := s.LatestSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(200), items[0].Database.QueryTimeMs)
	assert.Equal(t, int64(300), items[1].Database.QueryTimeMs)
}

func TestAlertsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alert := models.Alert{
		ID:        "perf-memory-1",
		Rule:      "perf-memory",
		Type:      models.AlertError,
		Category:  models.CategoryPerformance,
		Message:   "High memory usage",
		Details:   "Memory usage: 91%",
		Severity:  4,
		Timestamp: base,
	}
	inserted, err := s.InsertAlert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertAlert(ctx, alert)
	require.NoError(t, err)
	assert.False(t, inserted)

	open, err := s.OpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, models.CategoryPerformance, open[0].Category)
	assert.False(t, open[0].Resolved)
	assert.Nil(t, open[0].ResolvedAt)

	require.NoError(t, s.MarkRemediated(ctx, alert.ID, "memory_cleanup", base.Add(time.Second)))

	resolved, err := s.ResolveAlert(ctx, alert.ID, "monitor", base.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, resolved)

	resolved, err = s.ResolveAlert(ctx, alert.ID, "admin-1", base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, resolved)

	got, err := s.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, "monitor", *got.ResolvedBy)
	require.NotNil(t, got.RemediationAction)
	assert.Equal(t, "memory_cleanup", *got.RemediationAction)

	open, err = s.OpenAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := s.ListAlerts(ctx, true, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetAlert(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestErrorsWrapUnavailable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.DB().Close())

	_, err := s.CountRequestsSince(ctx, "u1", base)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "count requests", storeErr.Op)

	_, err = s.Ping(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestErrorCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetAlert(ctx, "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	_, err = s.CountRequestsSince(ctx, "u1", base)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.ErrorCount(), "a missing row is not a failure")

	require.NoError(t, s.DB().Close())
	_, err = s.CountRequestsSince(ctx, "u1", base)
	require.Error(t, err)
	_, err = s.OpenAlerts(ctx)
	require.Error(t, err)
	assert.Equal(t, int64(2), s.ErrorCount())
}
