package monitor

import (
	"testing"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapshotTime = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func quietSnapshot() models.SystemMetricsSnapshot {
	return models.SystemMetricsSnapshot{
		Timestamp:   snapshotTime,
		Database:    models.DatabaseMetrics{ConnectionCount: 3, QueryTimeMs: 12},
		Performance: models.PerformanceMetrics{ResponseTimeMs: 150, MemoryUsagePct: 40, CPUUsagePct: 20},
		Content:     models.ContentMetrics{TotalPosts: 120, PendingComments: 4},
		User:        models.UserMetrics{ActiveUsers: 30, BounceRate: 35},
		AI:          models.AIMetrics{RequestsToday: 80, ErrorRatePct: 1},
	}
}

func TestScore_SlowDatabase(t *testing.T) {
	s := quietSnapshot()
	s.Database.QueryTimeMs = 2500
	s.Performance.MemoryUsagePct = 50
	s.Content.PendingComments = 10
	s.AI.ErrorRatePct = 1

	report := Score(s)
	assert.Equal(t, ComponentHealth{Score: 50, Status: StatusCritical}, report.Components[ComponentDatabase])
	assert.Equal(t, ComponentHealth{Score: 100, Status: StatusHealthy}, report.Components[ComponentPerformance])
	assert.Equal(t, 88, report.Score)
	assert.Equal(t, StatusWarning, report.Overall)
	assert.Empty(t, report.Alerts)
}

func TestScore_Deterministic(t *testing.T) {
	s := quietSnapshot()
	s.Performance.MemoryUsagePct = 92
	s.AI.ErrorRatePct = 12
	assert.Equal(t, Score(s), Score(s))
}

func TestScore_Bands(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.SystemMetricsSnapshot)
		score   int
		overall Status
	}{
		{"quiet", func(s *models.SystemMetricsSnapshot) {}, 100, StatusHealthy},
		{"pending comments", func(s *models.SystemMetricsSnapshot) { s.Content.PendingComments = 60 }, 96, StatusHealthy},
		{"many pending comments", func(s *models.SystemMetricsSnapshot) { s.Content.PendingComments = 150 }, 90, StatusWarning},
		{"severe memory alert", func(s *models.SystemMetricsSnapshot) { s.Performance.MemoryUsagePct = 96 }, 88, StatusCritical},
		{"ai and database", func(s *models.SystemMetricsSnapshot) {
			s.AI.ErrorRatePct = 11
			s.AI.AvgResponseTimeMs = 6000
			s.Database.QueryTimeMs = 2100
			s.Database.Errors = 1
		}, 63, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quietSnapshot()
			tt.mutate(&s)
			report := Score(s)
			assert.Equal(t, tt.score, report.Score)
			assert.Equal(t, tt.overall, report.Overall)
		})
	}
}

func TestScore_ComponentFloor(t *testing.T) {
	s := quietSnapshot()
	s.Database.QueryTimeMs = 5000
	s.Database.Errors = 3
	report := Score(s)
	assert.Equal(t, ComponentHealth{Score: 25, Status: StatusCritical}, report.Components[ComponentDatabase])

	s = quietSnapshot()
	s.AI.ErrorRatePct = 50
	s.AI.AvgResponseTimeMs = 9000
	report = Score(s)
	assert.Equal(t, ComponentHealth{Score: 25, Status: StatusCritical}, report.Components[ComponentAI])
}

func TestEvaluate_Rules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.SystemMetricsSnapshot)
		rule     string
		category models.AlertCategory
		typ      models.AlertType
		severity int
	}{
		{"response", func(s *models.SystemMetricsSnapshot) { s.Performance.ResponseTimeMs = 3500 }, "perf-response", models.CategoryPerformance, models.AlertWarning, 3},
		{"slow response", func(s *models.SystemMetricsSnapshot) { s.Performance.ResponseTimeMs = 5500 }, "perf-response", models.CategoryPerformance, models.AlertWarning, 4},
		{"memory", func(s *models.SystemMetricsSnapshot) { s.Performance.MemoryUsagePct = 88 }, "perf-memory", models.CategoryPerformance, models.AlertError, 4},
		{"memory exhausted", func(s *models.SystemMetricsSnapshot) { s.Performance.MemoryUsagePct = 97 }, "perf-memory", models.CategoryPerformance, models.AlertError, 5},
		{"cpu", func(s *models.SystemMetricsSnapshot) { s.Performance.CPUUsagePct = 85 }, "perf-cpu", models.CategoryPerformance, models.AlertWarning, 3},
		{"db errors", func(s *models.SystemMetricsSnapshot) { s.Database.Errors = 11 }, "db-errors", models.CategoryPerformance, models.AlertError, 4},
		{"pending", func(s *models.SystemMetricsSnapshot) { s.Content.PendingComments = 51 }, "content-moderation", models.CategoryContent, models.AlertWarning, 2},
		{"pending backlog", func(s *models.SystemMetricsSnapshot) { s.Content.PendingComments = 101 }, "content-moderation", models.CategoryContent, models.AlertWarning, 3},
		{"bounce", func(s *models.SystemMetricsSnapshot) { s.User.BounceRate = 75 }, "user-bounce", models.CategoryUser, models.AlertInfo, 1},
		{"ai errors", func(s *models.SystemMetricsSnapshot) { s.AI.ErrorRatePct = 6 }, "ai-errors", models.CategoryAI, models.AlertWarning, 3},
		{"ai outage", func(s *models.SystemMetricsSnapshot) { s.AI.ErrorRatePct = 40 }, "ai-errors", models.CategoryAI, models.AlertWarning, 4},
		{"security", func(s *models.SystemMetricsSnapshot) { s.Security.HighSeverityEvents = 21 }, "security-events", models.CategorySecurity, models.AlertWarning, 3},
		{"security critical", func(s *models.SystemMetricsSnapshot) {
			s.Security.HighSeverityEvents = 15
			s.Security.CriticalEvents = 6
		}, "security-events", models.CategorySecurity, models.AlertWarning, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quietSnapshot()
			tt.mutate(&s)
			alerts := Evaluate(s)
			require.Len(t, alerts, 1)
			alert := alerts[0]
			assert.Equal(t, tt.rule, alert.Rule)
			assert.Equal(t, tt.category, alert.Category)
			assert.Equal(t, tt.typ, alert.Type)
			assert.Equal(t, tt.severity, alert.Severity)
			assert.Equal(t, tt.rule+"-1778051289000", alert.ID)
			assert.False(t, alert.Resolved)
		})
	}

	assert.Empty(t, Evaluate(quietSnapshot()))
}

func TestEvaluate_BoundariesDoNotFire(t *testing.T) {
	s := quietSnapshot()
	s.Performance.ResponseTimeMs = 3000
	s.Performance.MemoryUsagePct = 85
	s.Performance.CPUUsagePct = 80
	s.Database.Errors = 10
	s.Content.PendingComments = 50
	s.User.BounceRate = 70
	s.AI.ErrorRatePct = 5
	s.Security.HighSeverityEvents = 20
	assert.Empty(t, Evaluate(s))
}

func TestLatencyTracker(t *testing.T) {
	l := NewLatencyTracker(3)
	assert.Zero(t, l.Average())
	l.Observe(100 * time.Millisecond)
	l.Observe(200 * time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, l.Average())
	l.Observe(300 * time.Millisecond)
	l.Observe(700 * time.Millisecond)
	assert.Equal(t, 400*time.Millisecond, l.Average())
}
