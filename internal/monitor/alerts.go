package monitor

import (
	"encoding/json"
	"fmt"

	"fluxao-backend-go/internal/models"
)

type alertRule struct {
	name     string
	typ      models.AlertType
	category models.AlertCategory
	message  string
	// check returns the severity and details when the rule fires.
	check func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool)
}

var alertRules = []alertRule{
	{
		name: "perf-response", typ: models.AlertWarning, category: models.CategoryPerformance,
		message: "High response time detected",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.Performance.ResponseTimeMs
			return pick(v > 5000, 4, 3), map[string]interface{}{"responseTimeMs": v, "threshold": 3000}, v > 3000
		},
	},
	{
		name: "perf-memory", typ: models.AlertError, category: models.CategoryPerformance,
		message: "High memory usage",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.Performance.MemoryUsagePct
			return pick(v > 95, 5, 4), map[string]interface{}{"memoryUsagePct": v, "threshold": 85}, v > 85
		},
	},
	{
		name: "perf-cpu", typ: models.AlertWarning, category: models.CategoryPerformance,
		message: "High CPU usage",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.Performance.CPUUsagePct
			return pick(v > 95, 4, 3), map[string]interface{}{"cpuUsagePct": v, "threshold": 80}, v > 80
		},
	},
	{
		name: "db-errors", typ: models.AlertError, category: models.CategoryPerformance,
		message: "Database errors detected",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.Database.Errors
			return 4, map[string]interface{}{"errors": v, "threshold": 10}, v > 10
		},
	},
	{
		name: "content-moderation", typ: models.AlertWarning, category: models.CategoryContent,
		message: "High number of pending comments",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.Content.PendingComments
			return pick(v > 100, 3, 2), map[string]interface{}{"pendingComments": v, "threshold": 50}, v > 50
		},
	},
	{
		name: "user-bounce", typ: models.AlertInfo, category: models.CategoryUser,
		message: "High bounce rate",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.User.BounceRate
			return 1, map[string]interface{}{"bounceRate": v, "threshold": 70}, v > 70
		},
	},
	{
		name: "ai-errors", typ: models.AlertWarning, category: models.CategoryAI,
		message: "High AI error rate",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			v := s.AI.ErrorRatePct
			return pick(v > 10, 4, 3), map[string]interface{}{"errorRatePct": v, "threshold": 5}, v > 5
		},
	},
	{
		name: "security-events", typ: models.AlertWarning, category: models.CategorySecurity,
		message: "Elevated security events",
		check: func(s models.SystemMetricsSnapshot) (int, map[string]interface{}, bool) {
			total := s.Security.HighSeverityEvents + s.Security.CriticalEvents
			details := map[string]interface{}{
				"highSeverityEvents": s.Security.HighSeverityEvents,
				"criticalEvents":     s.Security.CriticalEvents,
				"threshold":          20,
			}
			return pick(s.Security.CriticalEvents > 5, 4, 3), details, total > 20
		},
	},
}

// Evaluate applies every rule to the snapshot. It has no side effects and
// the alert ids depend only on the rule and the snapshot timestamp.
func Evaluate(s models.SystemMetricsSnapshot) []models.Alert {
	alerts := []models.Alert{}
	for _, rule := range alertRules {
		severity, details, fired := rule.check(s)
		if !fired {
			continue
		}
		payload, _ := json.Marshal(details)
		alerts = append(alerts, models.Alert{
			ID:        alertID(rule.name, s),
			Rule:      rule.name,
			Type:      rule.typ,
			Category:  rule.category,
			Message:   rule.message,
			Details:   string(payload),
			Severity:  severity,
			Timestamp: s.Timestamp.UTC(),
		})
	}
	return alerts
}

func alertID(rule string, s models.SystemMetricsSnapshot) string {
	return fmt.Sprintf("%s-%d", rule, s.Timestamp.UnixMilli())
}

func pick(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
