package monitor

import (
	"math"

	"fluxao-backend-go/internal/models"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

const (
	ComponentDatabase    = "database"
	ComponentPerformance = "performance"
	ComponentContent     = "content"
	ComponentAI          = "ai"
)

type ComponentHealth struct {
	Score  int    `json:"score"`
	Status Status `json:"status"`
}

type Report struct {
	Overall    Status                       `json:"overall"`
	Score      int                          `json:"score"`
	Components map[string]ComponentHealth   `json:"components"`
	Alerts     []models.Alert               `json:"alerts"`
	Snapshot   models.SystemMetricsSnapshot `json:"metrics"`
}

// Score is a pure function of the snapshot. An alert of severity 4 or more
// forces critical; a critical component caps the overall status at warning.
func Score(s models.SystemMetricsSnapshot) Report {
	components := map[string]ComponentHealth{
		ComponentDatabase:    component(databaseScore(s.Database)),
		ComponentPerformance: component(performanceScore(s.Performance)),
		ComponentContent:     component(contentScore(s.Content)),
		ComponentAI:          component(aiScore(s.AI)),
	}

	total := 0
	anyCritical := false
	for _, c := range components {
		total += c.Score
		if c.Status == StatusCritical {
			anyCritical = true
		}
	}
	score := clamp(int(math.Round(float64(total) / float64(len(components)))))

	overall := StatusCritical
	switch {
	case score >= 85:
		overall = StatusHealthy
	case score >= 70:
		overall = StatusWarning
	}

	alerts := Evaluate(s)
	for _, alert := range alerts {
		if alert.Severity >= 4 {
			overall = StatusCritical
		}
	}
	if anyCritical && overall == StatusHealthy {
		overall = StatusWarning
	}

	return Report{
		Overall:    overall,
		Score:      score,
		Components: components,
		Alerts:     alerts,
		Snapshot:   s,
	}
}

func databaseScore(m models.DatabaseMetrics) int {
	score := 100
	if m.QueryTimeMs > 1000 {
		score -= 20
	}
	if m.QueryTimeMs > 2000 {
		score -= 30
	}
	if m.Errors > 0 {
		score -= 25
	}
	return score
}

func performanceScore(m models.PerformanceMetrics) int {
	score := 100
	if m.MemoryUsagePct > 80 {
		score -= 20
	}
	if m.MemoryUsagePct > 90 {
		score -= 30
	}
	if m.ResponseTimeMs > 2000 {
		score -= 25
	}
	return score
}

func contentScore(m models.ContentMetrics) int {
	score := 100
	if m.PendingComments > 50 {
		score -= 15
	}
	if m.PendingComments > 100 {
		score -= 25
	}
	return score
}

func aiScore(m models.AIMetrics) int {
	score := 100
	if m.ErrorRatePct > 5 {
		score -= 20
	}
	if m.ErrorRatePct > 10 {
		score -= 40
	}
	if m.AvgResponseTimeMs > 5000 {
		score -= 15
	}
	return score
}

func component(score int) ComponentHealth {
	score = clamp(score)
	switch {
	case score > 80:
		return ComponentHealth{Score: score, Status: StatusHealthy}
	case score > 60:
		return ComponentHealth{Score: score, Status: StatusWarning}
	}
	return ComponentHealth{Score: score, Status: StatusCritical}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
