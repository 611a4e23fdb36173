package governance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/store"

	"golang.org/x/sync/errgroup"
)

type ReportStore interface {
	UsageByProvider(ctx context.Context, identityID string, since time.Time) ([]store.ProviderUsage, error)
	SecurityEventCounts(ctx context.Context, since time.Time) ([]store.EventCount, error)
	TopEventIdentities(ctx context.Context, since time.Time, severities []models.Severity, limit int) ([]store.IdentityEventCount, error)
}

type UsagePeriod struct {
	Requests          int                   `json:"requests"`
	TokensUsed        int                   `json:"tokensUsed"`
	Failures          int                   `json:"failures"`
	Cached            int                   `json:"cached"`
	AvgResponseTimeMs int64                 `json:"averageResponseTime"`
	SuccessRatePct    float64               `json:"successRate"`
	CostUSD           float64               `json:"cost"`
	Providers         []store.ProviderUsage `json:"topProviders"`
}

type UsageStats struct {
	Today     UsagePeriod `json:"today"`
	ThisWeek  UsagePeriod `json:"thisWeek"`
	ThisMonth UsagePeriod `json:"thisMonth"`
}

type ThreatCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

type SecurityStats struct {
	Range           string                     `json:"range"`
	TotalEvents     int                        `json:"totalEvents"`
	BlockedRequests int                        `json:"blockedRequests"`
	TopThreats      []ThreatCount              `json:"topThreats"`
	RiskUsers       []store.IdentityEventCount `json:"riskUsers"`
}

const (
	topThreatLimit = 5
	riskUserLimit  = 10
)

var statRanges = map[string]time.Duration{
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

// Reports aggregates the usage and security logs for dashboards.
type Reports struct {
	store    ReportStore
	policies *policy.Holder
	now      func() time.Time
}

func NewReports(s ReportStore, policies *policy.Holder, now func() time.Time) *Reports {
	if now == nil {
		now = time.Now
	}
	return &Reports{store: s, policies: policies, now: now}
}

// GetUsageStats covers the trailing day, week and 30 days. An empty identityID
// reports across all identities.
func (r *Reports) GetUsageStats(ctx context.Context, identityID string) (UsageStats, error) {
	now := r.now()
	var stats UsageStats
	g, gctx := errgroup.WithContext(ctx)
	periods := []struct {
		out    *UsagePeriod
		window time.Duration
	}{
		{&stats.Today, statRanges["day"]},
		{&stats.ThisWeek, statRanges["week"]},
		{&stats.ThisMonth, statRanges["month"]},
	}
	for _, period := range periods {
		period := period
		g.Go(func() error {
			rows, err := r.store.UsageByProvider(gctx, identityID, now.Add(-period.window))
			if err != nil {
				return err
			}
			*period.out = r.summarize(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return UsageStats{}, fmt.Errorf("usage stats: %w", err)
	}
	return stats, nil
}

func (r *Reports) summarize(rows []store.ProviderUsage) UsagePeriod {
	p := r.policies.Get()
	period := UsagePeriod{Providers: rows}
	var weightedTime float64
	for _, row := range rows {
		period.Requests += row.Requests
		period.TokensUsed += row.Tokens
		period.Failures += row.Failures
		period.Cached += row.Cached
		period.CostUSD += float64(row.Tokens) / 1000 * p.CostPer1K(row.Provider)
		weightedTime += row.AvgResponseTimeMs * float64(row.Requests)
	}
	if period.Requests > 0 {
		period.AvgResponseTimeMs = int64(math.Round(weightedTime / float64(period.Requests)))
		period.SuccessRatePct = float64(period.Requests-period.Failures) / float64(period.Requests) * 100
	}
	period.CostUSD = math.Round(period.CostUSD*10000) / 10000
	sort.SliceStable(period.Providers, func(i, j int) bool {
		return period.Providers[i].Requests > period.Providers[j].Requests
	})
	return period
}

// GetSecurityStats summarises security events over day, week or month.
// Every event other than request_validated counts as a blocked request.
func (r *Reports) GetSecurityStats(ctx context.Context, rangeName string) (SecurityStats, error) {
	if rangeName == "" {
		rangeName = "day"
	}
	window, ok := statRanges[rangeName]
	if !ok {
		return SecurityStats{}, fmt.Errorf("unknown range %q", rangeName)
	}
	since := r.now().Add(-window)

	var (
		counts []store.EventCount
		risky  []store.IdentityEventCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = r.store.SecurityEventCounts(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		risky, err = r.store.TopEventIdentities(gctx, since,
			[]models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}, riskUserLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return SecurityStats{}, fmt.Errorf("security stats: %w", err)
	}

	stats := SecurityStats{Range: rangeName, TopThreats: []ThreatCount{}, RiskUsers: risky}
	byAction := map[string]int{}
	for _, c := range counts {
		stats.TotalEvents += c.Count
		byAction[c.Action] += c.Count
		if c.Action != string(CodeRequestValidated) {
			stats.BlockedRequests += c.Count
		}
	}
	for action, count := range byAction {
		stats.TopThreats = append(stats.TopThreats, ThreatCount{Action: action, Count: count})
	}
	sort.Slice(stats.TopThreats, func(i, j int) bool {
		if stats.TopThreats[i].Count != stats.TopThreats[j].Count {
			return stats.TopThreats[i].Count > stats.TopThreats[j].Count
		}
		return stats.TopThreats[i].Action < stats.TopThreats[j].Action
	})
	if len(stats.TopThreats) > topThreatLimit {
		stats.TopThreats = stats.TopThreats[:topThreatLimit]
	}
	return stats, nil
}
