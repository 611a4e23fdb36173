package monitor

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/metrics"
	"fluxao-backend-go/internal/models"

	"go.uber.org/zap"
)

var (
	ErrCycleRunning    = errors.New("monitoring cycle already running")
	ErrAlertNotFound   = errors.New("alert not found")
	ErrAlreadyResolved = errors.New("alert already resolved")
)

const monitorResolver = "monitor"

type AlertStore interface {
	InsertAlert(ctx context.Context, alert models.Alert) (bool, error)
	OpenAlerts(ctx context.Context) ([]models.Alert, error)
	GetAlert(ctx context.Context, id string) (models.Alert, error)
	ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error)
}

// Broadcaster is satisfied by *Hub.
type Broadcaster interface {
	BroadcastHealth(report Report)
	BroadcastAlert(alert models.Alert)
}

type Options struct {
	Interval time.Duration
	Clock    func() time.Time
	Logger   *zap.Logger
	Hub      Broadcaster
}

// Monitor runs collect, score, alert and remediate on a ticker. At most one
// cycle runs at a time; a tick that finds one in flight is skipped.
type Monitor struct {
	collector  *Collector
	alerts     AlertStore
	remediator *Remediator
	hub        Broadcaster
	interval   time.Duration
	now        func() time.Time
	logger     *zap.Logger
	running    atomic.Bool
	latest     atomic.Pointer[Report]
}

func New(collector *Collector, alerts AlertStore, remediator *Remediator, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Monitor{
		collector:  collector,
		alerts:     alerts,
		remediator: remediator,
		hub:        opts.Hub,
		interval:   opts.Interval,
		now:        opts.Clock,
		logger:     logging.OrNop(opts.Logger),
	}
}

func (m *Monitor) Run(ctx context.Context) {
	m.tick(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if _, err := m.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			m.logger.Warn("monitoring cycle skipped, previous cycle still running")
			return
		}
		m.logger.Error("monitoring cycle failed", zap.Error(err))
	}
}

// RunCycle performs one full monitoring pass. It returns ErrCycleRunning
// without doing anything when another cycle holds the slot.
func (m *Monitor) RunCycle(ctx context.Context) (Report, error) {
	if !m.running.CompareAndSwap(false, true) {
		metrics.MonitorCyclesTotal.WithLabelValues("skipped").Inc()
		return Report{}, ErrCycleRunning
	}
	defer m.running.Store(false)

	snapshot, err := m.collector.Collect(ctx)
	if err != nil {
		m.logger.Error("snapshot not persisted", zap.Error(err))
	}
	report := Score(snapshot)
	m.latest.Store(&report)
	observeReport(report)
	if m.hub != nil {
		m.hub.BroadcastHealth(report)
	}

	raised, alertErr := m.CheckAlerts(ctx, snapshot)
	for _, alert := range raised {
		m.remediator.AutoRemediate(ctx, alert)
	}
	if alertErr != nil {
		metrics.MonitorCyclesTotal.WithLabelValues("failed").Inc()
		return report, alertErr
	}

	metrics.MonitorCyclesTotal.WithLabelValues("ok").Inc()
	m.logger.Info("monitoring cycle complete",
		zap.String("overall", string(report.Overall)),
		zap.Int("score", report.Score),
		zap.Int("alerts_raised", len(raised)),
	)
	return report, nil
}

// CheckAlerts persists the alerts the snapshot fires, skipping rules that
// already have an open alert of the same or higher severity, and resolves open
// alerts whose rule no longer fires. A rule firing above its open alert's
// severity resolves that alert and raises a new one. It returns the newly
// raised alerts.
func (m *Monitor) CheckAlerts(ctx context.Context, snapshot models.SystemMetricsSnapshot) ([]models.Alert, error) {
	open, err := m.alerts.OpenAlerts(ctx)
	if err != nil {
		return nil, err
	}
	openByRule := map[string]models.Alert{}
	for _, alert := range open {
		openByRule[alert.Rule] = alert
	}

	fired := Evaluate(snapshot)
	firing := map[string]bool{}
	raised := []models.Alert{}
	for _, alert := range fired {
		firing[alert.Rule] = true
		if current, exists := openByRule[alert.Rule]; exists {
			if alert.Severity <= current.Severity {
				continue
			}
			// escalation: the open alert is superseded by one at the new severity
			if _, err := m.alerts.ResolveAlert(ctx, current.ID, monitorResolver, m.now()); err != nil {
				return raised, err
			}
			m.logger.Warn("alert escalated",
				zap.String("alert_id", current.ID),
				zap.String("rule", alert.Rule),
				zap.Int("from_severity", current.Severity),
				zap.Int("to_severity", alert.Severity),
			)
		}
		inserted, err := m.alerts.InsertAlert(ctx, alert)
		if err != nil {
			return raised, err
		}
		if !inserted {
			continue
		}
		raised = append(raised, alert)
		metrics.AlertsRaisedTotal.WithLabelValues(alert.Rule).Inc()
		m.logger.Warn("alert raised",
			zap.String("alert_id", alert.ID),
			zap.String("rule", alert.Rule),
			zap.Int("severity", alert.Severity),
			zap.String("message", alert.Message),
		)
		if m.hub != nil {
			m.hub.BroadcastAlert(alert)
		}
	}

	for _, alert := range open {
		if firing[alert.Rule] {
			continue
		}
		resolved, err := m.alerts.ResolveAlert(ctx, alert.ID, monitorResolver, m.now())
		if err != nil {
			return raised, err
		}
		if resolved {
			m.logger.Info("alert resolved after re-measurement", zap.String("alert_id", alert.ID), zap.String("rule", alert.Rule))
			m.remediator.AlertResolved(alert)
		}
	}
	return raised, nil
}

// ResolveAlert closes an alert on behalf of an operator.
func (m *Monitor) ResolveAlert(ctx context.Context, id, operator string) (models.Alert, error) {
	alert, err := m.alerts.GetAlert(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, ErrAlertNotFound
	}
	if err != nil {
		return models.Alert{}, err
	}
	if alert.Resolved {
		return alert, ErrAlreadyResolved
	}
	at := m.now().UTC()
	resolved, err := m.alerts.ResolveAlert(ctx, id, operator, at)
	if err != nil {
		return models.Alert{}, err
	}
	if !resolved {
		return alert, ErrAlreadyResolved
	}
	alert.Resolved = true
	alert.ResolvedAt = &at
	alert.ResolvedBy = &operator
	m.remediator.AlertResolved(alert)
	m.logger.Info("alert resolved by operator", zap.String("alert_id", id), zap.String("operator", operator))
	return alert, nil
}

// AutoRemediate exposes the remediator for callers outside the loop.
func (m *Monitor) AutoRemediate(ctx context.Context, alert models.Alert) bool {
	return m.remediator.AutoRemediate(ctx, alert)
}

// GetHealthStatus returns the last cycle's report, or scores a fresh sample
// that is not persisted when no cycle has run yet.
func (m *Monitor) GetHealthStatus(ctx context.Context) Report {
	if report := m.latest.Load(); report != nil {
		return *report
	}
	return Score(m.collector.Sample(ctx))
}

func observeReport(report Report) {
	metrics.HealthScore.Set(float64(report.Score))
	for name, c := range report.Components {
		metrics.ComponentScore.WithLabelValues(name).Set(float64(c.Score))
	}
}
