package monitor

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/metrics"
	"fluxao-backend-go/internal/models"

	"go.uber.org/zap"
)

const (
	ActionPurgeCache       = "purge_response_cache"
	ActionModerationSweep  = "enqueue_moderation_sweep"
	ActionProviderFailover = "raise_provider_failover"
)

type CachePurger interface {
	Purge() int
}

type ModerationEnqueuer interface {
	Enqueue(ctx context.Context, reason, alertID string) (string, error)
}

type FailoverSwitch interface {
	RaiseFailover() bool
	ClearFailover() bool
}

type RemediationStore interface {
	MarkRemediated(ctx context.Context, id, action string, at time.Time) error
}

type RemediatorDeps struct {
	Cache      CachePurger
	Moderation ModerationEnqueuer
	Failover   FailoverSwitch
	Store      RemediationStore
	// FreeOSMemory defaults to debug.FreeOSMemory.
	FreeOSMemory func()
	Clock        func() time.Time
	Logger       *zap.Logger
}

// Remediator dispatches the automatic fix for an alert. It records what it
// did on the alert but never resolves it; resolution needs a fresh measurement.
type Remediator struct {
	deps RemediatorDeps
}

func NewRemediator(deps RemediatorDeps) *Remediator {
	if deps.FreeOSMemory == nil {
		deps.FreeOSMemory = debug.FreeOSMemory
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	deps.Logger = logging.OrNop(deps.Logger)
	return &Remediator{deps: deps}
}

// AutoRemediate reports whether a remediation was dispatched. Failures,
// including panics inside an action, are logged and reported as false.
func (r *Remediator) AutoRemediate(ctx context.Context, alert models.Alert) (ok bool) {
	action := actionFor(alert)
	if action == "" {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Logger.Error("remediation panicked",
				zap.String("alert_id", alert.ID),
				zap.String("action", action),
				zap.Any("panic", rec),
			)
			metrics.RemediationsTotal.WithLabelValues(action, "failed").Inc()
			ok = false
		}
	}()

	detail, err := r.dispatch(ctx, action, alert)
	if err != nil {
		r.deps.Logger.Error("remediation failed",
			zap.String("alert_id", alert.ID),
			zap.String("action", action),
			zap.Error(err),
		)
		metrics.RemediationsTotal.WithLabelValues(action, "failed").Inc()
		return false
	}

	if r.deps.Store != nil {
		if err := r.deps.Store.MarkRemediated(ctx, alert.ID, action, r.deps.Clock()); err != nil {
			r.deps.Logger.Warn("remediation not recorded", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}
	metrics.RemediationsTotal.WithLabelValues(action, "dispatched").Inc()
	r.deps.Logger.Info("remediation dispatched",
		zap.String("alert_id", alert.ID),
		zap.String("action", action),
		zap.String("detail", detail),
	)
	return true
}

// AlertResolved undoes remediation state that must not outlive the alert.
func (r *Remediator) AlertResolved(alert models.Alert) {
	if alert.Category == models.CategoryAI && r.deps.Failover != nil && r.deps.Failover.ClearFailover() {
		r.deps.Logger.Info("provider failover cleared", zap.String("alert_id", alert.ID))
	}
}

func (r *Remediator) dispatch(ctx context.Context, action string, alert models.Alert) (string, error) {
	switch action {
	case ActionPurgeCache:
		if r.deps.Cache == nil {
			return "", fmt.Errorf("response cache not configured")
		}
		purged := r.deps.Cache.Purge()
		r.deps.FreeOSMemory()
		return fmt.Sprintf("purged %d cached responses", purged), nil
	case ActionModerationSweep:
		if r.deps.Moderation == nil {
			return "", fmt.Errorf("moderation queue not configured")
		}
		jobID, err := r.deps.Moderation.Enqueue(ctx, alert.Message, alert.ID)
		if err != nil {
			return "", err
		}
		return "moderation job " + jobID, nil
	case ActionProviderFailover:
		if r.deps.Failover == nil {
			return "", fmt.Errorf("provider registry not configured")
		}
		if r.deps.Failover.RaiseFailover() {
			return "failover raised", nil
		}
		return "failover already active", nil
	}
	return "", fmt.Errorf("unknown action %q", action)
}

func actionFor(alert models.Alert) string {
	message := strings.ToLower(alert.Message)
	switch {
	case alert.Category == models.CategoryPerformance && strings.Contains(message, "memory"):
		return ActionPurgeCache
	case alert.Category == models.CategoryContent && strings.Contains(message, "pending comments"):
		return ActionModerationSweep
	case alert.Category == models.CategoryAI && strings.Contains(message, "error rate"):
		return ActionProviderFailover
	}
	return ""
}
