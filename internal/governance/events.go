package governance

import (
	"context"
	"encoding/json"
	"time"

	"fluxao-backend-go/internal/metrics"
	"fluxao-backend-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventStore interface {
	InsertSecurityEvent(ctx context.Context, event models.SecurityEvent) error
}

// Notifier receives security events of severity high or above as soon as they are stored.
type Notifier interface {
	NotifySecurityEvent(event models.SecurityEvent)
}

type eventRecorder struct {
	store    EventStore
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
}

func (r *eventRecorder) record(ctx context.Context, identityID, action string, severity models.Severity, details map[string]interface{}, at time.Time) error {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	event := models.SecurityEvent{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Action:     action,
		Severity:   severity,
		Details:    string(payload),
		Timestamp:  at.UTC(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.store.InsertSecurityEvent(storeCtx, event); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("insert_security_event").Inc()
		return err
	}
	metrics.SecurityEventsTotal.WithLabelValues(action, string(severity)).Inc()

	if severity.AtLeast(models.SeverityHigh) {
		r.logger.Error("security alert",
			zap.String("identity_id", identityID),
			zap.String("action", action),
			zap.String("severity", string(severity)),
			zap.String("details", event.Details),
		)
		if r.notifier != nil {
			r.notifier.NotifySecurityEvent(event)
		}
	}
	return nil
}
