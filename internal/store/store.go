package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the append-only log of AI usage and security events plus the
// monitoring tables. Queries are written with ? placeholders and rebound for
// the driver in use, so the same code runs on Postgres and SQLite.
type Store struct {
	db     *sqlx.DB
	failures atomic.Int64
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// ErrorCount is the number of failed queries since the store was created.
func (s *Store) ErrorCount() int64 {
	return s.failures.Load()
}

// Ping measures a SELECT 1 round-trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var one int
	if err := s.db.GetContext(ctx, &one, `SELECT 1`); err != nil {
		return 0, s.wrap("ping", err)
	}
	return time.Since(start), nil
}

func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) InsertUsage(ctx context.Context, rec models.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO ai_usage (id, identity_id, provider, task, success, tokens_used, response_time_ms, error, cached, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.IdentityID, rec.Provider, rec.Task, rec.Success, rec.TokensUsed, rec.ResponseTimeMs,
		rec.Error, rec.Cached, rec.CreatedAt.UTC())
	return s.wrap("insert usage", err)
}

// CountRequestsSince counts usage records for an identity at or after since.
func (s *Store) CountRequestsSince(ctx context.Context, identityID string, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(`
SELECT COUNT(*) FROM ai_usage WHERE identity_id = ? AND created_at >= ?`), identityID, since.UTC())
	return count, s.wrap("count requests", err)
}

// SumTokensSince totals tokens consumed by an identity at or after since.
func (s *Store) SumTokensSince(ctx context.Context, identityID string, since time.Time) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, s.db.Rebind(`
SELECT COALESCE(SUM(tokens_used), 0) FROM ai_usage WHERE identity_id = ? AND created_at >= ?`), identityID, since.UTC())
	return total, s.wrap("sum tokens", err)
}

type ProviderUsage struct {
	Provider          string  `db:"provider" json:"provider"`
	Requests          int     `db:"requests" json:"requests"`
	Tokens            int     `db:"tokens" json:"tokens"`
	Failures          int     `db:"failures" json:"failures"`
	Cached            int     `db:"cached" json:"cached"`
	AvgResponseTimeMs float64 `db:"avg_response_time_ms" json:"avgResponseTimeMs"`
}

// UsageByProvider aggregates usage since a point in time, per provider.
// An empty identityID aggregates across all identities.
func (s *Store) UsageByProvider(ctx context.Context, identityID string, since time.Time) ([]ProviderUsage, error) {
	query := `
SELECT provider,
       COUNT(*) AS requests,
       COALESCE(SUM(tokens_used), 0) AS tokens,
       COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failures,
       COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0) AS cached,
       COALESCE(CAST(AVG(response_time_ms) AS DOUBLE PRECISION), 0) AS avg_response_time_ms
FROM ai_usage
WHERE created_at >= ?`
	args := []interface{}{since.UTC()}
	if identityID != "" {
		query += ` AND identity_id = ?`
		args = append(args, identityID)
	}
	query += ` GROUP BY provider ORDER BY provider`
	rows := []ProviderUsage{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, s.wrap("usage by provider", err)
	}
	return rows, nil
}

func (s *Store) InsertSecurityEvent(ctx context.Context, event models.SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO security_events (id, identity_id, action, severity, details, created_at)
VALUES (?, ?, ?, ?, ?, ?)`),
		event.ID, event.IdentityID, event.Action, string(event.Severity), event.Details, event.Timestamp.UTC())
	return s.wrap("insert security event", err)
}

type EventCount struct {
	Action   string          `db:"action" json:"action"`
	Severity models.Severity `db:"severity" json:"severity"`
	Count    int             `db:"count" json:"count"`
}

// SecurityEventCounts groups events since a point in time by action and severity.
func (s *Store) SecurityEventCounts(ctx context.Context, since time.Time) ([]EventCount, error) {
	rows := []EventCount{}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
SELECT action, severity, COUNT(*) AS count
FROM security_events
WHERE created_at >= ?
GROUP BY action, severity
ORDER BY count DESC, action`), since.UTC())
	if err != nil {
		return nil, s.wrap("security event counts", err)
	}
	return rows, nil
}

// RecentSecurityEvents returns the newest events since a point in time,
// optionally restricted to the given severities.
func (s *Store) RecentSecurityEvents(ctx context.Context, since time.Time, severities []models.Severity, limit int) ([]models.SecurityEvent, error) {
	query := `SELECT id, identity_id, action, severity, details, created_at FROM security_events WHERE created_at >= ?`
	args := []interface{}{since.UTC()}
	if len(severities) > 0 {
		values := make([]string, 0, len(severities))
		for _, severity := range severities {
			values = append(values, string(severity))
		}
		inQuery, inArgs, err := sqlx.In(` AND severity IN (?)`, values)
		if err != nil {
			return nil, s.wrap("recent security events", err)
		}
		query += inQuery
		args = append(args, inArgs...)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)
	rows := []models.SecurityEvent{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, s.wrap("recent security events", err)
	}
	return rows, nil
}

type IdentityEventCount struct {
	IdentityID string `db:"identity_id" json:"identityId"`
	Count      int    `db:"count" json:"eventCount"`
}

// TopEventIdentities ranks identities by the number of events at the given severities.
func (s *Store) TopEventIdentities(ctx context.Context, since time.Time, severities []models.Severity, limit int) ([]IdentityEventCount, error) {
	values := make([]string, 0, len(severities))
	for _, severity := range severities {
		values = append(values, string(severity))
	}
	query, args, err := sqlx.In(`
SELECT identity_id, COUNT(*) AS count
FROM security_events
WHERE created_at >= ? AND severity IN (?)
GROUP BY identity_id
ORDER BY count DESC, identity_id
LIMIT ?`, since.UTC(), values, limit)
	if err != nil {
		return nil, s.wrap("top event identities", err)
	}
	rows := []IdentityEventCount{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, s.wrap("top event identities", err)
	}
	return rows, nil
}

func (s *Store) InsertSnapshot(ctx context.Context, snapshot models.SystemMetricsSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO metric_snapshots (id, captured_at, payload) VALUES (?, ?, ?)`),
		uuid.NewString(), snapshot.Timestamp.UTC(), string(payload))
	return s.wrap("insert snapshot", err)
}

// LatestSnapshots returns up to limit snapshots, oldest first.
func (s *Store) LatestSnapshots(ctx context.Context, limit int) ([]models.SystemMetricsSnapshot, error) {
	payloads := []string{}
	if err := s.db.SelectContext(ctx, &payloads, s.db.Rebind(`
SELECT payload FROM metric_snapshots ORDER BY captured_at DESC LIMIT ?`), limit); err != nil {
		return nil, s.wrap("latest snapshots", err)
	}
	items := make([]models.SystemMetricsSnapshot, 0, len(payloads))
	for i := len(payloads) - 1; i >= 0; i-- {
		var snapshot models.SystemMetricsSnapshot
		if err := json.Unmarshal([]byte(payloads[i]), &snapshot); err != nil {
			return nil, err
		}
		items = append(items, snapshot)
	}
	return items, nil
}

const alertColumns = `id, rule, type, category, message, details, severity, created_at, resolved,
       resolved_at, resolved_by, remediation_action, remediated_at`

// InsertAlert stores an alert unless one with the same id exists.
func (s *Store) InsertAlert(ctx context.Context, alert models.Alert) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO alerts (id, rule, type, category, message, details, severity, created_at, resolved)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`),
		alert.ID, alert.Rule, string(alert.Type), string(alert.Category), alert.Message, alert.Details,
		alert.Severity, alert.Timestamp.UTC(), false)
	if err != nil {
		return false, s.wrap("insert alert", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.wrap("insert alert", err)
	}
	return affected > 0, nil
}

func (s *Store) OpenAlerts(ctx context.Context) ([]models.Alert, error) {
	rows := []models.Alert{}
	err := s.db.SelectContext(ctx, &rows, `SELECT `+alertColumns+` FROM alerts WHERE NOT resolved ORDER BY created_at`)
	if err != nil {
		return nil, s.wrap("open alerts", err)
	}
	return rows, nil
}

// ListAlerts returns the newest alerts first.
func (s *Store) ListAlerts(ctx context.Context, includeResolved bool, limit int) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	if !includeResolved {
		query += ` WHERE NOT resolved`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	rows := []models.Alert{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), limit); err != nil {
		return nil, s.wrap("list alerts", err)
	}
	return rows, nil
}

// GetAlert returns sql.ErrNoRows, unwrapped, when the alert does not exist.
func (s *Store) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	var alert models.Alert
	err := s.db.GetContext(ctx, &alert, s.db.Rebind(`SELECT `+alertColumns+` FROM alerts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, err
	}
	return alert, s.wrap("get alert", err)
}

// ResolveAlert closes an open alert. It reports false when the alert was already resolved or missing.
func (s *Store) ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
UPDATE alerts SET resolved = ?, resolved_at = ?, resolved_by = ? WHERE id = ? AND NOT resolved`),
		true, at.UTC(), resolvedBy, id)
	if err != nil {
		return false, s.wrap("resolve alert", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.wrap("resolve alert", err)
	}
	return affected > 0, nil
}

func (s *Store) MarkRemediated(ctx context.Context, id, action string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
UPDATE alerts SET remediation_action = ?, remediated_at = ? WHERE id = ?`), action, at.UTC(), id)
	return s.wrap("mark remediated", err)
}
