package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	JobQueued = "queued"
	JobDone   = "done"
)

type ModerationJob struct {
	ID        string    `db:"id" json:"id"`
	Reason    string    `db:"reason" json:"reason"`
	AlertID   *string   `db:"alert_id" json:"alertId,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ModerationQueue hands auto-moderation sweeps to the CMS worker that owns
// the comment model. Jobs are only ever queued here.
type ModerationQueue struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewModerationQueue(db *sqlx.DB, now func() time.Time) *ModerationQueue {
	if now == nil {
		now = time.Now
	}
	return &ModerationQueue{db: db, now: now}
}

// Enqueue adds a sweep job unless one is already queued, and returns the job id
// that will handle it.
func (q *ModerationQueue) Enqueue(ctx context.Context, reason, alertID string) (string, error) {
	var existing string
	err := q.db.GetContext(ctx, &existing, q.db.Rebind(`
SELECT id FROM moderation_jobs WHERE status = ? ORDER BY created_at LIMIT 1`), JobQueued)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("enqueue moderation job: %w", err)
	}

	var alert *string
	if alertID != "" {
		alert = &alertID
	}
	id := uuid.NewString()
	if _, err := q.db.ExecContext(ctx, q.db.Rebind(`
INSERT INTO moderation_jobs (id, reason, alert_id, status, created_at) VALUES (?, ?, ?, ?, ?)`),
		id, reason, alert, JobQueued, q.now().UTC()); err != nil {
		return "", fmt.Errorf("enqueue moderation job: %w", err)
	}
	return id, nil
}

func (q *ModerationQueue) Queued(ctx context.Context) ([]ModerationJob, error) {
	jobs := []ModerationJob{}
	if err := q.db.SelectContext(ctx, &jobs, q.db.Rebind(`
SELECT id, reason, alert_id, status, created_at FROM moderation_jobs WHERE status = ? ORDER BY created_at`), JobQueued); err != nil {
		return nil, fmt.Errorf("list moderation jobs: %w", err)
	}
	return jobs, nil
}
