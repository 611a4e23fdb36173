package content

import (
	"context"
	"fmt"
	"math"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/jmoiron/sqlx"
)

const (
	StatusPending = "PENDING"
	StatusSpam    = "SPAM"
)

// Stats reads the CMS tables. It never writes to them.
type Stats struct {
	db *sqlx.DB
}

func NewStats(db *sqlx.DB) *Stats {
	return &Stats{db: db}
}

// Content counts posts and comments; "today" means the trailing 24 hours.
func (s *Stats) Content(ctx context.Context, now time.Time) (models.ContentMetrics, error) {
	since := now.Add(-24 * time.Hour).UTC()
	var row struct {
		TotalPosts      int `db:"total_posts"`
		PublishedToday  int `db:"published_today"`
		PendingComments int `db:"pending_comments"`
		SpamBlocked     int `db:"spam_blocked"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
SELECT
  (SELECT COUNT(*) FROM posts) AS total_posts,
  (SELECT COUNT(*) FROM posts WHERE published_at IS NOT NULL AND published_at >= ?) AS published_today,
  (SELECT COUNT(*) FROM comments WHERE status = ?) AS pending_comments,
  (SELECT COUNT(*) FROM comments WHERE status = ? AND created_at >= ?) AS spam_blocked`),
		since, StatusPending, StatusSpam, since)
	if err != nil {
		return models.ContentMetrics{}, fmt.Errorf("content stats: %w", err)
	}
	return models.ContentMetrics{
		TotalPosts:      row.TotalPosts,
		PublishedToday:  row.PublishedToday,
		PendingComments: row.PendingComments,
		SpamBlocked:     row.SpamBlocked,
	}, nil
}

// Users derives activity from sessions in the trailing 24 hours. A session
// with a single recorded activity counts as a bounce.
func (s *Stats) Users(ctx context.Context, now time.Time) (models.UserMetrics, error) {
	since := now.Add(-24 * time.Hour).UTC()

	var signups int
	if err := s.db.GetContext(ctx, &signups, s.db.Rebind(`
SELECT COUNT(*) FROM users WHERE created_at >= ?`), since); err != nil {
		return models.UserMetrics{}, fmt.Errorf("user stats: %w", err)
	}

	var sessions struct {
		Total   int `db:"total"`
		Bounced int `db:"bounced"`
	}
	if err := s.db.GetContext(ctx, &sessions, s.db.Rebind(`
SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN hits = 1 THEN 1 ELSE 0 END), 0) AS bounced
FROM (
  SELECT session_id, COUNT(*) AS hits
  FROM user_activities
  WHERE created_at >= ?
  GROUP BY session_id
) s`), since); err != nil {
		return models.UserMetrics{}, fmt.Errorf("user stats: %w", err)
	}

	metrics := models.UserMetrics{ActiveUsers: sessions.Total, NewSignups: signups}
	if sessions.Total > 0 {
		rate := float64(sessions.Bounced) / float64(sessions.Total) * 100
		metrics.BounceRate = math.Round(rate*100) / 100
	}
	return metrics, nil
}
