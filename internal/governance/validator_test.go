package governance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	requests int
	tokens   int
	countErr error
	sumErr   error
	eventErr error
	usageErr error
	since    []time.Time
	events   []models.SecurityEvent
	usage    []models.UsageRecord
}

func (f *fakeStore) CountRequestsSince(ctx context.Context, identityID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	return f.requests + len(f.usage), f.countErr
}

func (f *fakeStore) SumTokensSince(ctx context.Context, identityID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	return f.tokens, f.sumErr
}

func (f *fakeStore) InsertSecurityEvent(ctx context.Context, event models.SecurityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) InsertUsage(ctx context.Context, rec models.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usageErr != nil {
		return f.usageErr
	}
	f.usage = append(f.usage, rec)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (n *recordingNotifier) NotifySecurityEvent(event models.SecurityEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func newTestValidator(s *fakeStore, notifier Notifier) *Validator {
	return NewValidator(s, policy.NewHolder(policy.Default()), Options{
		Clock:    func() time.Time { return fixedNow },
		Notifier: notifier,
	})
}

func request(role models.Role, task, provider, payload string) models.AITaskRequest {
	return models.AITaskRequest{
		Identity: models.Identity{ID: "user-1", Role: role},
		Task:     task,
		Provider: provider,
		Payload:  payload,
	}
}

func TestValidate_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		req      models.AITaskRequest
		code     Code
		severity models.Severity
		reason   string
	}{
		{
			name:     "task not allowed for role",
			req:      request(models.RoleUser, "trend-analysis", "", "show me the trends"),
			code:     CodePermissionDenied,
			severity: models.SeverityMedium,
			reason:   "Task trend-analysis not allowed for role USER",
		},
		{
			name:     "provider not allowed for role",
			req:      request(models.RoleEditor, "analysis", "llama", "weekly summary"),
			code:     CodePermissionDenied,
			severity: models.SeverityMedium,
			reason:   "Provider llama not allowed for role EDITOR",
		},
		{
			name:     "blocked keyword",
			req:      request(models.RoleAdmin, "analysis", "claude", "please DROP TABLE users"),
			code:     CodeBlockedKeyword,
			severity: models.SeverityHigh,
			reason:   "Blocked keyword detected: drop table",
		},
		{
			name:     "template injection",
			req:      request(models.RoleUser, "", "", "${process.env.SECRET}"),
			code:     CodeInjectionDetected,
			severity: models.SeverityCritical,
			reason:   "Potential injection attack detected",
		},
		{
			name:     "template injection as admin",
			req:      request(models.RoleAdmin, "analysis", "claude", "${process.env.SECRET}"),
			code:     CodeInjectionDetected,
			severity: models.SeverityCritical,
			reason:   "Potential injection attack detected",
		},
		{
			name:     "suspicious mustache",
			req:      request(models.RoleEditor, "analysis", "claude", "render {{ user.name }} here"),
			code:     CodeSuspiciousPattern,
			severity: models.SeverityHigh,
			reason:   "Suspicious pattern detected: template-mustache",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeStore{}
			got := newTestValidator(s, nil).Validate(context.Background(), tt.req)

			assert.False(t, got.Valid)
			assert.True(t, got.Blocked)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, tt.reason, got.Reason)

			require.Len(t, s.events, 1)
			assert.Equal(t, string(tt.code), s.events[0].Action)
			assert.Equal(t, tt.severity, s.events[0].Severity)
			assert.Empty(t, s.usage)
		})
	}
}

func TestValidate_AdminKeywordBeatsPermissions(t *testing.T) {
	for _, role := range []models.Role{models.RoleUser, models.RoleEditor} {
		t.Run(string(role), func(t *testing.T) {
			s := &fakeStore{}
			// the task is allowed for EDITOR and not for USER; both must see the keyword denial
			got := newTestValidator(s, nil).Validate(context.Background(),
				request(role, "analysis", "claude", "describe the database schema"))

			assert.Equal(t, CodeAdminContent, got.Code)
			assert.Equal(t, models.SeverityHigh, got.Severity)
			assert.Equal(t, "Admin-only content detected: database schema", got.Reason)
		})
	}

	s := &fakeStore{}
	got := newTestValidator(s, nil).Validate(context.Background(),
		request(models.RoleAdmin, "analysis", "claude", "describe the database schema"))
	assert.True(t, got.Valid)
}

func TestValidate_RateBoundary(t *testing.T) {
	s := &fakeStore{requests: 100}
	v := newTestValidator(s, nil)

	got := v.Validate(context.Background(), request(models.RoleEditor, "analysis", "claude", "weekly summary"))
	assert.False(t, got.Valid)
	assert.Equal(t, CodeRateLimitExceeded, got.Code)
	assert.Equal(t, models.SeverityMedium, got.Severity)
	assert.Contains(t, got.Reason, "Rate limit exceeded: 100/100")

	s = &fakeStore{requests: 99}
	got = newTestValidator(s, nil).Validate(context.Background(), request(models.RoleEditor, "analysis", "claude", "weekly summary"))
	assert.True(t, got.Valid)
	assert.Equal(t, CodeRequestValidated, got.Code)
}

func TestValidate_WindowsUseServerClock(t *testing.T) {
	s := &fakeStore{}
	req := request(models.RoleEditor, "analysis", "claude", "weekly summary")
	req.Timestamp = fixedNow.Add(-72 * time.Hour)

	got := newTestValidator(s, nil).Validate(context.Background(), req)
	require.True(t, got.Valid)
	require.Len(t, s.since, 2)
	assert.True(t, s.since[0].Equal(fixedNow.Add(-time.Hour)))
	assert.True(t, s.since[1].Equal(fixedNow.Add(-24*time.Hour)))
}

func TestValidate_Quota(t *testing.T) {
	s := &fakeStore{tokens: 50000}
	got := newTestValidator(s, nil).Validate(context.Background(), request(models.RoleEditor, "analysis", "claude", "weekly summary"))
	assert.Equal(t, CodeTokenQuotaExceeded, got.Code)
	assert.Equal(t, "Daily token quota exceeded: 50000/50000", got.Reason)
	require.Len(t, s.events, 1)
	assert.Contains(t, s.events[0].Details, `"tokensUsed":50000`)
}

func TestValidate_Admitted(t *testing.T) {
	s := &fakeStore{tokens: 1200}
	got := newTestValidator(s, nil).Validate(context.Background(), request(models.RoleEditor, "content-generation", "claude", "a short piece about solar power"))

	assert.Equal(t, Result{Valid: true, Severity: models.SeverityLow, Code: CodeRequestValidated}, got)
	require.Len(t, s.events, 1)
	assert.Equal(t, "request_validated", s.events[0].Action)
	assert.Equal(t, "user-1", s.events[0].IdentityID)
	assert.Contains(t, s.events[0].Details, `"tokensRemaining":48800`)
	assert.True(t, s.events[0].Timestamp.Equal(fixedNow))
}

func TestValidate_FailSecure(t *testing.T) {
	unavailable := &store.Error{Op: "count requests", Err: errors.New("connection refused")}

	tests := []struct {
		name  string
		store *fakeStore
		event bool
	}{
		{"rate query fails", &fakeStore{countErr: unavailable}, true},
		{"quota query fails", &fakeStore{sumErr: unavailable}, true},
		{"event write fails", &fakeStore{eventErr: unavailable}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestValidator(tt.store, nil).Validate(context.Background(),
				request(models.RoleEditor, "analysis", "claude", "weekly summary"))

			assert.Equal(t, Result{
				Valid:    false,
				Reason:   "Security validation error",
				Severity: models.SeverityCritical,
				Blocked:  true,
				Code:     CodeStoreUnavailable,
			}, got)
			if tt.event {
				require.Len(t, tt.store.events, 1)
				assert.Equal(t, "store_unavailable", tt.store.events[0].Action)
			}
		})
	}
}

func TestValidate_NotifiesHighSeverity(t *testing.T) {
	notifier := &recordingNotifier{}
	v := newTestValidator(&fakeStore{}, notifier)

	v.Validate(context.Background(), request(models.RoleAdmin, "analysis", "claude", "please DROP TABLE users"))
	v.Validate(context.Background(), request(models.RoleUser, "trend-analysis", "", "trends"))
	v.Validate(context.Background(), request(models.RoleEditor, "analysis", "claude", "weekly summary"))

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "blocked_keyword", notifier.events[0].Action)
}

func TestAdjustSecurityLevel(t *testing.T) {
	s := &fakeStore{requests: 60}
	v := newTestValidator(s, nil)
	req := request(models.RoleEditor, "analysis", "claude", "weekly summary")

	assert.True(t, v.Validate(context.Background(), req).Valid)

	limits, err := v.AdjustSecurityLevel(LevelHigh)
	require.NoError(t, err)
	assert.Equal(t, Limits{MaxRequestsPerHour: 50, MaxTokensPerDay: 25000}, limits)
	assert.Equal(t, limits, v.Limits())

	got := v.Validate(context.Background(), req)
	assert.Equal(t, CodeRateLimitExceeded, got.Code)
	assert.Equal(t, "Rate limit exceeded: 60/50 requests per hour", got.Reason)

	_, err = v.AdjustSecurityLevel("paranoid")
	assert.Error(t, err)
	assert.Equal(t, limits, v.Limits())

	level, err := ParseSecurityLevel(" Medium ")
	require.NoError(t, err)
	assert.Equal(t, LevelMedium, level)
}
