package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser   Role = "USER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// ParseRole maps a role code onto a known role; anything unrecognised is USER.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleEditor:
		return RoleEditor
	}
	return RoleUser
}

// LookupRole is the strict form of ParseRole used when loading policy tables.
func LookupRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	return role, role.rank() > 0
}

// HighestRole picks the most privileged known role from a token's role list.
func HighestRole(codes []string) Role {
	best := RoleUser
	for _, code := range codes {
		role := ParseRole(code)
		if role.rank() > best.rank() {
			best = role
		}
	}
	return best
}

type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

type AITaskRequest struct {
	Identity  Identity  `json:"identity"`
	Task      string    `json:"task"`
	Provider  string    `json:"provider"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type UsageRecord struct {
	ID             string    `db:"id" json:"id"`
	IdentityID     string    `db:"identity_id" json:"identityId"`
	Provider       string    `db:"provider" json:"provider"`
	Task           string    `db:"task" json:"task"`
	Success        bool      `db:"success" json:"success"`
	TokensUsed     int       `db:"tokens_used" json:"tokensUsed"`
	ResponseTimeMs int       `db:"response_time_ms" json:"responseTimeMs"`
	Error          *string   `db:"error" json:"error,omitempty"`
	Cached         bool      `db:"cached" json:"cached"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type SecurityEvent struct {
	ID         string    `db:"id" json:"id"`
	IdentityID string    `db:"identity_id" json:"identityId"`
	Action     string    `db:"action" json:"action"`
	Severity   Severity  `db:"severity" json:"severity"`
	Details    string    `db:"details" json:"details"`
	Timestamp  time.Time `db:"created_at" json:"timestamp"`
}

type DatabaseMetrics struct {
	ConnectionCount int   `json:"connectionCount"`
	QueryTimeMs     int64 `json:"queryTimeMs"`
	Errors          int   `json:"errors"`
}

type PerformanceMetrics struct {
	ResponseTimeMs int64   `json:"responseTimeMs"`
	MemoryUsagePct float64 `json:"memoryUsagePct"`
	CPUUsagePct    float64 `json:"cpuUsagePct"`
	HeapUsedBytes  uint64  `json:"heapUsedBytes"`
}

type ContentMetrics struct {
	TotalPosts      int `json:"totalPosts"`
	PublishedToday  int `json:"publishedToday"`
	PendingComments int `json:"pendingComments"`
	SpamBlocked     int `json:"spamBlocked"`
}

type UserMetrics struct {
	ActiveUsers int     `json:"activeUsers"`
	NewSignups  int     `json:"newSignups"`
	BounceRate  float64 `json:"bounceRate"`
}

type AIMetrics struct {
	RequestsToday     int     `json:"requestsToday"`
	TokensUsed        int     `json:"tokensUsed"`
	AvgResponseTimeMs int64   `json:"avgResponseTimeMs"`
	ErrorRatePct      float64 `json:"errorRatePct"`
}

type SecurityMetrics struct {
	HighSeverityEvents int `json:"highSeverityEvents"`
	CriticalEvents     int `json:"criticalEvents"`
}

type SystemMetricsSnapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	Database    DatabaseMetrics    `json:"database"`
	Performance PerformanceMetrics `json:"performance"`
	Content     ContentMetrics     `json:"content"`
	User        UserMetrics        `json:"user"`
	AI          AIMetrics          `json:"ai"`
	Security    SecurityMetrics    `json:"security"`
}

type AlertType string

const (
	AlertError   AlertType = "error"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
)

type AlertCategory string

const (
	CategoryPerformance AlertCategory = "performance"
	CategorySecurity    AlertCategory = "security"
	CategoryContent     AlertCategory = "content"
	CategoryUser        AlertCategory = "user"
	CategoryAI          AlertCategory = "ai"
)

type Alert struct {
	ID                string        `db:"id" json:"id"`
	Rule              string        `db:"rule" json:"rule"`
	Type              AlertType     `db:"type" json:"type"`
	Category          AlertCategory `db:"category" json:"category"`
	Message           string        `db:"message" json:"message"`
	Details           string        `db:"details" json:"details"`
	Severity          int           `db:"severity" json:"severity"`
	Timestamp         time.Time     `db:"created_at" json:"timestamp"`
	Resolved          bool          `db:"resolved" json:"resolved"`
	ResolvedAt        *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolvedBy        *string       `db:"resolved_by" json:"resolvedBy,omitempty"`
	RemediationAction *string       `db:"remediation_action" json:"remediationAction,omitempty"`
	RemediatedAt      *time.Time    `db:"remediated_at" json:"remediatedAt,omitempty"`
}
