package governance

import "fluxao-backend-go/internal/models"

type Code string

const (
	CodeRateLimitExceeded  Code = "rate_limit_exceeded"
	CodePermissionDenied   Code = "permission_denied"
	CodeAdminContent       Code = "admin_content_detected"
	CodeBlockedKeyword     Code = "blocked_keyword"
	CodeSuspiciousPattern  Code = "suspicious_pattern"
	CodeInjectionDetected  Code = "injection_detected"
	CodeTokenQuotaExceeded Code = "token_quota_exceeded"
	CodeStoreUnavailable   Code = "store_unavailable"
	CodeRequestValidated   Code = "request_validated"
)

// Result is the outcome of validating one AI task request.
// A denial is a Result, not an error.
type Result struct {
	Valid    bool            `json:"valid"`
	Reason   string          `json:"reason,omitempty"`
	Severity models.Severity `json:"severity"`
	Blocked  bool            `json:"blocked"`
	Code     Code            `json:"code"`
}

func admitted() Result {
	return Result{Valid: true, Severity: models.SeverityLow, Code: CodeRequestValidated}
}

func denied(code Code, severity models.Severity, reason string) Result {
	return Result{Valid: false, Reason: reason, Severity: severity, Blocked: true, Code: code}
}

func failSecure() Result {
	return denied(CodeStoreUnavailable, models.SeverityCritical, "Security validation error")
}
