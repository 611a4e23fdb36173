package governance

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/metrics"
	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/safety"

	"go.uber.org/zap"
)

// Store is what validation needs from persistence.
type Store interface {
	UsageCounter
	EventStore
}

type Options struct {
	Limits       Limits
	StoreTimeout time.Duration
	Clock        func() time.Time
	Logger       *zap.Logger
	Notifier     Notifier
}

func (o Options) withDefaults() Options {
	if o.Limits.MaxRequestsPerHour <= 0 {
		o.Limits.MaxRequestsPerHour = levelLimits[LevelLow].MaxRequestsPerHour
	}
	if o.Limits.MaxTokensPerDay <= 0 {
		o.Limits.MaxTokensPerDay = levelLimits[LevelLow].MaxTokensPerDay
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 2 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Validator runs the four-stage admission pipeline: rate, permission,
// content safety, quota. It stops at the first failing stage and writes
// exactly one security event per call.
type Validator struct {
	policies *policy.Holder
	rate     *RateLimiter
	quota    *QuotaTracker
	events   *eventRecorder
	limits   atomic.Pointer[Limits]
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewValidator(store Store, policies *policy.Holder, opts Options) *Validator {
	opts = opts.withDefaults()
	v := &Validator{
		policies: policies,
		rate:     NewRateLimiter(store),
		quota:    NewQuotaTracker(store),
		events: &eventRecorder{
			store:    store,
			notifier: opts.Notifier,
			logger:   opts.Logger,
			timeout:  opts.StoreTimeout,
		},
		timeout: opts.StoreTimeout,
		now:     opts.Clock,
		logger:  opts.Logger,
	}
	limits := opts.Limits
	v.limits.Store(&limits)
	return v
}

func (v *Validator) Limits() Limits {
	return *v.limits.Load()
}

// AdjustSecurityLevel swaps the rate and quota ceilings for all subsequent requests.
func (v *Validator) AdjustSecurityLevel(level SecurityLevel) (Limits, error) {
	limits, ok := LimitsFor(level)
	if !ok {
		return Limits{}, fmt.Errorf("unknown security level %q", level)
	}
	v.limits.Store(&limits)
	v.logger.Info("security level adjusted",
		zap.String("level", string(level)),
		zap.Int("max_requests_per_hour", limits.MaxRequestsPerHour),
		zap.Int("max_tokens_per_day", limits.MaxTokensPerDay),
	)
	return limits, nil
}

// Validate decides whether req may proceed to a provider.
// Store failures deny with severity critical rather than letting the request through.
func (v *Validator) Validate(ctx context.Context, req models.AITaskRequest) Result {
	return v.validate(ctx, req, nil)
}

// stage is an extra check run only after every built-in check admitted the
// request. Its verdict replaces the admission and is recorded as the one event.
type stage func(p *policy.Policy) (Result, map[string]interface{}, bool)

func (v *Validator) validate(ctx context.Context, req models.AITaskRequest, last stage) Result {
	// windows are anchored on the server clock, never on the caller's timestamp
	now := v.now()
	identityID := req.Identity.ID
	p := v.policies.Get()

	result, details, err := v.evaluate(ctx, req, p, v.Limits(), now)
	if err == nil && result.Valid && last != nil {
		if denial, extra, ok := last(p); !ok {
			result, details = denial, extra
		}
	}
	if err != nil {
		v.logger.Error("store unavailable, denying request",
			zap.String("identity_id", identityID),
			zap.String("task", req.Task),
			zap.Error(err),
		)
		result = failSecure()
		details = map[string]interface{}{"error": err.Error()}
	}
	details["task"] = req.Task
	details["provider"] = req.Provider
	details["role"] = string(req.Identity.Role)
	if !result.Valid {
		details["reason"] = result.Reason
	}

	action := string(result.Code)
	if err := v.events.record(ctx, identityID, action, result.Severity, details, now); err != nil {
		v.logger.Error("store unavailable, security event not recorded",
			zap.String("identity_id", identityID),
			zap.String("action", action),
			zap.Error(err),
		)
		if result.Valid {
			result = failSecure()
		}
	}

	metrics.ValidationsTotal.WithLabelValues(string(result.Code), string(result.Severity)).Inc()
	if !result.Valid && result.Code != CodeStoreUnavailable {
		v.logger.Warn("request denied",
			zap.String("identity_id", identityID),
			zap.String("code", string(result.Code)),
			zap.String("reason", result.Reason),
		)
	}
	return result
}

func (v *Validator) evaluate(ctx context.Context, req models.AITaskRequest, p *policy.Policy, limits Limits, now time.Time) (Result, map[string]interface{}, error) {
	identityID := req.Identity.ID

	rate, err := v.checkRate(ctx, identityID, limits, now)
	if err != nil {
		return Result{}, nil, err
	}
	if !rate.Allowed {
		return denied(CodeRateLimitExceeded, models.SeverityMedium,
				fmt.Sprintf("Rate limit exceeded: %d/%d requests per hour", rate.Used, rate.Limit)),
			map[string]interface{}{"requestCount": rate.Used, "limit": rate.Limit}, nil
	}

	text := safety.Normalize(req.Task, req.Provider, req.Payload)
	if result, details, ok := checkPermissions(p, req, text); !ok {
		return result, details, nil
	}

	if finding, found := safety.Inspect(p, text); found {
		return denied(Code(finding.Kind), finding.Severity, finding.Reason),
			map[string]interface{}{"rule": finding.Rule, "payloadLength": len(req.Payload)}, nil
	}

	quota, err := v.checkQuota(ctx, identityID, limits, now)
	if err != nil {
		return Result{}, nil, err
	}
	if !quota.Allowed {
		return denied(CodeTokenQuotaExceeded, models.SeverityMedium,
				fmt.Sprintf("Daily token quota exceeded: %d/%d", quota.Used, quota.Limit)),
			map[string]interface{}{"tokensUsed": quota.Used, "limit": quota.Limit}, nil
	}

	return admitted(), map[string]interface{}{"tokensRemaining": quota.Remaining()}, nil
}

func (v *Validator) checkRate(ctx context.Context, identityID string, limits Limits, now time.Time) (Decision, error) {
	storeCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return v.rate.Check(storeCtx, identityID, limits.MaxRequestsPerHour, now)
}

func (v *Validator) checkQuota(ctx context.Context, identityID string, limits Limits, now time.Time) (Decision, error) {
	storeCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return v.quota.Check(storeCtx, identityID, limits.MaxTokensPerDay, now)
}

func checkPermissions(p *policy.Policy, req models.AITaskRequest, text string) (Result, map[string]interface{}, bool) {
	role := req.Identity.Role
	if role != models.RoleAdmin {
		if keyword, found := safety.AdminKeyword(p, text); found {
			return denied(CodeAdminContent, models.SeverityHigh, "Admin-only content detected: "+keyword),
				map[string]interface{}{"keyword": keyword}, false
		}
	}
	if req.Task != "" && !p.Matrix.CanPerformTask(role, req.Task) {
		return denied(CodePermissionDenied, models.SeverityMedium,
			fmt.Sprintf("Task %s not allowed for role %s", req.Task, role)), map[string]interface{}{}, false
	}
	if req.Provider != "" && !p.Matrix.CanUseProvider(role, req.Provider) {
		return denied(CodePermissionDenied, models.SeverityMedium,
			fmt.Sprintf("Provider %s not allowed for role %s", req.Provider, role)), map[string]interface{}{}, false
	}
	return Result{}, nil, true
}
