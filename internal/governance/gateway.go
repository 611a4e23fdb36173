package governance

import (
	"context"
	"time"

	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/metrics"
	"fluxao-backend-go/internal/models"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/prompt"
	"fluxao-backend-go/internal/provider"
	"fluxao-backend-go/internal/safety"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodePromptRejected is recorded when a request passes validation but the raw
// prompt fails the prompt checks.
const CodePromptRejected Code = "prompt_rejected"

type UsageStore interface {
	InsertUsage(ctx context.Context, rec models.UsageRecord) error
}

type ExecuteRequest struct {
	Identity models.Identity `json:"identity"`
	Task     string          `json:"task"`
	Provider string          `json:"provider"`
	Prompt   string          `json:"prompt"`
	Context  string          `json:"context,omitempty"`
}

type Execution struct {
	Validation     Result   `json:"validation"`
	Provider       string   `json:"provider,omitempty"`
	Text           string   `json:"text,omitempty"`
	Blocked        bool     `json:"blocked"`
	Reasons        []string `json:"reasons,omitempty"`
	TokensUsed     int      `json:"tokensUsed"`
	ResponseTimeMs int      `json:"responseTimeMs"`
	Cached         bool     `json:"cached"`
}

// Gateway is the full path of one AI task: validation, prompt check,
// enhancement, a single provider call, response filtering and usage accounting.
type Gateway struct {
	validator *Validator
	enhancer  *prompt.Enhancer
	registry  *provider.Registry
	cache     *provider.ResponseCache
	usage     UsageStore
	logger    *zap.Logger
}

// NewGateway wires the gateway. cache may be nil.
func NewGateway(validator *Validator, enhancer *prompt.Enhancer, registry *provider.Registry, cache *provider.ResponseCache, usage UsageStore, logger *zap.Logger) *Gateway {
	return &Gateway{
		validator: validator,
		enhancer:  enhancer,
		registry:  registry,
		cache:     cache,
		usage:     usage,
		logger:    logging.OrNop(logger),
	}
}

// Execute returns the validation outcome in Execution.Validation when the
// request is denied. A provider failure is returned unchanged as the error,
// after its failed usage record is written.
func (g *Gateway) Execute(ctx context.Context, req ExecuteRequest) (Execution, error) {
	pc := prompt.Context{Task: req.Task, Identity: req.Identity, FreeText: req.Context}

	// permissions are checked against the provider that will actually be called
	name := req.Provider
	if name == "" {
		name = g.registry.DefaultName()
	}

	result := g.validator.validate(ctx, models.AITaskRequest{
		Identity:  req.Identity,
		Task:      req.Task,
		Provider:  name,
		Payload:   req.Prompt,
		Timestamp: g.validator.now(),
	}, func(*policy.Policy) (Result, map[string]interface{}, bool) {
		check := g.enhancer.ValidatePrompt(req.Prompt, pc)
		if check.Valid {
			return Result{}, nil, true
		}
		return denied(CodePromptRejected, models.SeverityHigh, check.Reason), map[string]interface{}{}, false
	})
	if !result.Valid {
		return Execution{Validation: result, Blocked: true}, nil
	}

	client, err := g.registry.Resolve(name)
	if err != nil {
		return Execution{Validation: result}, err
	}
	providerName := client.Name()
	enhanced := g.enhancer.Enhance(req.Prompt, pc)

	completion, err := g.complete(ctx, client, enhanced)
	rec := models.UsageRecord{
		ID:             uuid.NewString(),
		IdentityID:     req.Identity.ID,
		Provider:       providerName,
		Task:           req.Task,
		Success:        err == nil,
		TokensUsed:     completion.TokensUsed,
		ResponseTimeMs: completion.ResponseTimeMs,
		Cached:         completion.Cached,
		CreatedAt:      g.validator.now().UTC(),
	}
	if err != nil {
		message := err.Error()
		rec.Error = &message
	}
	g.recordUsage(ctx, rec)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, "error").Inc()
		g.logger.Error("provider call failed",
			zap.String("identity_id", req.Identity.ID),
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return Execution{Validation: result, Provider: providerName}, err
	}
	g.observe(providerName, completion)

	filtered := safety.Filter(g.validator.policies.Get(), completion.Text)
	switch {
	case filtered.Blocked:
		metrics.ResponsesFilteredTotal.WithLabelValues("blocked").Inc()
	case len(filtered.Reasons) > 0:
		metrics.ResponsesFilteredTotal.WithLabelValues("redacted").Inc()
	default:
		metrics.ResponsesFilteredTotal.WithLabelValues("clean").Inc()
	}

	return Execution{
		Validation:     result,
		Provider:       providerName,
		Text:           filtered.Filtered,
		Blocked:        filtered.Blocked,
		Reasons:        filtered.Reasons,
		TokensUsed:     completion.TokensUsed,
		ResponseTimeMs: completion.ResponseTimeMs,
		Cached:         completion.Cached,
	}, nil
}

func (g *Gateway) complete(ctx context.Context, client provider.Provider, enhanced string) (provider.Completion, error) {
	name := client.Name()
	if g.cache != nil {
		if hit, ok := g.cache.Get(name, enhanced); ok {
			hit.Cached = true
			hit.TokensUsed = 0
			hit.ResponseTimeMs = 0
			return hit, nil
		}
	}

	start := time.Now()
	completion, err := client.Complete(ctx, enhanced)
	elapsed := time.Since(start)
	metrics.ProviderDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if completion.ResponseTimeMs == 0 {
		completion.ResponseTimeMs = int(elapsed.Milliseconds())
	}
	if err != nil {
		return provider.Completion{Provider: name, ResponseTimeMs: completion.ResponseTimeMs}, err
	}
	if g.cache != nil {
		g.cache.Add(name, enhanced, completion)
	}
	return completion, nil
}

func (g *Gateway) observe(providerName string, completion provider.Completion) {
	if completion.Cached {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, "cached").Inc()
		return
	}
	metrics.ProviderRequestsTotal.WithLabelValues(providerName, "ok").Inc()
	metrics.ProviderTokensTotal.WithLabelValues(providerName).Add(float64(completion.TokensUsed))
	cost := float64(completion.TokensUsed) / 1000 * g.validator.policies.Get().CostPer1K(providerName)
	metrics.ProviderCostUSD.WithLabelValues(providerName).Add(cost)
}

// recordUsage logs rather than fails: the provider call already happened.
func (g *Gateway) recordUsage(ctx context.Context, rec models.UsageRecord) {
	storeCtx, cancel := context.WithTimeout(ctx, g.validator.timeout)
	defer cancel()
	if err := g.usage.InsertUsage(storeCtx, rec); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("insert_usage").Inc()
		g.logger.Error("store unavailable, usage not recorded",
			zap.String("identity_id", rec.IdentityID),
			zap.String("provider", rec.Provider),
			zap.Error(err),
		)
	}
}
