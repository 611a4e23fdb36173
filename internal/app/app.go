package app

import (
	"context"
	"fmt"
	"time"

	"fluxao-backend-go/internal/config"
	"fluxao-backend-go/internal/content"
	"fluxao-backend-go/internal/db"
	"fluxao-backend-go/internal/governance"
	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/monitor"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/prompt"
	"fluxao-backend-go/internal/provider"
	"fluxao-backend-go/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// App is the assembled governance engine shared by the server and govctl.
type App struct {
	Config     config.Config
	DB         *sqlx.DB
	Store      *store.Store
	Policies   *policy.Holder
	Registry   *provider.Registry
	Cache      *provider.ResponseCache
	Hub        *monitor.Hub
	Latency    *monitor.LatencyTracker
	Validator  *governance.Validator
	Enhancer   *prompt.Enhancer
	Gateway    *governance.Gateway
	Reports    *governance.Reports
	Moderation *content.ModerationQueue
	Monitor    *monitor.Monitor
	Logger     *zap.Logger
}

// New opens the database and wires every component. It does not apply
// migrations or start background loops.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	p, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	database, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       database,
		Store:    store.New(database),
		Policies: policy.NewHolder(p),
		Registry: provider.NewRegistry(cfg.PrimaryProvider, cfg.BackupProvider),
		Cache:    provider.NewResponseCache(cfg.ResponseCacheSize, cfg.ResponseCacheTTL()),
		Hub:      monitor.NewHub(),
		Latency:  monitor.NewLatencyTracker(256),
		Logger:   logger,
	}
	registerProviders(cfg, a.Registry, logger)

	a.Validator = governance.NewValidator(a.Store, a.Policies, governance.Options{
		Limits: governance.Limits{
			MaxRequestsPerHour: cfg.MaxRequestsPerHour,
			MaxTokensPerDay:    cfg.MaxTokensPerDay,
		},
		StoreTimeout: cfg.StoreTimeout(),
		Logger:       logger.Named("governance"),
		Notifier:     a.Hub,
	})
	a.Enhancer = prompt.NewEnhancer(a.Policies, time.Now, logger.Named("prompt"))
	a.Gateway = governance.NewGateway(a.Validator, a.Enhancer, a.Registry, a.Cache, a.Store, logger.Named("gateway"))
	a.Reports = governance.NewReports(a.Store, a.Policies, time.Now)
	a.Moderation = content.NewModerationQueue(database, time.Now)

	monitorLogger := logger.Named("monitor")
	collector := monitor.NewCollector(a.Store, content.NewStats(database), monitor.HostSampler{}, a.Latency, time.Now, monitorLogger)
	remediator := monitor.NewRemediator(monitor.RemediatorDeps{
		Cache:      a.Cache,
		Moderation: a.Moderation,
		Failover:   a.Registry,
		Store:      a.Store,
		Logger:     monitorLogger,
	})
	a.Monitor = monitor.New(collector, a.Store, remediator, monitor.Options{
		Interval: cfg.MonitorInterval(),
		Logger:   monitorLogger,
		Hub:      a.Hub,
	})
	return a, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// registerProviders registers each provider whose API key is configured.
func registerProviders(cfg config.Config, registry *provider.Registry, logger *zap.Logger) {
	timeout := cfg.ProviderTimeout()
	if cfg.AnthropicAPIKey != "" {
		registry.Register(provider.NewAnthropic(provider.HTTPConfig{
			Name: "claude", Endpoint: cfg.AnthropicBaseURL, APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel, Timeout: timeout,
		}))
	}
	if cfg.OpenAIAPIKey != "" {
		registry.Register(provider.NewOpenAI(provider.HTTPConfig{
			Name: "openai", Endpoint: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, Timeout: timeout,
		}))
	}
	if cfg.GeminiAPIKey != "" {
		registry.Register(provider.NewOpenAI(provider.HTTPConfig{
			Name: "gemini", Endpoint: cfg.GeminiBaseURL, APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel, Timeout: timeout,
		}))
	}
	names := registry.Names()
	if len(names) == 0 {
		logger.Warn("no AI provider configured, executions will be rejected")
		return
	}
	logger.Info("ai providers registered", zap.Strings("providers", names))
}
