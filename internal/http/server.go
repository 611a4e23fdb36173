package httpapi

import (
	"context"
	"net/http"
	"time"

	"fluxao-backend-go/internal/config"
	"fluxao-backend-go/internal/governance"
	"fluxao-backend-go/internal/identity"
	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/monitor"
	"fluxao-backend-go/internal/policy"
	"fluxao-backend-go/internal/prompt"
	"fluxao-backend-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services are the components the HTTP layer exposes.
type Services struct {
	Policies  *policy.Holder
	Validator *governance.Validator
	Gateway   *governance.Gateway
	Enhancer  *prompt.Enhancer
	Reports   *governance.Reports
	Monitor   *monitor.Monitor
	Store     *store.Store
	Hub       *monitor.Hub
	Latency   *monitor.LatencyTracker
}

type Server struct {
	Services
	Config   config.Config
	Identity identity.Resolver
	Logger   *zap.Logger
}

func NewServer(cfg config.Config, svc Services, logger *zap.Logger) *Server {
	return &Server{
		Services: svc,
		Config:   cfg,
		Identity: identity.Resolver{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		},
		Logger: logging.OrNop(logger),
	}
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	if s.Config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(s.Logger, s.Latency))
	if s.Config.ThrottlePerSecond > 0 {
		r.Use(Throttle(ctx, s.Config.ThrottlePerSecond, 10*time.Minute))
	}
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/ai", func(ai chi.Router) {
			ai.Use(WithAuth(s.Identity))
			ai.Post("/validate", s.ValidateRequest)
			ai.Post("/enhance", s.EnhancePrompt)
			ai.Post("/prompt/validate", s.ValidatePrompt)
			ai.Post("/filter", s.FilterResponse)
			ai.Post("/execute", s.Execute)
			ai.Get("/usage", s.MyUsage)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Identity))

			admin.Route("/prompts", func(prompts chi.Router) {
				prompts.Use(RequireAnyRole("EDITOR", "ADMIN"))
				prompts.Post("/writer", s.WriterPrompt)
				prompts.Post("/moderation", s.ModerationPrompt)
				prompts.Post("/seo", s.SEOPrompt)
				prompts.Post("/monitoring", s.MonitoringPrompt)
			})

			admin.Group(func(ops chi.Router) {
				ops.Use(RequireRole("ADMIN"))
				ops.Get("/health", s.HealthStatus)
				ops.Get("/usage", s.UsageStats)
				ops.Get("/alerts", s.ListAlerts)
				ops.Post("/alerts/{alertId}/resolve", s.ResolveAlert)
				ops.Get("/security/stats", s.SecurityStats)
				ops.Put("/security/level", s.AdjustSecurityLevel)
				ops.Get("/metrics/history", s.MetricsHistory)
			})
		})
	})

	r.Get("/ws/health", s.HealthSocket)
	r.Handle("/metrics", promhttp.Handler())
	return r
}
