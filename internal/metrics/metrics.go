package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Validation metrics
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_ai_validations_total",
			Help: "AI task validations by outcome code and severity",
		},
		[]string{"code", "severity"},
	)

	SecurityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_security_events_total",
			Help: "Security events recorded, by action and severity",
		},
		[]string{"action", "severity"},
	)

	StoreFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_store_failures_total",
			Help: "Failed store operations on the governance path",
		},
		[]string{"op"},
	)

	// Provider metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_ai_provider_requests_total",
			Help: "Provider completions by provider and status (success, error, cached)",
		},
		[]string{"provider", "status"},
	)

	ProviderTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_ai_provider_tokens_total",
			Help: "Tokens consumed per provider",
		},
		[]string{"provider"},
	)

	ProviderCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_ai_provider_cost_usd_total",
			Help: "Estimated provider spend in USD",
		},
		[]string{"provider"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxao_ai_provider_duration_seconds",
			Help:    "Provider completion latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"provider"},
	)

	ResponsesFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_ai_responses_filtered_total",
			Help: "Provider responses passed through the output filter, by outcome (clean, redacted, blocked)",
		},
		[]string{"outcome"},
	)

	// Monitoring metrics
	HealthScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxao_health_score",
			Help: "Overall platform health score (0-100)",
		},
	)

	ComponentScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fluxao_health_component_score",
			Help: "Per-component health score (0-100)",
		},
		[]string{"component"},
	)

	MonitorCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_monitor_cycles_total",
			Help: "Monitoring cycles by outcome (ok, failed, skipped)",
		},
		[]string{"outcome"},
	)

	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_alerts_raised_total",
			Help: "Alerts persisted, by rule",
		},
		[]string{"rule"},
	)

	RemediationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_remediations_total",
			Help: "Auto-remediation attempts by action and result",
		},
		[]string{"action", "result"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxao_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxao_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxao_http_throttled_total",
			Help: "Requests rejected by the per-client flood guard",
		},
	)
)
