package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseDriver         string
	DatabaseURL            string
	JWTSecret              string
	JWTIssuer              string
	PolicyPath             string
	LogDir                 string
	LogLevel               string
	LogRetentionDays       int
	MaxRequestsPerHour     int
	MaxTokensPerDay        int
	StoreTimeoutMs         int
	MonitorIntervalSeconds int
	ProviderTimeoutSeconds int
	OpenAIBaseURL          string
	OpenAIAPIKey           string
	OpenAIModel            string
	AnthropicBaseURL       string
	AnthropicAPIKey        string
	AnthropicModel         string
	GeminiBaseURL          string
	GeminiAPIKey           string
	GeminiModel            string
	PrimaryProvider        string
	BackupProvider         string
	ResponseCacheSize      int
	ResponseCacheTTLSec    int
	ThrottlePerSecond      int
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders      bool
	CorsOrigins            []string
	Port                   string
}

func Load() Config {
	return Config{
		DatabaseDriver:         envOr("DATABASE_DRIVER", "pgx"),
		DatabaseURL:            mustEnv("DATABASE_URL"),
		JWTSecret:              mustEnv("JWT_SECRET"),
		JWTIssuer:              envOr("JWT_ISSUER", "fluxao"),
		PolicyPath:             envOr("POLICY_PATH", ""),
		LogDir:                 envOr("LOG_DIR", "storage/logs"),
		LogLevel:               envOr("LOG_LEVEL", "info"),
		LogRetentionDays:       clamp(envOrInt("LOG_RETENTION_DAYS", 7), 1, 7),
		MaxRequestsPerHour:     envOrInt("AI_MAX_REQUESTS_PER_HOUR", 100),
		MaxTokensPerDay:        envOrInt("AI_MAX_TOKENS_PER_DAY", 50000),
		StoreTimeoutMs:         envOrInt("STORE_TIMEOUT_MS", 2000),
		MonitorIntervalSeconds: envOrInt("MONITOR_INTERVAL_SECONDS", 60),
		ProviderTimeoutSeconds: envOrInt("PROVIDER_TIMEOUT_SECONDS", 60),
		OpenAIBaseURL:          envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:           envOr("OPENAI_API_KEY", ""),
		OpenAIModel:            envOr("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicBaseURL:       envOr("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
		AnthropicAPIKey:        envOr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:         envOr("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		GeminiBaseURL:          envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		GeminiAPIKey:           envOr("GEMINI_API_KEY", ""),
		GeminiModel:            envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		PrimaryProvider:        envOr("AI_PRIMARY_PROVIDER", "claude"),
		BackupProvider:         envOr("AI_BACKUP_PROVIDER", "openai"),
		ResponseCacheSize:      envOrInt("AI_RESPONSE_CACHE_SIZE", 512),
		ResponseCacheTTLSec:    envOrInt("AI_RESPONSE_CACHE_TTL_SECONDS", 900),
		ThrottlePerSecond:      envOrInt("HTTP_THROTTLE_PER_SECOND", 20),
		TrustProxyHeaders:      envOrBool("HTTP_TRUST_PROXY_HEADERS", false),
		CorsOrigins:            parseCSV(envOr("CORS_ORIGINS", "")),
		Port:                   envOr("PORT", "8080"),
	}
}

func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

func (c Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

func (c Config) ResponseCacheTTL() time.Duration {
	return time.Duration(c.ResponseCacheTTLSec) * time.Second
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
