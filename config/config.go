// Package config lê a configuração do serviço a partir de variáveis de ambiente.
//
// Valores inválidos em variáveis numéricas/duração caem no default; combinações
// impossíveis (backend redis sem endereço, CLEANUP_AT malformado...) viram erro em Load.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendHashiCorp = "hashicorp"
)

type Config struct {
	ListenAddr     string
	FrontendURL    string
	BackendURL     string
	AllowedOrigins string
	TrustXFF       bool

	LogLevel  string
	LogFormat string

	RateLimitEnabled  bool
	RateLimitMax      int
	RateLimitWindow   time.Duration
	RateLimitSuppress time.Duration
	RateLimitBackend  string
	RateLimitPrefix   string
	RateLimitHeaders  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	VaultBackend string
	VaultAddr    string
	VaultToken   string
	VaultMount   string
	VaultPrefix  string
	VaultTimeout time.Duration

	HMACSecret   string
	HMACRequired bool

	TelemetryAPIKey      string
	TelemetryMaxEvents   int
	TelemetryRedisMirror bool
	TelemetryRedisPrefix string
	TelemetryRedisTTL    time.Duration

	WebhookURL   string
	WebhookRPS   float64
	WebhookBurst int

	CleanupEnabled bool
	CleanupHour    int
	CleanupMinute  int

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	MetricsEnabled bool
}

// NeedsRedis indica se algum componente configurado usa Redis.
func (c Config) NeedsRedis() bool {
	return c.VaultBackend == BackendRedis ||
		(c.RateLimitEnabled && c.RateLimitBackend == BackendRedis) ||
		c.TelemetryRedisMirror
}

func Load() (Config, error) {
	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":9002")
	cfg.FrontendURL = getenvDefault("FRONTEND_URL", "http://localhost:9001")
	cfg.BackendURL = getenvDefault("BACKEND_URL", "http://localhost"+cfg.ListenAddr)
	cfg.AllowedOrigins = getenvDefault("CORS_ALLOWED_ORIGINS", "")
	cfg.TrustXFF = getenvBoolDefault("TRUST_XFF", true)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.RateLimitEnabled = getenvBoolDefault("RATE_LIMIT_ENABLED", true)
	cfg.RateLimitMax = getenvIntDefault("RATE_LIMIT_MAX", 10)
	cfg.RateLimitWindow = getenvDurationDefault("RATE_LIMIT_WINDOW", 10*time.Minute)
	cfg.RateLimitSuppress = getenvDurationDefault("RATE_LIMIT_NOTIFY_SUPPRESS", 15*time.Minute)
	cfg.RateLimitBackend = strings.ToLower(getenvDefault("RATE_LIMIT_BACKEND", BackendMemory))
	cfg.RateLimitPrefix = getenvDefault("RATE_LIMIT_PREFIX", "keyfade:ratelimit")
	cfg.RateLimitHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.RedisPassword = getenvDefault("REDIS_PASSWORD", "")
	cfg.RedisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.VaultBackend = strings.ToLower(getenvDefault("VAULT_BACKEND", BackendMemory))
	cfg.VaultAddr = getenvDefault("VAULT_ADDR", "")
	cfg.VaultToken = getenvDefault("VAULT_TOKEN", "")
	cfg.VaultMount = getenvDefault("VAULT_MOUNT", "secret")
	cfg.VaultPrefix = getenvDefault("VAULT_PREFIX", "keyfade")
	cfg.VaultTimeout = getenvDurationDefault("VAULT_TIMEOUT", 10*time.Second)

	cfg.HMACSecret = getenvDefault("HMAC_SECRET", "")
	// sem HMAC_REQUIRED explícito, a verificação liga quando há segredo
	cfg.HMACRequired = getenvBoolDefault("HMAC_REQUIRED", cfg.HMACSecret != "")

	cfg.TelemetryAPIKey = getenvFirst("TELEMETRY_API_KEY", "TELEMETRY_API_TOKEN")
	cfg.TelemetryMaxEvents = getenvIntDefault("TELEMETRY_MAX_EVENTS", 500)
	cfg.TelemetryRedisMirror = getenvBoolDefault("TELEMETRY_REDIS_MIRROR", false)
	cfg.TelemetryRedisPrefix = getenvDefault("TELEMETRY_REDIS_PREFIX", "keyfade:abuse")
	cfg.TelemetryRedisTTL = getenvDurationDefault("TELEMETRY_REDIS_TTL", 24*time.Hour)

	cfg.WebhookURL = getenvDefault("WEBHOOK_URL", "")
	cfg.WebhookRPS = getenvFloatDefault("WEBHOOK_RPS", 1)
	cfg.WebhookBurst = getenvIntDefault("WEBHOOK_BURST", 5)

	cfg.CleanupEnabled = getenvBoolDefault("CLEANUP_ENABLED", true)
	hour, minute, err := ParseClock(getenvDefault("CLEANUP_AT", "00:00"))
	if err != nil {
		return Config{}, errors.Wrap(err, "invalid CLEANUP_AT")
	}
	cfg.CleanupHour, cfg.CleanupMinute = hour, minute

	cfg.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.ConcurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.MetricsEnabled = getenvBoolDefault("METRICS_ENABLED", true)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.VaultBackend {
	case BackendMemory, BackendRedis, BackendHashiCorp:
	default:
		return errors.Errorf("VAULT_BACKEND must be one of memory, redis, hashicorp (got %q)", c.VaultBackend)
	}
	switch c.RateLimitBackend {
	case BackendMemory, BackendRedis:
	default:
		return errors.Errorf("RATE_LIMIT_BACKEND must be memory or redis (got %q)", c.RateLimitBackend)
	}

	if c.NeedsRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		return errors.New("REDIS_ADDR is required when a redis backend or the telemetry mirror is enabled")
	}
	if c.VaultBackend == BackendHashiCorp {
		if strings.TrimSpace(c.VaultAddr) == "" {
			return errors.New("VAULT_ADDR is required when VAULT_BACKEND=hashicorp")
		}
		if strings.TrimSpace(c.VaultToken) == "" {
			return errors.New("VAULT_TOKEN is required when VAULT_BACKEND=hashicorp")
		}
	}
	if c.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_MAX must be > 0")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.HMACRequired && c.HMACSecret == "" {
		return errors.New("HMAC_SECRET is required when HMAC_REQUIRED=true")
	}
	return nil
}

// ParseClock lê um horário "HH:MM" (24h).
func ParseClock(v string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, errors.Errorf("expected HH:MM, got %q", v)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, errors.Errorf("invalid hour in %q", v)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, errors.Errorf("invalid minute in %q", v)
	}
	return hour, minute, nil
}
