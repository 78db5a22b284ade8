package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "warden/pkg/platform/strings"
)

// Session store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Defaults applied when the corresponding variable is unset or unparsable.
var (
	DefaultSessionTTL       = 7 * 24 * time.Hour
	DefaultOTPTTL           = 10 * time.Minute
	DefaultOTPMaxAttempts   = 5
	DefaultPasswordResetTTL = 15 * time.Minute
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	LogFormat   string

	SessionBackend   string
	SessionTTL       time.Duration
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	PasswordResetTTL time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	NotifyWebhookURL   string
	TrustedProxies     []string
	CORSAllowedOrigins []string

	Bootstrap BootstrapAdmin
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit event sink.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// BootstrapAdmin is the SUPER_ADMIN seeded at startup when both fields are set.
type BootstrapAdmin struct {
	Email    string
	Password string
}

// Enabled reports whether a bootstrap admin was configured.
func (b BootstrapAdmin) Enabled() bool {
	return b.Email != "" && b.Password != ""
}

// IsProduction reports whether dev-only conveniences must be disabled.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:             envOr("WARDEN_ADDR", ":8080"),
		Environment:      envOr("ENVIRONMENT", "development"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(envOr("LOG_FORMAT", "json")),
		SessionBackend:   strings.ToLower(envOr("SESSION_BACKEND", BackendMemory)),
		SessionTTL:       durationOr("SESSION_TTL", DefaultSessionTTL),
		OTPTTL:           durationOr("OTP_TTL", DefaultOTPTTL),
		OTPMaxAttempts:   intOr("OTP_MAX_ATTEMPTS", DefaultOTPMaxAttempts),
		PasswordResetTTL: durationOr("PASSWORD_RESET_TTL", DefaultPasswordResetTTL),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: envOr("AUDIT_TOPIC", "warden.audit"),
		},
		NotifyWebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		TrustedProxies:     platformstrings.SplitList(os.Getenv("TRUSTED_PROXIES")),
		CORSAllowedOrigins: platformstrings.SplitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		Bootstrap: BootstrapAdmin{
			Email:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	switch s.SessionBackend {
	case BackendMemory:
	case BackendPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("SESSION_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("SESSION_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", s.SessionBackend)
	}
	if s.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
