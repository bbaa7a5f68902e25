package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the escrow service.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	// DatabaseURL empty runs on the in-memory store, which only suits a
	// single local process.
	DatabaseURL string
	RedisURL    string

	KafkaBrokers     []string
	KafkaTopics      map[string]string
	AnalyticsTopic   string
	DLQTopic         string
	JWTSecret        string
	JWTIssuer        string
	RateLimitPerSec  float64
	RateLimitBurst   int
	HoldPeriod       time.Duration
	MaxRejected      int
	PlatformAccount  string
	IdempotencyTTL   time.Duration
	LockTTL          time.Duration
	LockWait         time.Duration
	EmbeddedWorkers  bool
	MaxDBConns       int32
	OutboxInterval   time.Duration
	OutboxBatchSize  int
	HoldSweepEvery   time.Duration
	HoldSweepBatch   int
	ShutdownDeadline time.Duration
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Events struct {
		Topics         map[string]string `yaml:"topics"`
		AnalyticsTopic string            `yaml:"analytics_topic"`
		DLQTopic       string            `yaml:"dlq_topic"`
	} `yaml:"events"`
	Escrow struct {
		HoldPeriod          string `yaml:"hold_period"`
		MaxRejectedAttempts int    `yaml:"max_rejected_attempts"`
		PlatformAccountID   string `yaml:"platform_account_id"`
	} `yaml:"escrow"`
	HTTP struct {
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst     int     `yaml:"rate_limit_burst"`
		JWTIssuer          string  `yaml:"jwt_issuer"`
	} `yaml:"http"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:        "sala-escrow-service",
		HTTPPort:         8080,
		GRPCPort:         9090,
		AnalyticsTopic:   "sala.analytics",
		DLQTopic:         "sala.dlq",
		JWTIssuer:        "viralforge",
		RateLimitPerSec:  20,
		RateLimitBurst:   40,
		HoldPeriod:       14 * 24 * time.Hour,
		MaxRejected:      3,
		PlatformAccount:  "platform",
		IdempotencyTTL:   7 * 24 * time.Hour,
		LockTTL:          30 * time.Second,
		LockWait:         5 * time.Second,
		MaxDBConns:       20,
		OutboxInterval:   2 * time.Second,
		OutboxBatchSize:  100,
		HoldSweepEvery:   30 * time.Second,
		HoldSweepBatch:   200,
		ShutdownDeadline: 10 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if len(f.Events.Topics) > 0 {
			cfg.KafkaTopics = f.Events.Topics
		}
		if f.Events.AnalyticsTopic != "" {
			cfg.AnalyticsTopic = f.Events.AnalyticsTopic
		}
		if f.Events.DLQTopic != "" {
			cfg.DLQTopic = f.Events.DLQTopic
		}
		if f.Escrow.HoldPeriod != "" {
			d, parseErr := time.ParseDuration(f.Escrow.HoldPeriod)
			if parseErr != nil {
				return Config{}, fmt.Errorf("parse escrow.hold_period: %w", parseErr)
			}
			cfg.HoldPeriod = d
		}
		if f.Escrow.MaxRejectedAttempts > 0 {
			cfg.MaxRejected = f.Escrow.MaxRejectedAttempts
		}
		if f.Escrow.PlatformAccountID != "" {
			cfg.PlatformAccount = f.Escrow.PlatformAccountID
		}
		if f.HTTP.RateLimitPerSecond > 0 {
			cfg.RateLimitPerSec = f.HTTP.RateLimitPerSecond
		}
		if f.HTTP.RateLimitBurst > 0 {
			cfg.RateLimitBurst = f.HTTP.RateLimitBurst
		}
		if f.HTTP.JWTIssuer != "" {
			cfg.JWTIssuer = f.HTTP.JWTIssuer
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.AnalyticsTopic = envOrDefault("KAFKA_ANALYTICS_TOPIC", cfg.AnalyticsTopic)
	cfg.DLQTopic = envOrDefault("KAFKA_DLQ_TOPIC", cfg.DLQTopic)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.PlatformAccount = envOrDefault("PLATFORM_ACCOUNT_ID", cfg.PlatformAccount)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxRejected = envInt("MAX_REJECTED_ATTEMPTS", cfg.MaxRejected)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.RateLimitPerSec = envFloat("RATE_LIMIT_PER_SECOND", cfg.RateLimitPerSec)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.HoldSweepBatch = envInt("HOLD_SWEEP_BATCH_SIZE", cfg.HoldSweepBatch)

	cfg.HoldPeriod = envDuration("HOLD_PERIOD", cfg.HoldPeriod)
	cfg.IdempotencyTTL = envDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.LockTTL = envDuration("LOCK_TTL", cfg.LockTTL)
	cfg.LockWait = envDuration("LOCK_WAIT", cfg.LockWait)
	cfg.OutboxInterval = envDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxInterval)
	cfg.HoldSweepEvery = envDuration("HOLD_SWEEP_INTERVAL", cfg.HoldSweepEvery)

	cfg.EmbeddedWorkers = envBool("EMBEDDED_WORKERS", cfg.DatabaseURL == "")

	if cfg.HoldPeriod <= 0 {
		return Config{}, fmt.Errorf("hold period must be positive")
	}
	if cfg.MaxRejected <= 0 {
		return Config{}, fmt.Errorf("max rejected attempts must be positive")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envDuration accepts Go duration strings such as "336h" or "30s".
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
