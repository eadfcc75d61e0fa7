package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/myflix/movies-api/internal/utils"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	JWT           JWTConfig           `envconfig:"JWT"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	RateLimit     RateLimitConfig     `envconfig:"RATE_LIMIT"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"us-east-1"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	StaticDir    string        `envconfig:"STATIC_DIR" default:"./public"`
}

type RedisConfig struct {
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
}

// JWTConfig controls token issuance and verification. Exactly one verification
// mode is active for the lifetime of the process: a shared HS256 secret for
// self-issued tokens, or a JWKS endpoint for externally issued RS256/ES256
// tokens. A missing secret is a startup error, never a per-request one.
type JWTConfig struct {
	Secret       string        `envconfig:"SECRET" default:""`
	JWKSEndpoint string        `envconfig:"JWKS_ENDPOINT" default:""`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	Issuer       string        `envconfig:"ISSUER" default:"myflix-api"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"168h"` // 7 days
}

type DynamoDBConfig struct {
	UsersTableName  string        `envconfig:"USERS_TABLE_NAME" default:"myflix-users"`
	MoviesTableName string        `envconfig:"MOVIES_TABLE_NAME" default:"myflix-movies"`
	Region          string        `envconfig:"REGION" default:"us-east-1"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"2s"`
}

type RateLimitConfig struct {
	RPS         int           `envconfig:"RPS" default:"10"`
	Burst       int           `envconfig:"BURST" default:"20"`
	WindowSize  time.Duration `envconfig:"WINDOW_SIZE" default:"1s"`
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	ExemptPaths []string      `envconfig:"EXEMPT_PATHS" default:"/healthz,/readyz,/metrics"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// envconfig does not split nested slice fields reliably
	if exemptPaths := os.Getenv("RATE_LIMIT_EXEMPT_PATHS"); exemptPaths != "" {
		cfg.RateLimit.ExemptPaths = strings.Split(exemptPaths, ",")
		for i := range cfg.RateLimit.ExemptPaths {
			cfg.RateLimit.ExemptPaths[i] = strings.TrimSpace(cfg.RateLimit.ExemptPaths[i])
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWT.Secret == "" && cfg.JWT.JWKSEndpoint == "" {
		return fmt.Errorf("JWT_SECRET is required (or set JWT_JWKS_ENDPOINT for external token verification)")
	}
	if cfg.JWT.Secret != "" && cfg.JWT.JWKSEndpoint != "" {
		return fmt.Errorf("JWT_SECRET and JWT_JWKS_ENDPOINT are mutually exclusive")
	}

	if cfg.JWT.TokenTTL <= 0 {
		return fmt.Errorf("invalid token TTL: %s", cfg.JWT.TokenTTL)
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	if !utils.ContainsString([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, cfg.Log.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	if !utils.ContainsString([]string{"json", "text"}, cfg.Log.Format) {
		return fmt.Errorf("invalid log format: %s", cfg.Log.Format)
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
