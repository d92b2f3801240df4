package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"stagepass/internal/core/domain"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

var ErrMissingAppCredentials = errors.New("AGORA_APP_ID and AGORA_APP_CERTIFICATE must be set")

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	// App holds the RTC application credentials. They are secrets and are
	// normally supplied through the environment rather than the YAML file.
	App struct {
		ID          string `yaml:"id"`
		Certificate string `yaml:"certificate"`
	} `yaml:"app"`

	Credentials struct {
		Lifetime    time.Duration `yaml:"lifetime"`
		DefaultRole domain.Role   `yaml:"default_role"`
	} `yaml:"credentials"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	} `yaml:"auth"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled      bool    `yaml:"enabled"`
		ServiceName  string  `yaml:"service_name"`
		OTLPEndpoint string  `yaml:"otlp_endpoint"`
		Environment  string  `yaml:"environment"`
		SampleRate   float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
		Prefix   string `yaml:"prefix"`
		// IdentityCacheTTL bounds how stale an admin or role flag may be. Zero disables the cache.
		IdentityCacheTTL time.Duration `yaml:"identity_cache_ttl"`
	} `yaml:"redis"`

	Join struct {
		MaxTxAttempts  int           `yaml:"max_tx_attempts"`
		TxInitialDelay time.Duration `yaml:"tx_initial_delay"`
		TxMaxDelay     time.Duration `yaml:"tx_max_delay"`
	} `yaml:"join"`

	// Reliability guards the shared store. Only the Redis backend is wrapped.
	Reliability struct {
		Breaker struct {
			Enabled             bool          `yaml:"enabled"`
			FailureThreshold    int           `yaml:"failure_threshold"`
			SuccessThreshold    int           `yaml:"success_threshold"`
			OpenTimeout         time.Duration `yaml:"open_timeout"`
			MaxRequestsHalfOpen int           `yaml:"max_requests_half_open"`
		} `yaml:"breaker"`
	} `yaml:"reliability"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`

	// Identities seeds identity records at startup. Production deployments
	// leave this empty and let the identity service own the records.
	Identities []domain.Identity `yaml:"identities"`
}

// envOverrides lists every variable that may override the YAML file.
type envOverrides struct {
	ServerAddress  *string        `env:"STAGEPASS_SERVER_ADDRESS"`
	Port           *string        `env:"PORT"`
	AllowedOrigins []string       `env:"STAGEPASS_ALLOWED_ORIGINS" envSeparator:","`
	AppID          *string        `env:"AGORA_APP_ID"`
	AppCertificate *string        `env:"AGORA_APP_CERTIFICATE"`
	Lifetime       *time.Duration `env:"STAGEPASS_CREDENTIAL_LIFETIME"`
	LogLevel       *string        `env:"STAGEPASS_LOG_LEVEL"`
	JWTSecret      *string        `env:"STAGEPASS_JWT_SECRET"`
	RedisEnabled   *bool          `env:"STAGEPASS_REDIS_ENABLED"`
	RedisAddress   *string        `env:"STAGEPASS_REDIS_ADDRESS"`
	RedisPassword  *string        `env:"STAGEPASS_REDIS_PASSWORD"`
	TracingEnabled *bool          `env:"STAGEPASS_TRACING_ENABLED"`
	OTLPEndpoint   *string        `env:"STAGEPASS_OTLP_ENDPOINT"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// App credentials
	if c.App.ID == "" || c.App.Certificate == "" {
		return ErrMissingAppCredentials
	}

	// Credentials
	if c.Credentials.Lifetime < time.Second {
		return fmt.Errorf("credentials.lifetime must be >= 1s")
	}
	if c.Credentials.Lifetime%time.Second != 0 {
		return fmt.Errorf("credentials.lifetime must be a whole number of seconds")
	}
	if !c.Credentials.DefaultRole.Valid() {
		return fmt.Errorf("credentials.default_role must be 1 (publisher) or 2 (subscriber)")
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.IdentityCacheTTL < 0 {
			return fmt.Errorf("redis.identity_cache_ttl must be >= 0")
		}
	}

	// Join
	if c.Join.MaxTxAttempts < 1 {
		return fmt.Errorf("join.max_tx_attempts must be >= 1")
	}
	if c.Join.TxInitialDelay <= 0 || c.Join.TxMaxDelay < c.Join.TxInitialDelay {
		return fmt.Errorf("join.tx_initial_delay must be > 0 and <= join.tx_max_delay")
	}

	// Reliability
	if b := c.Reliability.Breaker; b.Enabled {
		if b.FailureThreshold < 1 || b.SuccessThreshold < 1 || b.MaxRequestsHalfOpen < 1 {
			return fmt.Errorf("reliability.breaker thresholds must be >= 1 when the breaker is enabled")
		}
		if b.OpenTimeout <= 0 {
			return fmt.Errorf("reliability.breaker.open_timeout must be > 0 when the breaker is enabled")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	for i, identity := range c.Identities {
		if identity.UserID == "" {
			return fmt.Errorf("identities[%d].user_id must not be empty", i)
		}
	}

	return nil
}

// Load reads configuration from an optional YAML file, applies defaults, .env
// files and environment overrides, then validates the result.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
			}
		case os.IsNotExist(err):
			// defaults only
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":3000"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Credentials.Lifetime = 3600 * time.Second
	cfg.Credentials.DefaultRole = domain.RolePublisher

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = time.Hour

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "stagepass"
	cfg.Tracing.OTLPEndpoint = "localhost:4318"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.Prefix = "stagepass:"
	cfg.Redis.IdentityCacheTTL = 5 * time.Second

	cfg.Join.MaxTxAttempts = 32
	cfg.Join.TxInitialDelay = time.Millisecond
	cfg.Join.TxMaxDelay = 50 * time.Millisecond

	cfg.Reliability.Breaker.Enabled = true
	cfg.Reliability.Breaker.FailureThreshold = 5
	cfg.Reliability.Breaker.SuccessThreshold = 2
	cfg.Reliability.Breaker.OpenTimeout = 10 * time.Second
	cfg.Reliability.Breaker.MaxRequestsHalfOpen = 1

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

// loadDotEnv reads .env files into the process environment. Variables that
// are already set win over the files.
func loadDotEnv() error {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.ServerAddress != nil {
		c.Server.Address = *o.ServerAddress
	} else if o.Port != nil {
		c.Server.Address = ":" + *o.Port
	}
	if len(o.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = o.AllowedOrigins
	}
	if o.AppID != nil {
		c.App.ID = *o.AppID
	}
	if o.AppCertificate != nil {
		c.App.Certificate = *o.AppCertificate
	}
	if o.Lifetime != nil {
		c.Credentials.Lifetime = *o.Lifetime
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.JWTSecret != nil {
		c.Auth.JWTSecret = *o.JWTSecret
	}
	if o.RedisEnabled != nil {
		c.Redis.Enabled = *o.RedisEnabled
	}
	if o.RedisAddress != nil {
		c.Redis.Address = *o.RedisAddress
	}
	if o.RedisPassword != nil {
		c.Redis.Password = *o.RedisPassword
	}
	if o.TracingEnabled != nil {
		c.Tracing.Enabled = *o.TracingEnabled
	}
	if o.OTLPEndpoint != nil {
		c.Tracing.OTLPEndpoint = *o.OTLPEndpoint
	}
	return nil
}
