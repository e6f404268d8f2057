package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Audit store backends.
const (
	AuditStoreMemory   = "memory"
	AuditStorePostgres = "postgres"
	AuditStoreSQLite   = "sqlite"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"Stashly"`
	Env            string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:8000"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	JWTSecret      string        `env:"JWT_SECRET"`

	PINLength     int           `env:"PIN_LENGTH" envDefault:"4"`
	ConfirmDelay  time.Duration `env:"CONFIRM_DELAY" envDefault:"1s"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"10m"`
	GoalsCacheTTL time.Duration `env:"GOALS_CACHE_TTL" envDefault:"1m"`

	AuditStore   string `env:"AUDIT_STORE" envDefault:"memory"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"stashly.db"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads configuration values from the environment and validates them.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.AuditStore = strings.ToLower(strings.TrimSpace(cfg.AuditStore))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.PINLength < 1 {
		errs = append(errs, fmt.Errorf("PIN_LENGTH must be positive, got %d", c.PINLength))
	}
	if c.BackendTimeout <= 0 {
		errs = append(errs, errors.New("BACKEND_TIMEOUT must be positive"))
	}
	switch c.AuditStore {
	case AuditStoreMemory, AuditStoreSQLite:
	case AuditStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set when AUDIT_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUDIT_STORE %q", c.AuditStore))
	}
	if !c.IsDev() {
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set"))
		}
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL must be set"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET must be set"))
		}
	}
	return errors.Join(errs...)
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
