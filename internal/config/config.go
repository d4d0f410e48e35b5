// Package config manages environment variables.
//
// It reads variables from the `.env` file,
// loads them into structured Go types (struct), and
// validates that required values are present so they
// can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: triggers godotenv's autoload feature.
	// If a `.env` file exists, it gets loaded into the process env
	// before any env var is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the prefix STOCKROOM_.
	Keys are normalized (lowercased, prefix removed) and nested struct
	fields are addressed with "." as delimiter:

	  STOCKROOM_DATABASE.MAX_CONNS -> database.max_conns -> Config.Database.MaxConns
*/

// EnvPrefix is the prefix every configuration variable must carry.
const EnvPrefix = "STOCKROOM_"

// ServiceName tags logs and traces emitted by this service.
const ServiceName = "stockroom"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// Exhaustion policies accepted by DatabaseConfig.ExhaustionPolicy.
const (
	ExhaustionPolicyBlock    = "block"
	ExhaustionPolicyFailFast = "fail_fast"
)

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
//
// The pool never leases more than MaxConns connections at once. What happens
// when every connection is leased is decided by ExhaustionPolicy:
//   - "block": the caller waits for a release (bounded by AcquireTimeout when > 0)
//   - "fail_fast": the caller gets database.ErrPoolExhausted immediately
//
// ConnectTimeout only applies to establishing connections. AcquireTimeout and
// StatementTimeout are independent of it; zero disables them.
type DatabaseConfig struct {
	Host             string        `koanf:"host" validate:"required"`
	Port             int           `koanf:"port" validate:"required"`
	User             string        `koanf:"user" validate:"required"`
	Password         string        `koanf:"password" validate:"required"`
	Name             string        `koanf:"name" validate:"required"`
	SSLMode          string        `koanf:"ssl_mode" validate:"required"`
	MinConns         int           `koanf:"min_conns" validate:"min=0"`
	MaxConns         int           `koanf:"max_conns" validate:"required,min=1,gtefield=MinConns"`
	ConnectTimeout   time.Duration `koanf:"connect_timeout" validate:"required"`
	AcquireTimeout   time.Duration `koanf:"acquire_timeout" validate:"min=0"`
	StatementTimeout time.Duration `koanf:"statement_timeout" validate:"min=0"`
	ExhaustionPolicy string        `koanf:"exhaustion_policy" validate:"required,oneof=block fail_fast"`
	ApplicationName  string        `koanf:"application_name"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig stores credential hashing and session cookie settings.
//
// SessionTTL of zero keeps sessions until explicit logout.
type AuthConfig struct {
	BcryptCost        int           `koanf:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
	SessionCookieName string        `koanf:"session_cookie_name" validate:"required"`
	SecureCookie      bool          `koanf:"secure_cookie"`
	SessionTTL        time.Duration `koanf:"session_ttl" validate:"min=0"`
	LoginPath         string        `koanf:"login_path" validate:"required,startswith=/"`
	LoginRateLimit    float64       `koanf:"login_rate_limit" validate:"min=0"`
}

// IntegrationConfig holds credentials for third-party services.
// Both fields are optional; notifications are skipped when either is empty.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	NotifyEmail  string `koanf:"notify_email" validate:"omitempty,email"`
}

// NotificationsEnabled reports whether account notifications can be sent.
func (i IntegrationConfig) NotificationsEnabled() bool {
	return i.ResendAPIKey != "" && i.NotifyEmail != ""
}

// LoadConfig loads configuration from environment variables, unmarshals it into
// Config, validates it, applies defaults, and returns the resulting config.
//
// Behavior summary:
//   - Loads env vars with prefix STOCKROOM_
//   - Unmarshals into Config
//   - Validates required config blocks/fields
//   - Sets default observability if missing and forces service name + environment
//   - Validates observability config as well
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load initial env variables: %w", err)
	}

	mainConfig := &Config{}

	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if mainConfig.Database.ApplicationName == "" {
		mainConfig.Database.ApplicationName = ServiceName
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are never user-controlled: traces and
	// logs must agree on them.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
