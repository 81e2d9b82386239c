// Package config loads the service configuration from the environment.
//
// Values are layered: built-in defaults, then environment variables (a .env
// file is loaded into the environment by the commands), then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	DocStore DocStoreConfig
	Sandbox  SandboxConfig
	Hint     HintConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	URI             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type DocStoreConfig struct {
	Path string
}

// SandboxConfig controls how student queries are executed.
type SandboxConfig struct {
	// ReadOnly opens every run transaction with access mode READ ONLY.
	ReadOnly bool

	// StatementTimeout bounds each run; zero disables the limit.
	StatementTimeout time.Duration

	// Role, when set, is assumed with SET LOCAL ROLE for the duration of a run.
	Role string
}

// HintConfig configures the OpenAI-compatible chat completions backend.
// Hints fall back to the static table when APIKey is empty.
type HintConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// RedisConfig enables hint caching when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         5000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  time.Minute,
		},
		Postgres: PostgresConfig{
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: time.Minute,
		},
		DocStore: DocStoreConfig{
			Path: "data/ciphersql.db",
		},
		Sandbox: SandboxConfig{
			ReadOnly:         true,
			StatementTimeout: 5 * time.Second,
		},
		Hint: HintConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
			Timeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			TTL: time.Hour,
		},
	}
}

// Load builds the configuration from defaults and the environment.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	setInt32 := func(name string, dst *int32) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = int32(n)
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	setInt("PORT", &cfg.Server.Port)

	setString("PG_URI", &cfg.Postgres.URI)
	setInt32("PG_MAX_CONNS", &cfg.Postgres.MaxConns)
	setInt32("PG_MIN_CONNS", &cfg.Postgres.MinConns)
	setDuration("PG_MAX_CONN_LIFETIME", &cfg.Postgres.MaxConnLifetime)

	setString("DOCSTORE_PATH", &cfg.DocStore.Path)

	setBool("SANDBOX_READ_ONLY", &cfg.Sandbox.ReadOnly)
	setDuration("SANDBOX_STATEMENT_TIMEOUT", &cfg.Sandbox.StatementTimeout)
	setString("SANDBOX_ROLE", &cfg.Sandbox.Role)

	setString("GROQ_API_KEY", &cfg.Hint.APIKey)
	setString("HINT_API_URL", &cfg.Hint.BaseURL)
	setString("HINT_MODEL", &cfg.Hint.Model)
	setDuration("HINT_TIMEOUT", &cfg.Hint.Timeout)

	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("REDIS_DB", &cfg.Redis.DB)
	setDuration("HINT_CACHE_TTL", &cfg.Redis.TTL)

	return errors.Join(errs...)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Postgres.URI == "" {
		errs = append(errs, errors.New("PG_URI is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Postgres.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("PG_MAX_CONNS must be > 0, got %d", c.Postgres.MaxConns))
	}
	if c.Postgres.MinConns < 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, fmt.Errorf("PG_MIN_CONNS must be between 0 and PG_MAX_CONNS, got %d", c.Postgres.MinConns))
	}
	if c.DocStore.Path == "" {
		errs = append(errs, errors.New("DOCSTORE_PATH is required"))
	}
	if c.Sandbox.StatementTimeout < 0 {
		errs = append(errs, fmt.Errorf("SANDBOX_STATEMENT_TIMEOUT must not be negative, got %s", c.Sandbox.StatementTimeout))
	}
	if c.Hint.APIKey != "" && c.Hint.BaseURL == "" {
		errs = append(errs, errors.New("HINT_API_URL is required when GROQ_API_KEY is set"))
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		errs = append(errs, fmt.Errorf("HINT_CACHE_TTL must be > 0, got %s", c.Redis.TTL))
	}

	return errors.Join(errs...)
}

// HintsEnabled reports whether the language-model advisor should be used.
func (c *Config) HintsEnabled() bool {
	return c.Hint.APIKey != ""
}
