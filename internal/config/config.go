// Package config loads service configuration from environment variables.
// Each New*Config constructor reads its variables, applies defaults, and
// normalizes the result; a missing required value is an error, not a panic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Addr            string        // listen address
	DataDir         string        // converted charity data dir served under /data
	AllowedOrigins  []string      // CORS allowlist; empty allows any origin
	AuthUpstreamURL string        // upstream for the /__/auth/ proxy; empty disables it
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NewServerConfig creates the server configuration from environment
// variables: LISTEN_ADDR (default ":8080"), DATA_DIR (default "./data"),
// CORS_ALLOWED_ORIGINS (comma-separated), AUTH_UPSTREAM_URL, and the
// SERVER_*_TIMEOUT durations.
func NewServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Addr:            getenv("LISTEN_ADDR", ":8080"),
		DataDir:         getenv("DATA_DIR", "./data"),
		AuthUpstreamURL: os.Getenv("AUTH_UPSTREAM_URL"),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.ReadTimeout, err = getduration("SERVER_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = getduration("SERVER_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getduration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *ServerConfig) normalize() error {
	if c.Addr == "" {
		return fmt.Errorf("LISTEN_ADDR cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.AuthUpstreamURL != "" && !strings.HasPrefix(c.AuthUpstreamURL, "http://") &&
		!strings.HasPrefix(c.AuthUpstreamURL, "https://") {
		return fmt.Errorf("AUTH_UPSTREAM_URL must be an http(s) URL, got: %s", c.AuthUpstreamURL)
	}
	return nil
}

// Store driver names accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string // pgx connection string, or sqlite file path
}

// NewStoreConfig creates the storage configuration from environment
// variables. STORE_DRIVER defaults to sqlite; postgres reads DATABASE_URL
// (required), sqlite reads SQLITE_PATH (default "./goodmeasure.db").
func NewStoreConfig() (*StoreConfig, error) {
	cfg := &StoreConfig{
		Driver: getenv("STORE_DRIVER", DriverSQLite),
	}

	switch cfg.Driver {
	case DriverPostgres:
		cfg.DSN = os.Getenv("DATABASE_URL")
	case DriverSQLite:
		cfg.DSN = getenv("SQLITE_PATH", "./goodmeasure.db")
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *StoreConfig) normalize() error {
	switch c.Driver {
	case DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.DSN == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER: %q (must be %s or %s)", c.Driver, DriverPostgres, DriverSQLite)
	}
	return nil
}

// LLMConfig configures the optional Gemini-backed giving recap.
type LLMConfig struct {
	APIKey string // empty disables the recap endpoint
	Model  string
}

// NewLLMConfig creates the LLM configuration from environment variables:
// GEMINI_API_KEY (optional) and GEMINI_MODEL (default "gemini-1.5-flash").
// A missing key is not an error; the recap feature reports unconfigured.
func NewLLMConfig() *LLMConfig {
	return &LLMConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  getenv("GEMINI_MODEL", "gemini-1.5-flash"),
	}
}

// Enabled reports whether a Gemini API key is configured.
func (c *LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	// Accept bare seconds for compatibility with older deployments.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
