// Package config provides JWT configuration functionality.
package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET (required), JWT_ISSUER (default: "goodmeasure"), and
// JWT_TTL (a duration string, default: 24h).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("JWT_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TTL: %v", err)
		}
		ttl = parsed
	}

	config := &JWTConfig{
		Secret: secret,
		Issuer: getenv("JWT_ISSUER", "goodmeasure"),
		TTL:    ttl,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got: %d", len(c.Secret))
	}
	if c.TTL < time.Minute {
		return fmt.Errorf("JWT_TTL must be at least 1 minute, got: %s", c.TTL)
	}
	return nil
}
