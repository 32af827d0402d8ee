// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all settings of the sync server.
type Config struct {
	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// --- Database ---
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Auth ---
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// --- Rate limiting ---
	// When RedisAddr is set, limits are enforced in Redis and shared across
	// instances. Otherwise counters live in process memory and reset on
	// restart.
	RedisAddr       string `envconfig:"REDIS_ADDR"`
	RedisPassword   string `envconfig:"REDIS_PASSWORD"`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
	ClientRateLimit int    `envconfig:"CLIENT_RATE_LIMIT" default:"60"`
	UserRateLimit   int    `envconfig:"USER_RATE_LIMIT" default:"120"`

	// --- Application ---
	AppEnv       string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel  string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	EnableSignin bool   `envconfig:"ENABLE_DEV_SIGNIN" default:"false"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}
