// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values for optional settings.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultPerMonth    = 5
	DefaultCacheMB     = 8
	DefaultCacheTTL    = 10 * time.Minute
	DefaultLogLevel    = "info"
	MinAlbumsPerMonth  = 3
	MaxAlbumsPerMonth  = 10
	spotifyClientIDVar = "SPOTIPY_CLIENT_ID"
	spotifySecretVar   = "SPOTIPY_CLIENT_SECRET"
	spotifyRedirectVar = "SPOTIPY_REDIRECT_URI"
)

// Config holds all runtime configuration.
type Config struct {
	Addr         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	DatabaseURL  string
	PerMonth     int
	CacheMB      int
	CacheTTL     time.Duration
	LogLevel     string
}

// Load reads configuration from environment variables.
// The three SPOTIPY_* variables are required; a missing one is a fatal
// startup error naming the variable.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("per_month", DefaultPerMonth)
	v.SetDefault("cache_mb", DefaultCacheMB)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("log_level", DefaultLogLevel)

	bindings := map[string]string{
		"client_id":     spotifyClientIDVar,
		"client_secret": spotifySecretVar,
		"redirect_uri":  spotifyRedirectVar,
		"database_url":  "DATABASE_URL",
		"addr":          "YEARLY_ALBUMS_ADDR",
		"per_month":     "YEARLY_ALBUMS_PER_MONTH",
		"cache_mb":      "YEARLY_ALBUMS_CACHE_MB",
		"cache_ttl":     "YEARLY_ALBUMS_CACHE_TTL",
		"log_level":     "YEARLY_ALBUMS_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{
		Addr:         v.GetString("addr"),
		ClientID:     v.GetString("client_id"),
		ClientSecret: v.GetString("client_secret"),
		RedirectURI:  v.GetString("redirect_uri"),
		DatabaseURL:  v.GetString("database_url"),
		PerMonth:     v.GetInt("per_month"),
		CacheMB:      v.GetInt("cache_mb"),
		CacheTTL:     v.GetDuration("cache_ttl"),
		LogLevel:     v.GetString("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.PerMonth = ClampPerMonth(cfg.PerMonth)
	if cfg.CacheMB <= 0 {
		cfg.CacheMB = DefaultCacheMB
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return cfg, nil
}

// validate checks that all required settings are present.
func (c *Config) validate() error {
	required := []struct {
		value string
		env   string
	}{
		{c.ClientID, spotifyClientIDVar},
		{c.ClientSecret, spotifySecretVar},
		{c.RedirectURI, spotifyRedirectVar},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("environment variable %s is not set", r.env)
		}
	}
	return nil
}

// ClampPerMonth bounds an album-per-month count to the supported range.
func ClampPerMonth(n int) int {
	if n < MinAlbumsPerMonth {
		return MinAlbumsPerMonth
	}
	if n > MaxAlbumsPerMonth {
		return MaxAlbumsPerMonth
	}
	return n
}
