package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIPY_CLIENT_ID", "test-client-id")
	t.Setenv("SPOTIPY_CLIENT_SECRET", "test-client-secret")
	t.Setenv("SPOTIPY_REDIRECT_URI", "http://127.0.0.1:8080/callback")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.PerMonth != DefaultPerMonth {
		t.Errorf("PerMonth = %d, want %d", cfg.PerMonth, DefaultPerMonth)
	}
	if cfg.CacheMB != DefaultCacheMB {
		t.Errorf("CacheMB = %d, want %d", cfg.CacheMB, DefaultCacheMB)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want %v", cfg.CacheTTL, DefaultCacheTTL)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantVar string
	}{
		{"missing client id", "SPOTIPY_CLIENT_ID", "SPOTIPY_CLIENT_ID"},
		{"missing client secret", "SPOTIPY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET"},
		{"missing redirect uri", "SPOTIPY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error naming the variable")
			}
			if !strings.Contains(err.Error(), tt.wantVar) {
				t.Errorf("Load() error = %q, want it to name %s", err, tt.wantVar)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("YEARLY_ALBUMS_ADDR", "0.0.0.0:9000")
	t.Setenv("YEARLY_ALBUMS_PER_MONTH", "7")
	t.Setenv("YEARLY_ALBUMS_CACHE_MB", "32")
	t.Setenv("YEARLY_ALBUMS_CACHE_TTL", "5m")
	t.Setenv("YEARLY_ALBUMS_LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/albums")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, "0.0.0.0:9000")
	}
	if cfg.PerMonth != 7 {
		t.Errorf("PerMonth = %d, want 7", cfg.PerMonth)
	}
	if cfg.CacheMB != 32 {
		t.Errorf("CacheMB = %d, want 32", cfg.CacheMB)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.DatabaseURL != "postgres://localhost/albums" {
		t.Errorf("DatabaseURL = %q, want the bound value", cfg.DatabaseURL)
	}
}

func TestLoad_ClampsPerMonth(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"below minimum", "1", MinAlbumsPerMonth},
		{"at minimum", "3", 3},
		{"at maximum", "10", 10},
		{"above maximum", "50", MaxAlbumsPerMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("YEARLY_ALBUMS_PER_MONTH", tt.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.PerMonth != tt.want {
				t.Errorf("PerMonth = %d, want %d", cfg.PerMonth, tt.want)
			}
		})
	}
}

func TestClampPerMonth(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-1, MinAlbumsPerMonth},
		{0, MinAlbumsPerMonth},
		{3, 3},
		{5, 5},
		{10, 10},
		{11, MaxAlbumsPerMonth},
	}

	for _, tt := range tests {
		if got := ClampPerMonth(tt.in); got != tt.want {
			t.Errorf("ClampPerMonth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
