package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("QUERYBATCH_AUTH_TOKEN", "")
	cfg := DefaultConfig()

	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v, want 15s", cfg.HTTPTimeout)
	}
	if cfg.FlushWindow != 0 {
		t.Errorf("FlushWindow = %v, want 0", cfg.FlushWindow)
	}
	if cfg.MaxConcurrentRequests != 8 {
		t.Errorf("MaxConcurrentRequests = %v, want 8", cfg.MaxConcurrentRequests)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("log = %s/%s, want info/console", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestDefaultConfig_TokenOnlyFromEnvLayer(t *testing.T) {
	t.Setenv("QUERYBATCH_AUTH_TOKEN", "sntrys_from_env")

	cfg := DefaultConfig()
	if cfg.AuthToken != "" {
		t.Fatalf("DefaultConfig().AuthToken = %q, want empty so it never shows as a flag default", cfg.AuthToken)
	}

	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig() error = %v", err)
	}
	if cfg.AuthToken != "sntrys_from_env" {
		t.Errorf("AuthToken = %q, want value from QUERYBATCH_AUTH_TOKEN", cfg.AuthToken)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			BaseURL:               "https://sentry.example.com",
			PlanPath:              "plan.toml",
			HTTPTimeout:           time.Second,
			MaxConcurrentRequests: 1,
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		wantBaseURL string
	}{
		{
			name:        "valid minimal config",
			mutate:      func(*Config) {},
			wantBaseURL: "https://sentry.example.com",
		},
		{
			name:        "trailing slashes removed",
			mutate:      func(c *Config) { c.BaseURL = "http://localhost:9000//" },
			wantBaseURL: "http://localhost:9000",
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "base url without scheme",
			mutate:  func(c *Config) { c.BaseURL = "sentry.example.com" },
			wantErr: true,
		},
		{
			name:    "missing plan",
			mutate:  func(c *Config) { c.PlanPath = "" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.HTTPTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative flush window",
			mutate:  func(c *Config) { c.FlushWindow = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.MaxConcurrentRequests = 0 },
			wantErr: true,
		},
		{
			name:    "watch without debounce",
			mutate:  func(c *Config) { c.Watch = true },
			wantErr: true,
		},
		{
			name: "watch with debounce",
			mutate: func(c *Config) {
				c.Watch = true
				c.DebounceDelay = 50 * time.Millisecond
			},
			wantBaseURL: "https://sentry.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				if err == nil {
					t.Error("Validate() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if cfg.BaseURL != tt.wantBaseURL {
				t.Errorf("BaseURL = %v, want %v", cfg.BaseURL, tt.wantBaseURL)
			}
		})
	}
}

func TestConfig_Masked(t *testing.T) {
	cfg := Config{AuthToken: "sntrys_secret"}
	if got := cfg.Masked().AuthToken; got != "*****" {
		t.Errorf("Masked().AuthToken = %q, want *****", got)
	}
	if cfg.AuthToken != "sntrys_secret" {
		t.Error("Masked() modified the receiver")
	}
	if got := (Config{}).Masked().AuthToken; got != "" {
		t.Errorf("Masked() of empty token = %q, want empty", got)
	}
}
