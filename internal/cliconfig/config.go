package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds CLI configuration for querybatch.
type Config struct {
	BaseURL   string
	AuthToken string
	PlanPath  string

	HTTPTimeout           time.Duration
	FlushWindow           time.Duration
	MaxConcurrentRequests int

	LogLevel  string
	LogFormat string

	Watch         bool
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with default values. It reads nothing from
// the environment; see ApplyEnvConfig.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:           15 * time.Second,
		FlushWindow:           0,
		MaxConcurrentRequests: 8,
		LogLevel:              "info",
		LogFormat:             "console",
		DebounceDelay:         200 * time.Millisecond,
	}
}

// Validate checks the configuration for errors and normalizes it.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base-url must be an http(s) URL, got %q", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.PlanPath == "" {
		return fmt.Errorf("plan is required")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.FlushWindow < 0 {
		return fmt.Errorf("flush window must not be negative")
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("max concurrent requests must be positive")
	}
	if c.Watch && c.DebounceDelay <= 0 {
		return fmt.Errorf("debounce delay must be positive in watch mode")
	}

	return nil
}

// Masked returns a copy of c that is safe to log.
func (c Config) Masked() Config {
	if c.AuthToken != "" {
		c.AuthToken = "*****"
	}
	return c
}

// configSetter applies values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a positive int from an environment string.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
