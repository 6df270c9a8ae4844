package cliconfig

import "os"

// ApplyEnvConfig applies configuration from QUERYBATCH_* environment variables.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", os.Getenv("QUERYBATCH_BASE_URL"), &cfg.BaseURL)
	s.setString("auth-token", os.Getenv("QUERYBATCH_AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("plan", os.Getenv("QUERYBATCH_PLAN"), &cfg.PlanPath)
	s.setString("log-level", os.Getenv("QUERYBATCH_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("QUERYBATCH_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("timeout", os.Getenv("QUERYBATCH_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("flush-window", os.Getenv("QUERYBATCH_FLUSH_WINDOW"), &cfg.FlushWindow); err != nil {
		return err
	}
	if err := s.setDuration("debounce", os.Getenv("QUERYBATCH_DEBOUNCE_DELAY"), &cfg.DebounceDelay); err != nil {
		return err
	}

	if err := s.setIntFromString("max-concurrent", os.Getenv("QUERYBATCH_MAX_CONCURRENT_REQUESTS"), &cfg.MaxConcurrentRequests); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("QUERYBATCH_WATCH"), &cfg.Watch)

	return nil
}
