package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				BaseURL:               "https://sentry.example.com",
				AuthToken:             "secret",
				PlanPath:              "/etc/querybatch/plan.toml",
				HTTPTimeout:           "30s",
				FlushWindow:           "5ms",
				MaxConcurrentRequests: 4,
				LogLevel:              "debug",
				LogFormat:             "json",
				Watch:                 &trueVal,
				DebounceDelay:         "1s",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				BaseURL:               "https://sentry.example.com",
				AuthToken:             "secret",
				PlanPath:              "/etc/querybatch/plan.toml",
				HTTPTimeout:           30 * time.Second,
				FlushWindow:           5 * time.Millisecond,
				MaxConcurrentRequests: 4,
				LogLevel:              "debug",
				LogFormat:             "json",
				Watch:                 true,
				DebounceDelay:         time.Second,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				BaseURL:  "https://file.example.com",
				PlanPath: "file-plan.toml",
			},
			changed: map[string]bool{"base-url": true},
			initial: Config{BaseURL: "https://flag.example.com"},
			expected: Config{
				BaseURL:  "https://flag.example.com", // unchanged because flag was set
				PlanPath: "file-plan.toml",
			},
		},
		{
			name:       "empty values keep defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{HTTPTimeout: time.Second, MaxConcurrentRequests: 2},
			expected:   Config{HTTPTimeout: time.Second, MaxConcurrentRequests: 2},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{FlushWindow: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	tomlContent := `
base_url = "https://sentry.example.com"
plan = "dashboards/perf.toml"
flush_window = "2ms"
max_concurrent_requests = 3
watch = true
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.BaseURL != "https://sentry.example.com" {
		t.Errorf("BaseURL = %v", fc.BaseURL)
	}
	if fc.PlanPath != "dashboards/perf.toml" {
		t.Errorf("PlanPath = %v", fc.PlanPath)
	}
	if fc.FlushWindow != "2ms" {
		t.Errorf("FlushWindow = %v, want 2ms", fc.FlushWindow)
	}
	if fc.MaxConcurrentRequests != 3 {
		t.Errorf("MaxConcurrentRequests = %v, want 3", fc.MaxConcurrentRequests)
	}
	if fc.Watch == nil || !*fc.Watch {
		t.Errorf("Watch = %v, want true", fc.Watch)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	if _, err := LoadFileConfig("/nonexistent/path/config.toml"); err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.toml")
	if err := os.WriteFile(configPath, []byte("base_url = \nthis is not valid toml\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	if _, err := LoadFileConfig(configPath); err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path != "" && !strings.Contains(path, ".querybatch") {
		t.Errorf("DefaultConfigPath() = %v, should contain .querybatch", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")
	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}
	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
