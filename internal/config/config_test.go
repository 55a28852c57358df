package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "https://notebooklm.google.com" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.Timeout != 60 {
		t.Errorf("unexpected timeout: %d", cfg.Timeout)
	}
	if cfg.ResponseStabilityChecks != 3 {
		t.Errorf("unexpected stability checks: %d", cfg.ResponseStabilityChecks)
	}
	if cfg.Headless {
		t.Error("headless should default to false so manual login is possible")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("timeout: 30\ndefault_notebook_id: nb-123\nselectors:\n  chat_input:\n    - \"#custom-input\"\n")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Timeout != 30 {
		t.Errorf("timeout not overridden: %d", cfg.Timeout)
	}
	if cfg.DefaultNotebookID != "nb-123" {
		t.Errorf("notebook id not set: %s", cfg.DefaultNotebookID)
	}
	if len(cfg.Selectors.ChatInput) != 1 || cfg.Selectors.ChatInput[0] != "#custom-input" {
		t.Errorf("selector override lost: %v", cfg.Selectors.ChatInput)
	}
	// untouched fields keep defaults
	if cfg.BaseURL != "https://notebooklm.google.com" {
		t.Errorf("default base URL lost: %s", cfg.BaseURL)
	}
}

func TestLoadFromExpandsEnv(t *testing.T) {
	t.Setenv("TEST_NOTEBOOK", "env-nb")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("default_notebook_id: ${TEST_NOTEBOOK}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.DefaultNotebookID != "env-nb" {
		t.Errorf("env not expanded: %s", cfg.DefaultNotebookID)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NOTEBOOKLM_HEADLESS", "true")
	t.Setenv("NOTEBOOKLM_TIMEOUT", "90")
	t.Setenv("NOTEBOOKLM_NOTEBOOK_ID", "nb-env")

	cfg := DefaultConfig()
	cfg.applyEnv()

	if !cfg.Headless {
		t.Error("NOTEBOOKLM_HEADLESS not applied")
	}
	if cfg.Timeout != 90 {
		t.Errorf("NOTEBOOKLM_TIMEOUT not applied: %d", cfg.Timeout)
	}
	if cfg.DefaultNotebookID != "nb-env" {
		t.Errorf("NOTEBOOKLM_NOTEBOOK_ID not applied: %s", cfg.DefaultNotebookID)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero streaming timeout", func(c *Config) { c.StreamingTimeout = 0 }},
		{"zero stability checks", func(c *Config) { c.ResponseStabilityChecks = 0 }},
		{"zero poll interval", func(c *Config) { c.PollIntervalMS = 0 }},
		{"negative retries", func(c *Config) { c.RetryAttempts = -1 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentRequests = 0 }},
		{"missing profile parent", func(c *Config) { c.Auth.ProfileDir = "/does/not/exist/profile" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")

	cfg := DefaultConfig()
	cfg.DefaultNotebookID = "nb-save"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file perms = %o, want 0600", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.DefaultNotebookID != "nb-save" {
		t.Errorf("round trip lost notebook id: %s", loaded.DefaultNotebookID)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 5
	cfg.PollIntervalMS = 250

	if cfg.PageLoadTimeout() != 5*time.Second {
		t.Errorf("PageLoadTimeout = %v", cfg.PageLoadTimeout())
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval())
	}
}

func TestNotebookURL(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.NotebookURL("abc"); got != "https://notebooklm.google.com/notebook/abc" {
		t.Errorf("NotebookURL = %s", got)
	}

	cfg.BaseURL = "https://notebooklm.google.com/"
	if got := cfg.NotebookURL("abc"); got != "https://notebooklm.google.com/notebook/abc" {
		t.Errorf("NotebookURL with trailing slash = %s", got)
	}
}
