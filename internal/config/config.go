// Package config holds the layered server configuration: an explicit config
// file wins over environment variables, which win over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigurationError reports an invalid or unloadable configuration. It is
// raised at load/validate time, never during a browser operation.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// AuthConfig controls how the browser session keeps Google credentials.
type AuthConfig struct {
	// ProfileDir is the persistent Chrome user-data directory. Cookies and
	// local storage stored here survive restarts, which is what lets the
	// server skip manual login on every boot.
	ProfileDir string `yaml:"profile_dir"`

	// CookiesPath optionally points at an exported cookies JSON file.
	CookiesPath string `yaml:"cookies_path,omitempty"`

	UsePersistentSession bool `yaml:"use_persistent_session"`
	AutoLogin            bool `yaml:"auto_login"`
}

// SelectorConfig holds the DOM selector lists the client works with. The
// target application ships no stable API, so every list here is data the
// operator can extend when NotebookLM's markup drifts.
type SelectorConfig struct {
	// ChatInput is the ordered locator cascade for the chat input box.
	ChatInput []string `yaml:"chat_input,omitempty"`

	// SendButton is the locator cascade for the send button fallback.
	SendButton []string `yaml:"send_button,omitempty"`

	// ResponseContainers is the prioritized list of selectors that may hold
	// the rendered answer.
	ResponseContainers []string `yaml:"response_containers,omitempty"`

	// StreamingIndicators mark an answer that is still being generated.
	StreamingIndicators []string `yaml:"streaming_indicators,omitempty"`

	// ArtifactTokens are UI chrome lines (icon labels) stripped from answers.
	ArtifactTokens []string `yaml:"artifact_tokens,omitempty"`

	// BoilerplateExclusions filters the generic fallback text scan.
	BoilerplateExclusions []string `yaml:"boilerplate_exclusions,omitempty"`
}

// Config is the full server configuration. Numeric timeouts are in seconds
// (poll interval in milliseconds) to keep the YAML flat and obvious.
type Config struct {
	ServerName string `yaml:"server_name"`

	// Browser settings
	Headless       bool   `yaml:"headless"`
	Timeout        int    `yaml:"timeout"` // page-load timeout, seconds
	Debug          bool   `yaml:"debug"`
	ExecutablePath string `yaml:"executable_path,omitempty"`

	// NotebookLM settings
	DefaultNotebookID string `yaml:"default_notebook_id,omitempty"`
	BaseURL           string `yaml:"base_url"`

	// Streaming / response acquisition
	StreamingTimeout        int `yaml:"streaming_timeout"`         // seconds
	ResponseStabilityChecks int `yaml:"response_stability_checks"` // consecutive identical polls
	PollIntervalMS          int `yaml:"poll_interval_ms"`
	RetryAttempts           int `yaml:"retry_attempts"`

	// Gateway settings
	MaxConcurrentRequests int  `yaml:"max_concurrent_requests"`
	AllowRemoteAccess     bool `yaml:"allow_remote_access"`

	// Security
	RequireAPIKey     bool     `yaml:"require_api_key"`
	APIKeys           []string `yaml:"api_keys,omitempty"`
	APIKeyHeader      string   `yaml:"api_key_header"`
	AllowBearerTokens bool     `yaml:"allow_bearer_tokens"`

	// Monitoring
	EnableMetrics       bool `yaml:"enable_metrics"`
	MetricsPort         int  `yaml:"metrics_port"`
	EnableHealthChecks  bool `yaml:"enable_health_checks"`
	HealthCheckInterval int  `yaml:"health_check_interval"` // seconds

	Auth      AuthConfig     `yaml:"auth"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
}

// DefaultConfig returns a config with the same defaults the original server
// ships with.
func DefaultConfig() *Config {
	return &Config{
		ServerName:              "notebooklm-mcp",
		Headless:                false,
		Timeout:                 60,
		BaseURL:                 "https://notebooklm.google.com",
		StreamingTimeout:        60,
		ResponseStabilityChecks: 3,
		PollIntervalMS:          1000,
		RetryAttempts:           3,
		MaxConcurrentRequests:   4,
		APIKeyHeader:            "x-api-key",
		AllowBearerTokens:       true,
		MetricsPort:             9108,
		HealthCheckInterval:     30,
		Auth: AuthConfig{
			ProfileDir:           "./chrome_profile_notebooklm",
			UsePersistentSession: true,
			AutoLogin:            true,
		},
	}
}

// Load resolves configuration with priority: explicit file > ./config.yaml >
// environment variables > defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFrom(path)
	}

	for _, candidate := range []string{"./config.yaml", "./config.json"} {
		if _, err := os.Stat(candidate); err == nil {
			return LoadFrom(candidate)
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// LoadFrom loads configuration from a YAML (or JSON, which YAML subsumes)
// file layered over defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("config file not found: %s", path)}
		}
		return nil, &ConfigurationError{Msg: fmt.Sprintf("read %s: %v", path, err)}
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("parse %s: %v", path, err)}
	}

	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnv overlays NOTEBOOKLM_* environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("NOTEBOOKLM_HEADLESS"); v != "" {
		c.Headless = envBool(v)
	}
	if v := os.Getenv("NOTEBOOKLM_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeout = n
		}
	}
	if v := os.Getenv("NOTEBOOKLM_DEBUG"); v != "" {
		c.Debug = envBool(v)
	}
	if v := os.Getenv("NOTEBOOKLM_NOTEBOOK_ID"); v != "" {
		c.DefaultNotebookID = v
	}
	if v := os.Getenv("NOTEBOOKLM_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("NOTEBOOKLM_STREAMING_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StreamingTimeout = n
		}
	}
	if v := os.Getenv("NOTEBOOKLM_STABILITY_CHECKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ResponseStabilityChecks = n
		}
	}
	if v := os.Getenv("NOTEBOOKLM_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentRequests = n
		}
	}
	if v := os.Getenv("NOTEBOOKLM_PROFILE_DIR"); v != "" {
		c.Auth.ProfileDir = v
	}
	if v := os.Getenv("NOTEBOOKLM_COOKIES_PATH"); v != "" {
		c.Auth.CookiesPath = v
	}
	if v := os.Getenv("NOTEBOOKLM_PERSISTENT_SESSION"); v != "" {
		c.Auth.UsePersistentSession = envBool(v)
	}
}

func envBool(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "true" || s == "1" || s == "yes"
}

// Validate checks all numeric settings once, before any browser work starts.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return &ConfigurationError{Msg: "timeout must be positive"}
	}
	if c.StreamingTimeout <= 0 {
		return &ConfigurationError{Msg: "streaming timeout must be positive"}
	}
	if c.ResponseStabilityChecks <= 0 {
		return &ConfigurationError{Msg: "response stability checks must be positive"}
	}
	if c.PollIntervalMS <= 0 {
		return &ConfigurationError{Msg: "poll interval must be positive"}
	}
	if c.RetryAttempts < 0 {
		return &ConfigurationError{Msg: "retry attempts cannot be negative"}
	}
	if c.MaxConcurrentRequests <= 0 {
		return &ConfigurationError{Msg: "max concurrent requests must be positive"}
	}
	if c.Auth.ProfileDir != "" {
		parent := filepath.Dir(filepath.Clean(c.Auth.ProfileDir))
		if _, err := os.Stat(parent); err != nil {
			return &ConfigurationError{Msg: fmt.Sprintf("profile directory parent does not exist: %s", c.Auth.ProfileDir)}
		}
	}
	return nil
}

// PageLoadTimeout returns the page-load timeout as a duration.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// StreamingWait returns the default streaming wait budget.
func (c *Config) StreamingWait() time.Duration {
	return time.Duration(c.StreamingTimeout) * time.Second
}

// PollInterval returns the snapshot poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// NotebookURL builds the canonical URL for a notebook id.
func (c *Config) NotebookURL(notebookID string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/notebook/" + notebookID
}
