package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds everything the provisioner and the lifecycle hooks read at run time.
// It is populated once by Load and treated as read-only afterwards.
type Config struct {
	// Execution mode: local or remote
	Mode Mode `yaml:"mode" json:"mode"`

	// Target name resolved by the capability negotiator (e.g. "chrome", "win_chrome")
	Target string `yaml:"target" json:"target"`

	// BaseURL is prefixed to every page-object navigation path
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Headless controls local launches only
	Headless bool `yaml:"headless" json:"headless"`

	Viewport Viewport      `yaml:"viewport" json:"viewport"`
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`
	Retry    RetryConfig   `yaml:"retry" json:"retry"`
	Remote   RemoteConfig  `yaml:"remote" json:"remote"`
	Tunnel   TunnelConfig  `yaml:"tunnel" json:"tunnel"`
	Reports  ReportConfig  `yaml:"reports" json:"reports"`
	Logging  LoggingConfig `yaml:"logging" json:"logging"`
}

// Mode selects between launching a browser on this machine and connecting to a
// cloud provider.
type Mode string

const (
	// ModeLocal launches the browser engine directly
	ModeLocal Mode = "local"
	// ModeRemote connects to a cloud-hosted browser or device
	ModeRemote Mode = "remote"
)

// ParseMode accepts "browserstack" as an alias for remote.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return ModeLocal, nil
	case "remote", "browserstack":
		return ModeRemote, nil
	default:
		return "", &ConfigurationError{
			Field:   "mode",
			Message: fmt.Sprintf("invalid mode %q (must be 'local' or 'remote')", s),
		}
	}
}

// IsRemote reports whether sessions are provisioned on a cloud provider.
func (m Mode) IsRemote() bool {
	return m == ModeRemote
}

// Viewport is the desktop browsing context size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// TimeoutConfig holds the timeout tiers. Each bounds only its own operation.
type TimeoutConfig struct {
	Connect    time.Duration `yaml:"connect" json:"connect"`
	Command    time.Duration `yaml:"command" json:"command"`
	Navigation time.Duration `yaml:"navigation" json:"navigation"`
	Hook       time.Duration `yaml:"hook" json:"hook"`

	// RemoteMultiplier scales command and navigation timeouts in remote mode
	RemoteMultiplier int `yaml:"remote_multiplier" json:"remote_multiplier"`
}

// CommandTimeout returns the effective command timeout for the given mode.
func (t TimeoutConfig) CommandTimeout(mode Mode) time.Duration {
	return t.scaled(t.Command, mode)
}

// NavigationTimeout returns the effective navigation timeout for the given mode.
func (t TimeoutConfig) NavigationTimeout(mode Mode) time.Duration {
	return t.scaled(t.Navigation, mode)
}

func (t TimeoutConfig) scaled(d time.Duration, mode Mode) time.Duration {
	if mode.IsRemote() && t.RemoteMultiplier > 1 {
		return d * time.Duration(t.RemoteMultiplier)
	}
	return d
}

// RetryConfig bounds the two retry loops: remote connect and device acquisition.
type RetryConfig struct {
	ConnectAttempts uint          `yaml:"connect_attempts" json:"connect_attempts"`
	ConnectDelay    time.Duration `yaml:"connect_delay" json:"connect_delay"`
	DeviceAttempts  uint          `yaml:"device_attempts" json:"device_attempts"`
	DeviceDelay     time.Duration `yaml:"device_delay" json:"device_delay"`
}

// RemoteConfig describes the cloud provider account and labels.
type RemoteConfig struct {
	Username  string `yaml:"username" json:"username"`
	AccessKey string `yaml:"access_key" json:"-"`

	// Endpoint is the desktop Playwright WebSocket endpoint
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// DeviceEndpoint is the base of the per-platform device endpoint
	DeviceEndpoint string `yaml:"device_endpoint" json:"device_endpoint"`

	Project string `yaml:"project" json:"project"`
	Build   string `yaml:"build" json:"build"`

	// Device overrides applied to device targets only
	DeviceName string `yaml:"device_name" json:"device_name"`
	OSVersion  string `yaml:"os_version" json:"os_version"`

	// Capabilities are extra descriptor fields layered over the target profile
	Capabilities map[string]interface{} `yaml:"capabilities" json:"capabilities,omitempty"`
}

// HasCredentials reports whether both halves of the account credentials are set.
func (r RemoteConfig) HasCredentials() bool {
	return r.Username != "" && r.AccessKey != ""
}

// TunnelConfig controls the local network tunnel started once per run.
type TunnelConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Binary     string        `yaml:"binary" json:"binary"`
	Identifier string        `yaml:"identifier" json:"identifier"`
	Ready      time.Duration `yaml:"ready_timeout" json:"ready_timeout"`
}

// ReportConfig controls on-disk artifacts.
type ReportConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	Screenshots bool   `yaml:"screenshots" json:"screenshots"`
	JSON        bool   `yaml:"json" json:"json"`
	Metrics     bool   `yaml:"metrics" json:"metrics"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error
	Level string `yaml:"level" json:"level"`
	// File is the rotated JSON log path; empty disables file logging
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mode != ModeLocal && c.Mode != ModeRemote {
		return &ConfigurationError{Field: "mode", Message: fmt.Sprintf("invalid mode: %s", c.Mode)}
	}

	if c.Target == "" {
		return &ConfigurationError{Field: "target", Message: "target is required"}
	}

	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return &ConfigurationError{Field: "viewport", Message: "viewport dimensions must be positive"}
	}

	if c.Timeouts.Connect <= 0 || c.Timeouts.Command <= 0 || c.Timeouts.Navigation <= 0 || c.Timeouts.Hook <= 0 {
		return &ConfigurationError{Field: "timeouts", Message: "all timeouts must be positive"}
	}

	if c.Retry.ConnectAttempts == 0 || c.Retry.DeviceAttempts == 0 {
		return &ConfigurationError{Field: "retry", Message: "retry attempts must be at least 1"}
	}

	if c.Retry.ConnectDelay < 0 || c.Retry.DeviceDelay < 0 {
		return &ConfigurationError{Field: "retry", Message: "retry delays cannot be negative"}
	}

	if c.Reports.Dir == "" {
		return &ConfigurationError{Field: "reports.dir", Message: "reports directory is required"}
	}

	if c.Tunnel.Enabled && c.Tunnel.Binary == "" {
		return &ConfigurationError{Field: "tunnel.binary", Message: "tunnel binary is required when the tunnel is enabled"}
	}

	return nil
}

// RequireCredentials fails when remote mode is requested without an account.
func (c *Config) RequireCredentials() error {
	if !c.Mode.IsRemote() {
		return nil
	}
	if c.Remote.Username == "" {
		return &ConfigurationError{Field: "remote.username", Message: "BROWSERSTACK_USERNAME is required for remote runs"}
	}
	if c.Remote.AccessKey == "" {
		return &ConfigurationError{Field: "remote.access_key", Message: "BROWSERSTACK_ACCESS_KEY is required for remote runs"}
	}
	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Mode:     ModeLocal,
		Target:   "chrome",
		BaseURL:  "http://localhost:8080",
		Headless: true,
		Viewport: Viewport{Width: 1920, Height: 1080},
		Timeouts: TimeoutConfig{
			Connect:          120 * time.Second,
			Command:          30 * time.Second,
			Navigation:       30 * time.Second,
			Hook:             180 * time.Second,
			RemoteMultiplier: 2,
		},
		Retry: RetryConfig{
			ConnectAttempts: 3,
			ConnectDelay:    5 * time.Second,
			DeviceAttempts:  5,
			DeviceDelay:     10 * time.Second,
		},
		Remote: RemoteConfig{
			Endpoint:       "wss://cdp.browserstack.com/playwright",
			DeviceEndpoint: "wss://cdp.browserstack.com/playwright-cdp",
			Project:        "sessionrig",
		},
		Tunnel: TunnelConfig{
			Binary: "BrowserStackLocal",
			Ready:  60 * time.Second,
		},
		Reports: ReportConfig{
			Dir:         "reports",
			Screenshots: true,
			JSON:        true,
			Metrics:     true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
