package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv neutralizes every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "BROWSER", "BASE_URL", "HEADLESS",
		"BROWSERSTACK_USERNAME", "BROWSERSTACK_ACCESS_KEY",
		"BROWSERSTACK_BUILD_NAME", "BROWSERSTACK_PROJECT_NAME",
		"BROWSERSTACK_LOCAL", "BROWSERSTACK_LOCAL_IDENTIFIER",
		"DEVICE_NAME", "OS_VERSION", "COMMAND_TIMEOUT", "REPORTS_DIR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessionrig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "chrome", cfg.Target)
	assert.Equal(t, Viewport{Width: 1920, Height: 1080}, cfg.Viewport)
	assert.Equal(t, 120*time.Second, cfg.Timeouts.Connect)
	assert.Equal(t, uint(3), cfg.Retry.ConnectAttempts)
	assert.Equal(t, uint(5), cfg.Retry.DeviceAttempts)
	assert.Equal(t, "reports", cfg.Reports.Dir)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
mode: browserstack
target: mac_safari
base_url: https://staging.example.com
viewport:
  width: 1280
  height: 720
timeouts:
  connect: 90s
  command: 20s
  navigation: 25s
  hook: 60s
  remote_multiplier: 2
retry:
  connect_attempts: 4
  connect_delay: 1s
  device_attempts: 2
  device_delay: 2s
remote:
  username: file-user
  access_key: file-key
`)

	t.Setenv("BROWSER", "win_chrome")
	t.Setenv("BROWSERSTACK_USERNAME", "env-user")
	t.Setenv("DEVICE_NAME", "Google Pixel 8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeRemote, cfg.Mode)
	assert.Equal(t, "win_chrome", cfg.Target, "environment overrides file")
	assert.Equal(t, "https://staging.example.com", cfg.BaseURL)
	assert.Equal(t, Viewport{Width: 1280, Height: 720}, cfg.Viewport)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Connect)
	assert.Equal(t, uint(4), cfg.Retry.ConnectAttempts)
	assert.Equal(t, "env-user", cfg.Remote.Username)
	assert.Equal(t, "file-key", cfg.Remote.AccessKey, "file value kept when env is unset")
	assert.Equal(t, "Google Pixel 8", cfg.Remote.DeviceName)
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown mode", key: "ENV", value: "cloud"},
		{name: "bad headless flag", key: "HEADLESS", value: "sometimes"},
		{name: "bad tunnel flag", key: "BROWSERSTACK_LOCAL", value: "maybe"},
		{name: "bad command timeout", key: "COMMAND_TIMEOUT", value: "soon"},
		{name: "negative command timeout", key: "COMMAND_TIMEOUT", value: "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T", err)
		})
	}
}

func TestLoad_CommandTimeoutFromEnv(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Command, "blank COMMAND_TIMEOUT keeps the default")

	t.Setenv("COMMAND_TIMEOUT", "45s")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Command)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "viewport: [not, a, map")

	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "file", cfgErr.Field)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
