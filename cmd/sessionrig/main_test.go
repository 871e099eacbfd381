package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
	"github.com/entrhq/sessionrig/pkg/hooks"
)

// isolateEnv clears every variable the config loader reads so the host
// environment cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "BROWSER", "BASE_URL", "HEADLESS",
		"BROWSERSTACK_USERNAME", "BROWSERSTACK_ACCESS_KEY",
		"BROWSERSTACK_BUILD_NAME", "BROWSERSTACK_PROJECT_NAME",
		"BROWSERSTACK_LOCAL", "BROWSERSTACK_LOCAL_IDENTIFIER",
		"DEVICE_NAME", "OS_VERSION", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("REPORTS_DIR", t.TempDir())
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	isolateEnv(t)

	code, out, _ := runCLI(t, "--version")

	assert.Equal(t, 0, code)
	assert.Equal(t, version+"\n", out)
}

func TestTargets_Local(t *testing.T) {
	isolateEnv(t)

	code, out, stderr := runCLI(t, "targets")

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Targets (local)")
	assert.Contains(t, out, "firefox")
	assert.Contains(t, out, "mobile_chrome")
	assert.Contains(t, out, "mobile emulation")
	assert.NotContains(t, out, "android_chrome")
}

func TestTargets_RemoteAlias(t *testing.T) {
	isolateEnv(t)

	code, out, stderr := runCLI(t, "targets", "--mode", "browserstack")

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Targets (remote)")
	assert.Contains(t, out, "android_chrome")
	assert.Contains(t, out, "iPhone 14")
}

func TestInvalidModeIsSetupFailure(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := runCLI(t, "targets", "--mode", "cloud")

	assert.Equal(t, hooks.ExitSetupFailed, code)
	assert.Contains(t, stderr, "invalid mode")
}

func TestCapabilities_Remote(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BROWSERSTACK_USERNAME", "alice")
	t.Setenv("BROWSERSTACK_ACCESS_KEY", "s3cretkey9")

	code, out, stderr := runCLI(t, "capabilities", "win_chrome", "-m", "remote")
	require.Equal(t, 0, code, stderr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "win_chrome", decoded["target"])
	assert.Equal(t, "chromium", decoded["engine"])
	assert.Equal(t, true, decoded["remote"])

	caps, ok := decoded["capabilities"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Windows", caps["os"])
	assert.Contains(t, caps, capabilities.OptionsKey)

	assert.NotContains(t, out, "s3cretkey9")
}

func TestCapabilities_DefaultsToConfiguredTarget(t *testing.T) {
	isolateEnv(t)

	code, out, stderr := runCLI(t, "capabilities", "-t", "firefox")
	require.Equal(t, 0, code, stderr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "firefox", decoded["target"])
	assert.Equal(t, false, decoded["remote"])
	assert.Equal(t, map[string]interface{}{"browser": "firefox"}, decoded["capabilities"])
}

func TestCapabilities_UnknownTarget(t *testing.T) {
	isolateEnv(t)

	code, out, stderr := runCLI(t, "capabilities", "commodore64", "--mode", "remote")

	assert.Equal(t, hooks.ExitSetupFailed, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, `"commodore64"`)
}

func TestEnv_MasksCredentials(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BROWSERSTACK_USERNAME", "alice")
	t.Setenv("BROWSERSTACK_ACCESS_KEY", "s3cretkey9")

	code, out, stderr := runCLI(t, "env", "--base-url", "https://staging.example.com")

	require.Equal(t, 0, code, stderr)
	assert.NotContains(t, out, "s3cretkey9")
	assert.Contains(t, out, "access_key: s3****")
	assert.Contains(t, out, "username: al****")
	assert.Contains(t, out, "base_url: https://staging.example.com")
}

func TestRun_NoMatchingTargets(t *testing.T) {
	isolateEnv(t)

	code, out, stderr := runCLI(t, "run", "--targets", "amiga_*")

	assert.Equal(t, hooks.ExitSetupFailed, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "amiga_*")
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcd", "****"},
		{"abcde", "ab****"},
		{"a-very-long-access-key", "a-****"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, maskSecret(tt.in))
		})
	}
}

func TestTargetConfig(t *testing.T) {
	base := config.DefaultConfig()
	base.Reports.Dir = "reports"

	single := targetConfig(base, "firefox", false)
	assert.Equal(t, "firefox", single.Target)
	assert.Equal(t, "reports", single.Reports.Dir)

	matrix := targetConfig(base, "win_edge", true)
	assert.Equal(t, filepath.Join("reports", "win_edge"), matrix.Reports.Dir)

	assert.Equal(t, "chrome", base.Target, "base config is not modified")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, hooks.ExitPassed, exitCode(nil))
	assert.Equal(t, hooks.ExitPassed, exitCode([]*hooks.RunSummary{{Passed: 2}}))
	assert.Equal(t, hooks.ExitFailed, exitCode([]*hooks.RunSummary{{Passed: 2}, {Failed: 1}}))
	assert.Equal(t, hooks.ExitFailed, exitCode([]*hooks.RunSummary{{InfraError: 1}}))
}

func TestRenderSummary(t *testing.T) {
	summaries := []*hooks.RunSummary{
		{
			Target:   "win_chrome",
			Mode:     "remote",
			Duration: 3 * time.Second,
			Scenarios: []hooks.ScenarioResult{
				{Name: "home page renders", Outcome: hooks.OutcomePassed},
				{Name: "checkout", Outcome: hooks.OutcomeFailed, Error: "scenario panicked: boom\ngoroutine 1 [running]"},
			},
			Passed:        1,
			Failed:        1,
			TeardownError: "run teardown failed: tunnel hung",
		},
	}

	out := renderSummary(summaries)

	assert.Contains(t, out, "Run summary")
	assert.Contains(t, out, "win_chrome")
	assert.Contains(t, out, "home page renders")
	assert.Contains(t, out, "scenario panicked: boom")
	assert.NotContains(t, out, "goroutine 1")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "tunnel hung")

	assert.Contains(t, renderSummary(nil), "no targets were run")
}

func TestDescribeTarget(t *testing.T) {
	device, err := capabilities.Resolve("android_chrome", config.ModeRemote)
	require.NoError(t, err)
	assert.Contains(t, describeTarget(device), "on ")

	local, err := capabilities.Resolve("mobile_chrome", config.ModeLocal)
	require.NoError(t, err)
	assert.Equal(t, "chromium, mobile emulation", describeTarget(local))

	desktop, err := capabilities.Resolve("webkit", config.ModeLocal)
	require.NoError(t, err)
	assert.Equal(t, "webkit, desktop", describeTarget(desktop))
}
