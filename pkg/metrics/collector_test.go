package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("sessionrig")

	c.ConnectAttempt("win_chrome", errors.New("refused"))
	c.ConnectAttempt("win_chrome", errors.New("refused"))
	c.ConnectAttempt("win_chrome", nil)
	c.SessionAcquired("win_chrome", AcquireFresh)
	c.SessionAcquired("win_chrome", AcquireReused)
	c.SessionAcquired("win_chrome", AcquireReused)
	c.ScenarioFinished("failed")
	c.Diagnostic("screenshot", nil)
	c.TeardownFailure("page")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.connectAttempts.WithLabelValues("win_chrome", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectAttempts.WithLabelValues("win_chrome", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.acquisitions.WithLabelValues("win_chrome", AcquireReused)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.scenarios.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.diagnostics.WithLabelValues("screenshot", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.teardownFailures.WithLabelValues("page")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	c.ConnectAttempt("x", nil)
	c.SessionAcquired("x", AcquireFresh)
	c.ObserveProvision("x", time.Second)
	c.ScenarioFinished("passed")
	c.Diagnostic("status", nil)
	c.TeardownFailure("engine")

	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "metrics.prom")))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector("sessionrig")
	c.ObserveProvision("chrome", 1500*time.Millisecond)
	c.ScenarioFinished("passed")

	path := filepath.Join(t.TempDir(), "nested", "metrics.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.Contains(text, "sessionrig_scenarios_total"))
	assert.True(t, strings.Contains(text, "sessionrig_provision_duration_seconds_bucket"))
}
