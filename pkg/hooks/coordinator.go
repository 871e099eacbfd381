// Package hooks binds session provisioning and teardown to scenario and run
// boundaries.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/browser"
	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
	"github.com/entrhq/sessionrig/pkg/metrics"
	"github.com/entrhq/sessionrig/pkg/report"
	"github.com/entrhq/sessionrig/pkg/retry"
	"github.com/entrhq/sessionrig/pkg/tunnel"
)

// MetricsFile is the Prometheus textfile written at run teardown.
const MetricsFile = "metrics.prom"

// Session is the provisioner surface the coordinator drives.
type Session interface {
	Acquire(ctx context.Context) (browser.Page, error)
	ClosePage() error
	ReportStatus(status browser.Status, reason string) error
	Connection() browser.Connection
	Shutdown() error
}

// Options holds the coordinator's collaborators. Nil fields get no-op defaults.
type Options struct {
	Capturer *report.Capturer
	Tunnel   tunnel.Tunnel
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// Coordinator runs the setup and teardown hooks for one provisioner. Scenarios
// must be executed sequentially.
type Coordinator struct {
	cfg      *config.Config
	session  Session
	capturer *report.Capturer
	tunnel   tunnel.Tunnel
	metrics  *metrics.Collector
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	target capabilities.Target
}

// NewCoordinator creates a coordinator in state INIT.
func NewCoordinator(cfg *config.Config, session Session, opts Options) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		session:  session,
		capturer: opts.Capturer,
		tunnel:   opts.Tunnel,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.tunnel == nil {
		c.tunnel = tunnel.Nop{}
	}
	if c.capturer == nil {
		c.capturer = report.NewCapturer(cfg.Reports.Dir, c.logger, c.metrics)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// BeforeAll validates credentials and the target before any session work, then
// starts the tunnel.
func (c *Coordinator) BeforeAll(ctx context.Context) error {
	if err := c.cfg.RequireCredentials(); err != nil {
		return err
	}

	target, err := capabilities.Resolve(c.cfg.Target, c.cfg.Mode)
	if err != nil {
		return &config.ConfigurationError{
			Field:   "target",
			Message: fmt.Sprintf("unsupported target %q", c.cfg.Target),
			Err:     err,
		}
	}
	c.target = target

	if err := c.tunnel.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tunnel: %w", err)
	}

	c.logger.Info("run setup complete",
		zap.String("mode", string(c.cfg.Mode)),
		zap.Stringer("target", target),
	)
	return nil
}

// BeforeScenario acquires a page and publishes it into sc. Device targets get
// a bounded retry loop; everything else a single attempt. The hook timeout
// bounds the whole call.
func (c *Coordinator) BeforeScenario(ctx context.Context, sc *ScenarioContext) error {
	c.setState(StateAcquiring)

	hookCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeouts.Hook)
	defer cancel()

	page, attempts, err := retry.Do(hookCtx, c.acquirePolicy(sc.Name), c.session.Acquire)
	if err != nil {
		infraErr := &InfrastructureError{Scenario: sc.Name, Attempts: attempts, Err: err}
		sc.Outcome = OutcomeInfraError
		sc.Err = infraErr
		c.logger.Error("scenario setup failed", zap.String("scenario", sc.Name), zap.Error(err))
		return infraErr
	}

	sc.Page = page
	c.setState(StateReady)
	c.logger.Debug("scenario ready", zap.String("scenario", sc.Name))
	return nil
}

func (c *Coordinator) acquirePolicy(scenario string) retry.Policy {
	if !c.target.IsMobileDevice() {
		return retry.Once
	}

	maxAttempts := c.cfg.Retry.DeviceAttempts
	return retry.Policy{
		MaxAttempts: maxAttempts,
		Delay:       c.cfg.Retry.DeviceDelay,
		RetryIf: func(err error) bool {
			var unsupported *capabilities.UnsupportedTargetError
			return !errors.As(err, &unsupported)
		},
		OnFailure: func(attempt uint, err error) {
			c.logger.Warn("device acquisition attempt failed",
				zap.String("scenario", scenario),
				zap.Uint("attempt", attempt),
				zap.Uint("max_attempts", maxAttempts),
				zap.Error(err),
			)
		},
	}
}

// AfterScenario captures diagnostics for the outcome in sc. Diagnostic
// failures are logged and never returned. The page reference is always
// cleared.
func (c *Coordinator) AfterScenario(ctx context.Context, sc *ScenarioContext) {
	c.setState(StateReporting)
	defer func() {
		sc.Page = nil
		c.metrics.ScenarioFinished(string(sc.Outcome))
		c.setState(StateInit)
	}()

	if sc.Outcome == "" {
		sc.Outcome = OutcomePassed
		if sc.Err != nil {
			sc.Outcome = OutcomeFailed
		}
	}

	hookCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeouts.Hook)
	defer cancel()

	if sc.Outcome == OutcomeFailed && sc.Page != nil && c.cfg.Reports.Screenshots {
		sc.Screenshot = c.capturer.Capture(sc.Page, sc.Name)
	}

	if c.cfg.Mode.IsRemote() && sc.Page != nil {
		if err := hookCtx.Err(); err != nil {
			c.logger.Warn("skipping status report", zap.String("scenario", sc.Name), zap.Error(err))
		} else {
			c.reportStatus(sc)
		}
	}

	switch c.session.Connection().(type) {
	case browser.DeviceConnection:
		if err := c.session.ClosePage(); err != nil {
			c.logger.Warn("failed to close device page", zap.String("scenario", sc.Name), zap.Error(err))
		}
	case browser.DesktopConnection, nil:
		// kept open for the next scenario
	}
}

func (c *Coordinator) reportStatus(sc *ScenarioContext) {
	status := browser.StatusPassed
	if sc.Failed() {
		status = browser.StatusFailed
	}

	err := c.session.ReportStatus(status, sc.reason())
	c.metrics.Diagnostic("status", err)
	if err != nil {
		c.logger.Warn("status report failed", zap.String("scenario", sc.Name), zap.Error(err))
		return
	}
	c.logger.Debug("status reported", zap.String("scenario", sc.Name), zap.String("status", string(status)))
}

// AfterAll releases the session, stops the driver and the tunnel, and writes
// the metrics textfile. Every step runs; failures are returned together as a
// TeardownError.
func (c *Coordinator) AfterAll() error {
	c.setState(StateCleanup)
	start := time.Now()

	var errs []error
	if err := c.session.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := c.tunnel.Stop(); err != nil {
		c.metrics.TeardownFailure("tunnel")
		errs = append(errs, fmt.Errorf("failed to stop tunnel: %w", err))
	}
	if c.cfg.Reports.Metrics && c.metrics != nil {
		if err := c.metrics.WriteTextfile(filepath.Join(c.cfg.Reports.Dir, MetricsFile)); err != nil {
			errs = append(errs, err)
		}
	}

	c.setState(StateDone)

	if len(errs) > 0 {
		err := &TeardownError{Err: errors.Join(errs...)}
		c.logger.Error("run teardown failed", zap.Error(err))
		return err
	}
	c.logger.Info("run teardown complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}
