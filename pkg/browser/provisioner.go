package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
	"github.com/entrhq/sessionrig/pkg/metrics"
	"github.com/entrhq/sessionrig/pkg/retry"
)

// Teardown step names
const (
	StepPage    = "page"
	StepContext = "context"
	StepEngine  = "engine"
	StepDriver  = "driver"
)

// Provisioner owns at most one live session (connection, context, page) for a
// single target and hands its page out across scenarios. It is safe for
// concurrent use; all operations are serialized.
type Provisioner struct {
	mu sync.Mutex

	cfg     *config.Config
	driver  Driver
	logger  *zap.Logger
	metrics *metrics.Collector
	capOpts capabilities.Options

	handle *Handle
	target *capabilities.Target
}

// NewProvisioner creates a provisioner for cfg.Target. Nothing is launched or
// connected until the first Acquire.
func NewProvisioner(cfg *config.Config, driver Driver, logger *zap.Logger, collector *metrics.Collector, runID string) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		cfg:     cfg,
		driver:  driver,
		logger:  logger.With(zap.String("target", cfg.Target)),
		metrics: collector,
		capOpts: capabilities.OptionsFromConfig(cfg, runID),
	}
}

// Acquire returns a usable page. A live session is reused; a session that
// fails its liveness check is recreated at most once per call, first at page
// level and then from scratch.
func (p *Provisioner) Acquire(ctx context.Context) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return p.provision(ctx, metrics.AcquireFresh)
	}

	if p.handle.Page != nil {
		err := checkLiveness(p.handle.Page)
		if err == nil {
			p.metrics.SessionAcquired(p.cfg.Target, metrics.AcquireReused)
			p.logger.Debug("reusing session", zap.String("connection", describe(p.handle.Conn)))
			return p.handle.Page, nil
		}
		p.logger.Warn("session invalid, recreating", zap.Error(&SessionInvalidError{Err: err}))
	}

	page, err := p.recreatePage()
	if err == nil {
		p.metrics.SessionAcquired(p.cfg.Target, metrics.AcquirePageRecreate)
		p.logger.Info("page recreated on existing connection")
		return page, nil
	}

	p.logger.Warn("page recreation failed, reprovisioning", zap.Error(err))
	p.closeHandle()
	return p.provision(ctx, metrics.AcquireFullRecreate)
}

// checkLiveness runs a trivial script on the page.
func checkLiveness(page Page) error {
	_, err := page.Evaluate(livenessProbeJS, nil)
	return err
}

// recreatePage opens a new page in the existing context.
func (p *Provisioner) recreatePage() (Page, error) {
	h := p.handle
	if h.Context == nil {
		return nil, errors.New("no browser context")
	}

	if h.Page != nil {
		if err := h.Page.Close(); err != nil {
			p.logger.Debug("closing stale page failed", zap.Error(err))
		}
		h.Page = nil
	}

	page, err := h.Context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if err := checkLiveness(page); err != nil {
		_ = page.Close()
		return nil, &SessionInvalidError{Err: err}
	}

	h.Page = page
	return page, nil
}

// provision builds a fresh session. On any failure the partial session is
// discarded and no handle is recorded.
func (p *Provisioner) provision(ctx context.Context, kind string) (Page, error) {
	start := time.Now()

	target, desc, err := capabilities.Negotiate(p.cfg.Target, p.cfg.Mode, p.capOpts)
	if err != nil {
		return nil, err
	}
	p.target = &target

	p.logger.Info("provisioning session",
		zap.Stringer("resolved", target),
		zap.Int("capabilities", desc.Len()),
	)

	conn, err := p.connect(ctx, target, desc)
	if err != nil {
		return nil, err
	}

	h := &Handle{Conn: conn, Target: target, CreatedAt: time.Now()}

	if err := ctx.Err(); err != nil {
		p.discard(h)
		return nil, err
	}

	bctx, err := conn.browser().NewContext(contextOptionsFor(target, p.cfg.Viewport))
	if err != nil {
		p.discard(h)
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	h.Context = bctx

	bctx.SetDefaultTimeout(p.cfg.Timeouts.CommandTimeout(p.cfg.Mode))
	bctx.SetDefaultNavigationTimeout(p.cfg.Timeouts.NavigationTimeout(p.cfg.Mode))

	page, err := bctx.NewPage()
	if err != nil {
		p.discard(h)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	h.Page = page

	p.handle = h
	p.metrics.SessionAcquired(p.cfg.Target, kind)
	p.metrics.ObserveProvision(p.cfg.Target, time.Since(start))
	p.logger.Info("session ready",
		zap.String("connection", describe(conn)),
		zap.Bool("mobile", target.Mobile()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}

// connect launches locally or connects remotely with the configured retry policy.
func (p *Provisioner) connect(ctx context.Context, target capabilities.Target, desc capabilities.Descriptor) (Connection, error) {
	if !target.Remote {
		b, err := p.driver.Launch(target.Engine, LaunchOptions{Headless: p.cfg.Headless})
		if err != nil {
			return nil, fmt.Errorf("failed to launch %s: %w", target.Engine, err)
		}
		return DesktopConnection{Browser: b}, nil
	}

	endpoint, err := Endpoint(p.cfg.Remote, target, desc)
	if err != nil {
		return nil, err
	}
	opts := ConnectOptions{
		Headers: AuthHeaders(p.cfg.Remote),
		Timeout: p.cfg.Timeouts.Connect,
	}

	maxAttempts := p.cfg.Retry.ConnectAttempts
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		Delay:       p.cfg.Retry.ConnectDelay,
		OnFailure: func(attempt uint, err error) {
			p.metrics.ConnectAttempt(p.cfg.Target, err)
			p.logger.Warn("remote connection attempt failed",
				zap.Uint("attempt", attempt),
				zap.Uint("max_attempts", maxAttempts),
				zap.Error(err),
			)
		},
	}

	b, attempts, err := retry.Do(ctx, policy, func(ctx context.Context) (Browser, error) {
		if target.IsMobileDevice() {
			return p.driver.ConnectDevice(target.Engine, endpoint, opts)
		}
		return p.driver.Connect(target.Engine, endpoint, opts)
	})
	if err != nil {
		p.logger.Error("remote connection exhausted", zap.Uint("attempts", attempts), zap.Error(err))
		return nil, &ConnectionExhaustedError{Target: target.Name, Attempts: attempts, Last: err}
	}
	p.metrics.ConnectAttempt(p.cfg.Target, nil)

	if target.IsMobileDevice() {
		return DeviceConnection{Browser: b, Device: *target.Device}, nil
	}
	return DesktopConnection{Browser: b, Remote: true}, nil
}

// discard closes a partially built session and logs what failed.
func (p *Provisioner) discard(h *Handle) {
	for _, step := range closeSteps(h) {
		p.logger.Debug("discarding partial session failed", zap.String("step", step.Step), zap.Error(step.Err))
	}
}

// closeSteps closes page, context and connection in that order. Every step is
// attempted regardless of earlier failures.
func closeSteps(h *Handle) []*StepError {
	var failed []*StepError
	if h == nil {
		return nil
	}
	if h.Page != nil {
		if err := h.Page.Close(); err != nil {
			failed = append(failed, &StepError{Step: StepPage, Err: err})
		}
		h.Page = nil
	}
	if h.Context != nil {
		if err := h.Context.Close(); err != nil {
			failed = append(failed, &StepError{Step: StepContext, Err: err})
		}
		h.Context = nil
	}
	if h.Conn != nil {
		if err := closeConnection(h.Conn); err != nil {
			failed = append(failed, &StepError{Step: StepEngine, Err: err})
		}
		h.Conn = nil
	}
	return failed
}

func closeConnection(conn Connection) error {
	switch c := conn.(type) {
	case DesktopConnection:
		return c.Browser.Close()
	case DeviceConnection:
		return c.Browser.Close()
	default:
		return fmt.Errorf("unknown connection type %T", conn)
	}
}

// closeHandle tears the current session down and forgets it.
func (p *Provisioner) closeHandle() []*StepError {
	if p.handle == nil {
		return nil
	}
	failed := closeSteps(p.handle)
	p.handle = nil
	for _, step := range failed {
		p.metrics.TeardownFailure(step.Step)
		p.logger.Warn("teardown step failed", zap.String("step", step.Step), zap.Error(step.Err))
	}
	return failed
}

// Release closes the session, best effort. It never fails; each failed step
// is logged and the handle is cleared.
func (p *Provisioner) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return
	}
	p.closeHandle()
	p.logger.Info("session released")
}

// Shutdown releases the session and stops the driver. Unlike Release it
// reports every failed step as a TeardownError.
func (p *Provisioner) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	failed := p.closeHandle()
	if err := p.driver.Stop(); err != nil {
		p.metrics.TeardownFailure(StepDriver)
		failed = append(failed, &StepError{Step: StepDriver, Err: err})
	}

	if len(failed) > 0 {
		return &TeardownError{Steps: failed}
	}
	return nil
}

// ClosePage closes only the page, keeping the connection and context. The
// next Acquire opens a new page on the same connection.
func (p *Provisioner) ClosePage() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil || p.handle.Page == nil {
		return nil
	}
	err := p.handle.Page.Close()
	p.handle.Page = nil
	if err != nil {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}

// ReportStatus sends the scenario outcome to the remote session. It only
// makes sense for remote targets; callers decide.
func (p *Provisioner) ReportStatus(status Status, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil || p.handle.Page == nil {
		return &StatusReportError{Status: status, Err: ErrNoActivePage}
	}
	if err := sendStatus(p.handle.Page, status, reason); err != nil {
		return &StatusReportError{Status: status, Err: err}
	}
	return nil
}

// Page returns the current page, or nil when none is open.
func (p *Provisioner) Page() Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return nil
	}
	return p.handle.Page
}

// Connection returns the live connection, or nil.
func (p *Provisioner) Connection() Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return nil
	}
	return p.handle.Conn
}

// Target returns the target resolved by the last provision.
func (p *Provisioner) Target() (capabilities.Target, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.target == nil {
		return capabilities.Target{}, false
	}
	return *p.target, true
}
