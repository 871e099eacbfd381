package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/sessionrig/pkg/capabilities"
)

// DriverOptions configures the Playwright driver process.
type DriverOptions struct {
	// InstallBrowsers downloads local engines; remote-only runs skip it
	InstallBrowsers bool
	// Browsers restricts the installed engines (chromium, firefox, webkit)
	Browsers []string
	// Output receives installer output; nil discards it
	Output io.Writer
}

// PlaywrightDriver is the Driver backed by playwright-go.
type PlaywrightDriver struct {
	mu      sync.Mutex
	opts    DriverOptions
	pw      *playwright.Playwright
	stopped bool
}

// NewPlaywrightDriver creates a driver. The driver process starts on first use.
func NewPlaywrightDriver(opts DriverOptions) *PlaywrightDriver {
	return &PlaywrightDriver{opts: opts}
}

// start installs and runs Playwright once.
func (d *PlaywrightDriver) start() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return nil, fmt.Errorf("playwright driver already stopped")
	}
	if d.pw != nil {
		return d.pw, nil
	}

	out := d.opts.Output
	if out == nil {
		out = io.Discard
	}
	runOpts := &playwright.RunOptions{
		Verbose:             false,
		Stdout:              out,
		Stderr:              out,
		SkipInstallBrowsers: !d.opts.InstallBrowsers,
		Browsers:            d.opts.Browsers,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	d.pw = pw
	return pw, nil
}

func (d *PlaywrightDriver) browserType(engine capabilities.Engine) (playwright.BrowserType, error) {
	pw, err := d.start()
	if err != nil {
		return nil, err
	}

	switch engine {
	case capabilities.EngineChromium:
		return pw.Chromium, nil
	case capabilities.EngineWebKit:
		return pw.WebKit, nil
	case capabilities.EngineFirefox:
		return pw.Firefox, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

// Launch starts a local engine.
func (d *PlaywrightDriver) Launch(engine capabilities.Engine, opts LaunchOptions) (Browser, error) {
	bt, err := d.browserType(engine)
	if err != nil {
		return nil, err
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, err
	}
	return &pwBrowser{browser: b}, nil
}

// Connect attaches to a remote browser server.
func (d *PlaywrightDriver) Connect(engine capabilities.Engine, endpoint string, opts ConnectOptions) (Browser, error) {
	bt, err := d.browserType(engine)
	if err != nil {
		return nil, err
	}

	b, err := bt.Connect(endpoint, playwright.BrowserTypeConnectOptions{
		Headers: opts.Headers,
		Timeout: millis(opts.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return &pwBrowser{browser: b}, nil
}

// ConnectDevice attaches to a remote device. Chromium devices are reached over
// CDP; WebKit devices over the Playwright protocol.
func (d *PlaywrightDriver) ConnectDevice(engine capabilities.Engine, endpoint string, opts ConnectOptions) (Browser, error) {
	if engine != capabilities.EngineChromium {
		return d.Connect(engine, endpoint, opts)
	}

	bt, err := d.browserType(engine)
	if err != nil {
		return nil, err
	}

	b, err := bt.ConnectOverCDP(endpoint, playwright.BrowserTypeConnectOverCDPOptions{
		Headers: opts.Headers,
		Timeout: millis(opts.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return &pwBrowser{browser: b}, nil
}

// Stop shuts the driver process down. It is safe to call more than once.
func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.pw == nil {
		return nil
	}
	pw := d.pw
	d.pw = nil
	if err := pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// millis converts a duration to the float milliseconds Playwright expects.
// Zero leaves the Playwright default in place.
func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

type pwBrowser struct {
	browser playwright.Browser
}

func (b *pwBrowser) NewContext(opts ContextOptions) (BrowserContext, error) {
	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.DeviceScaleFactor > 0 {
		ctxOpts.DeviceScaleFactor = playwright.Float(opts.DeviceScaleFactor)
	}
	if opts.IsMobile {
		ctxOpts.IsMobile = playwright.Bool(true)
	}
	if opts.HasTouch {
		ctxOpts.HasTouch = playwright.Bool(true)
	}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	c, err := b.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, err
	}
	return &pwContext{context: c}, nil
}

func (b *pwBrowser) Close() error {
	return b.browser.Close()
}

type pwContext struct {
	context playwright.BrowserContext
}

func (c *pwContext) SetDefaultTimeout(timeout time.Duration) {
	c.context.SetDefaultTimeout(float64(timeout.Milliseconds()))
}

func (c *pwContext) SetDefaultNavigationTimeout(timeout time.Duration) {
	c.context.SetDefaultNavigationTimeout(float64(timeout.Milliseconds()))
}

func (c *pwContext) NewPage() (Page, error) {
	p, err := c.context.NewPage()
	if err != nil {
		return nil, err
	}
	return &pwPage{page: p}, nil
}

func (c *pwContext) Close() error {
	return c.context.Close()
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   millis(timeout),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return err
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: millis(timeout),
	})
}

func (p *pwPage) Fill(selector, text string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Fill(text, playwright.LocatorFillOptions{
		Timeout: millis(timeout),
	})
}

func (p *pwPage) InnerText(selector string, timeout time.Duration) (string, error) {
	return p.page.Locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: millis(timeout),
	})
}

func (p *pwPage) WaitForVisible(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
}

func (p *pwPage) WaitForLoad(timeout time.Duration) error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: millis(timeout),
	})
}

func (p *pwPage) Title() (string, error) {
	return p.page.Title()
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Evaluate(expression string, arg interface{}) (interface{}, error) {
	if arg == nil {
		return p.page.Evaluate(expression)
	}
	return p.page.Evaluate(expression, arg)
}

func (p *pwPage) Screenshot(fullPage bool) ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
}

func (p *pwPage) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}
