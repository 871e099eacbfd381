// Package browsertest provides in-memory fakes of the browser driver seam for
// tests of the provisioner, page objects and lifecycle hooks.
package browsertest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/sessionrig/pkg/browser"
	"github.com/entrhq/sessionrig/pkg/capabilities"
)

// ErrConnect is returned by Driver for scripted connection failures.
var ErrConnect = errors.New("fake: connection refused")

// ErrClosed is returned by operations on a closed fake.
var ErrClosed = errors.New("fake: target closed")

// PNG is the screenshot payload returned by Page by default.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// Driver is a scripted browser.Driver.
type Driver struct {
	mu sync.Mutex

	// ConnectFailures makes the first N remote connects fail with ErrConnect
	ConnectFailures int
	// LaunchErr fails every local launch
	LaunchErr error
	// StopErr is returned by Stop
	StopErr error
	// NewBrowser customizes each created browser
	NewBrowser func() *Browser

	Launches       int
	Connects       int
	DeviceConnects int
	Endpoints      []string
	Headers        []map[string]string
	Browsers       []*Browser
	Stopped        bool
}

func (d *Driver) newBrowser() *Browser {
	b := &Browser{}
	if d.NewBrowser != nil {
		b = d.NewBrowser()
	}
	d.Browsers = append(d.Browsers, b)
	return b
}

func (d *Driver) Launch(engine capabilities.Engine, opts browser.LaunchOptions) (browser.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Launches++
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	return d.newBrowser(), nil
}

func (d *Driver) connect(endpoint string, opts browser.ConnectOptions) (browser.Browser, error) {
	d.Endpoints = append(d.Endpoints, endpoint)
	d.Headers = append(d.Headers, opts.Headers)
	if d.ConnectFailures > 0 {
		d.ConnectFailures--
		return nil, ErrConnect
	}
	return d.newBrowser(), nil
}

func (d *Driver) Connect(engine capabilities.Engine, endpoint string, opts browser.ConnectOptions) (browser.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Connects++
	return d.connect(endpoint, opts)
}

func (d *Driver) ConnectDevice(engine capabilities.Engine, endpoint string, opts browser.ConnectOptions) (browser.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.DeviceConnects++
	return d.connect(endpoint, opts)
}

func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Stopped = true
	return d.StopErr
}

// LastBrowser returns the most recently created browser.
func (d *Driver) LastBrowser() *Browser {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.Browsers) == 0 {
		return nil
	}
	return d.Browsers[len(d.Browsers)-1]
}

// Browser is a fake engine connection.
type Browser struct {
	mu sync.Mutex

	ContextErr error
	CloseErr   error
	// NewPageFn customizes pages created by this browser's contexts
	NewPageFn func() *Page

	Contexts []*Context
	Closed   bool
}

func (b *Browser) NewContext(opts browser.ContextOptions) (browser.BrowserContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Closed {
		return nil, ErrClosed
	}
	if b.ContextErr != nil {
		return nil, b.ContextErr
	}
	c := &Context{Options: opts, browser: b}
	b.Contexts = append(b.Contexts, c)
	return c, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Closed = true
	return b.CloseErr
}

// IsClosed reports whether Close was called.
func (b *Browser) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Closed
}

// Context is a fake browsing context.
type Context struct {
	mu sync.Mutex

	Options           browser.ContextOptions
	Timeout           time.Duration
	NavigationTimeout time.Duration
	PageErr           error
	CloseErr          error

	Pages  []*Page
	Closed bool

	browser *Browser
}

func (c *Context) SetDefaultTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Timeout = timeout
}

func (c *Context) SetDefaultNavigationTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NavigationTimeout = timeout
}

func (c *Context) NewPage() (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Closed {
		return nil, ErrClosed
	}
	if c.PageErr != nil {
		return nil, c.PageErr
	}

	p := NewPage()
	if c.browser != nil && c.browser.NewPageFn != nil {
		p = c.browser.NewPageFn()
	}
	c.Pages = append(c.Pages, p)
	return p, nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Closed = true
	return c.CloseErr
}

// LastPage returns the most recently created page.
func (c *Context) LastPage() *Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Pages) == 0 {
		return nil
	}
	return c.Pages[len(c.Pages)-1]
}

// Evaluation is one recorded Evaluate call.
type Evaluation struct {
	Expression string
	Arg        interface{}
}

// Page is a fake page with a tiny element model: Text holds the inner text of
// every selector that exists, Hidden marks selectors that never become visible.
type Page struct {
	mu sync.Mutex

	Text   map[string]string
	Hidden map[string]bool

	// Dead fails every Evaluate, simulating a disconnected session
	Dead           bool
	EvaluateErr    error
	GotoErr        error
	ScreenshotErr  error
	CloseErr       error
	ScreenshotData []byte
	TitleText      string

	Visited     []string
	Clicks      []string
	Fills       map[string]string
	Evaluations []Evaluation
	Waits       []time.Duration
	Screenshots int
	Closed      bool
	url         string
}

// NewPage returns a live page with no elements.
func NewPage() *Page {
	return &Page{
		Text:      map[string]string{},
		Hidden:    map[string]bool{},
		Fills:     map[string]string{},
		TitleText: "fake",
		url:       "about:blank",
	}
}

func (p *Page) find(selector string) error {
	if p.Closed {
		return ErrClosed
	}
	if _, ok := p.Text[selector]; !ok {
		return fmt.Errorf("fake: timeout waiting for %q", selector)
	}
	return nil
}

func (p *Page) Goto(url string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return ErrClosed
	}
	p.Waits = append(p.Waits, timeout)
	if p.GotoErr != nil {
		return p.GotoErr
	}
	p.Visited = append(p.Visited, url)
	p.url = url
	return nil
}

func (p *Page) Click(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waits = append(p.Waits, timeout)
	if err := p.find(selector); err != nil {
		return err
	}
	p.Clicks = append(p.Clicks, selector)
	return nil
}

func (p *Page) Fill(selector, text string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waits = append(p.Waits, timeout)
	if err := p.find(selector); err != nil {
		return err
	}
	p.Fills[selector] = text
	return nil
}

func (p *Page) InnerText(selector string, timeout time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waits = append(p.Waits, timeout)
	if err := p.find(selector); err != nil {
		return "", err
	}
	return p.Text[selector], nil
}

func (p *Page) WaitForVisible(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waits = append(p.Waits, timeout)
	if err := p.find(selector); err != nil {
		return err
	}
	if p.Hidden[selector] {
		return fmt.Errorf("fake: %q not visible", selector)
	}
	return nil
}

func (p *Page) WaitForLoad(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Waits = append(p.Waits, timeout)
	if p.Closed {
		return ErrClosed
	}
	return nil
}

func (p *Page) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return "", ErrClosed
	}
	return p.TitleText, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Evaluate(expression string, arg interface{}) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Evaluations = append(p.Evaluations, Evaluation{Expression: expression, Arg: arg})
	if p.Closed {
		return nil, ErrClosed
	}
	if p.Dead {
		return nil, errors.New("fake: browser has been disconnected")
	}
	if p.EvaluateErr != nil {
		return nil, p.EvaluateErr
	}
	return 1, nil
}

func (p *Page) Screenshot(fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return nil, ErrClosed
	}
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.Screenshots++
	if p.ScreenshotData != nil {
		return p.ScreenshotData, nil
	}
	return PNG, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true
	return p.CloseErr
}

// Kill makes the page fail its liveness check.
func (p *Page) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Dead = true
}

// IsClosed reports whether Close was called.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Closed
}

// EvaluationsWithPrefix returns recorded string arguments starting with prefix.
func (p *Page) EvaluationsWithPrefix(prefix string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, e := range p.Evaluations {
		s, ok := e.Arg.(string)
		if ok && len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			out = append(out, s)
		}
	}
	return out
}

var (
	_ browser.Driver         = (*Driver)(nil)
	_ browser.Browser        = (*Browser)(nil)
	_ browser.BrowserContext = (*Context)(nil)
	_ browser.Page           = (*Page)(nil)
)
