package browser

import (
	"time"

	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
)

// Driver starts or reaches browser engines. PlaywrightDriver is the production
// implementation; tests substitute fakes.
type Driver interface {
	// Launch starts a local engine
	Launch(engine capabilities.Engine, opts LaunchOptions) (Browser, error)

	// Connect reaches a remote desktop browser over the Playwright protocol
	Connect(engine capabilities.Engine, endpoint string, opts ConnectOptions) (Browser, error)

	// ConnectDevice reaches a remote mobile device on the device transport
	ConnectDevice(engine capabilities.Engine, endpoint string, opts ConnectOptions) (Browser, error)

	// Stop releases the driver itself once every browser is closed
	Stop() error
}

// Browser is an engine connection. Closing it invalidates every context and
// page created through it.
type Browser interface {
	NewContext(opts ContextOptions) (BrowserContext, error)
	Close() error
}

// BrowserContext is an isolated browsing context.
type BrowserContext interface {
	SetDefaultTimeout(timeout time.Duration)
	SetDefaultNavigationTimeout(timeout time.Duration)
	NewPage() (Page, error)
	Close() error
}

// Page is the surface exposed to page objects and lifecycle hooks.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	Fill(selector, text string, timeout time.Duration) error
	InnerText(selector string, timeout time.Duration) (string, error)
	WaitForVisible(selector string, timeout time.Duration) error
	WaitForLoad(timeout time.Duration) error
	Title() (string, error)
	URL() string

	// Evaluate runs a script in the page; arg is omitted when nil
	Evaluate(expression string, arg interface{}) (interface{}, error)

	// Screenshot captures a PNG image of the page
	Screenshot(fullPage bool) ([]byte, error)

	Close() error
}

// LaunchOptions configures a local launch.
type LaunchOptions struct {
	Headless bool
}

// ConnectOptions configures a remote connection.
type ConnectOptions struct {
	Headers map[string]string
	Timeout time.Duration
}

// ContextOptions configures the single browsing context of a session.
type ContextOptions struct {
	Viewport          config.Viewport
	DeviceScaleFactor float64
	IsMobile          bool
	HasTouch          bool
	UserAgent         string
}

// Mobile context defaults
const (
	MobileViewportWidth  = 375
	MobileViewportHeight = 812
	MobileScaleFactor    = 3

	mobileSafariUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	mobileChromeUA  = "Mozilla/5.0 (Linux; Android 12; SM-S901B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	livenessProbeJS = "() => 1"
)

// contextOptionsFor sizes the context per device class.
func contextOptionsFor(target capabilities.Target, viewport config.Viewport) ContextOptions {
	if !target.Mobile() {
		return ContextOptions{Viewport: viewport}
	}

	ua := mobileChromeUA
	if target.Engine == capabilities.EngineWebKit {
		ua = mobileSafariUA
	}

	return ContextOptions{
		Viewport:          config.Viewport{Width: MobileViewportWidth, Height: MobileViewportHeight},
		DeviceScaleFactor: MobileScaleFactor,
		IsMobile:          true,
		HasTouch:          true,
		UserAgent:         ua,
	}
}

// Connection is the engine connection of a session: exactly one of
// DesktopConnection or DeviceConnection.
type Connection interface {
	browser() Browser
}

// DesktopConnection is a local launch or a remote desktop browser.
type DesktopConnection struct {
	Browser Browser
	Remote  bool
}

func (c DesktopConnection) browser() Browser { return c.Browser }

// DeviceConnection is a cloud-hosted mobile device.
type DeviceConnection struct {
	Browser Browser
	Device  capabilities.Device
}

func (c DeviceConnection) browser() Browser { return c.Browser }

// describe returns a log-friendly label for a connection.
func describe(conn Connection) string {
	switch c := conn.(type) {
	case DesktopConnection:
		if c.Remote {
			return "remote desktop browser"
		}
		return "local browser"
	case DeviceConnection:
		return "device " + c.Device.Name
	default:
		return "unknown connection"
	}
}

// Handle is the live triple owned by a Provisioner.
type Handle struct {
	Conn      Connection
	Context   BrowserContext
	Page      Page
	Target    capabilities.Target
	CreatedAt time.Time
}
