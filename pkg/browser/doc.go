// Package browser provisions and tears down browser sessions through Playwright.
//
// A session is the triple of an engine connection, one browsing context and one
// page. The Provisioner owns at most one session per target and hands the same
// page out across scenarios for as long as it stays alive.
//
// # Architecture
//
// The package is built around three concepts:
//
// 1. Driver: the seam to Playwright (local launch, remote connect, device connect)
// 2. Connection: a DesktopConnection or a DeviceConnection, never both
// 3. Provisioner: the explicit session owner created once per run and target
//
// # Session Lifecycle
//
// Sessions follow this lifecycle:
//
//  1. Acquire: negotiate capabilities, launch or connect, create context and page
//  2. Reuse: later Acquire calls return the same page after a liveness check
//  3. Recreate: a dead page is replaced on the same context; if that fails the
//     whole session is rebuilt, at most once per call
//  4. Release: page, context and connection are closed best effort
//  5. Shutdown: Release plus stopping the driver, reporting every failed step
//
// # Remote Sessions
//
// Remote connections are retried with a fixed delay. Every failed attempt is
// logged with its index; when the policy is exhausted Acquire returns a
// ConnectionExhaustedError wrapping the last cause. Device targets use the
// per-platform device endpoint and the mobile context profile.
//
// # Example Usage
//
//	driver := browser.NewPlaywrightDriver(browser.DriverOptions{InstallBrowsers: true})
//	p := browser.NewProvisioner(cfg, driver, logger, collector, logging.RunID())
//	defer p.Shutdown()
//
//	page, err := p.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	err = page.Goto(cfg.BaseURL, cfg.Timeouts.NavigationTimeout(cfg.Mode))
package browser
