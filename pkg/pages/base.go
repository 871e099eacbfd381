// Package pages provides the page-object base used by scenario code. Page
// objects only ever see the browser.Page surface.
package pages

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/browser"
	"github.com/entrhq/sessionrig/pkg/config"
)

// DisplayTimeout bounds IsDisplayed checks before remote scaling.
const DisplayTimeout = 5 * time.Second

// BasePage wraps a page with visibility waits and mode-aware timeouts.
type BasePage struct {
	page    browser.Page
	baseURL string
	logger  *zap.Logger

	command    time.Duration
	navigation time.Duration
	display    time.Duration
}

// NewBasePage binds a page to the configured base URL and timeouts.
func NewBasePage(page browser.Page, cfg *config.Config, logger *zap.Logger) *BasePage {
	if logger == nil {
		logger = zap.NewNop()
	}

	display := DisplayTimeout
	if cfg.Mode.IsRemote() && cfg.Timeouts.RemoteMultiplier > 1 {
		display *= time.Duration(cfg.Timeouts.RemoteMultiplier)
	}

	return &BasePage{
		page:       page,
		baseURL:    cfg.BaseURL,
		logger:     logger,
		command:    cfg.Timeouts.CommandTimeout(cfg.Mode),
		navigation: cfg.Timeouts.NavigationTimeout(cfg.Mode),
		display:    display,
	}
}

// Page returns the underlying page.
func (b *BasePage) Page() browser.Page {
	return b.page
}

// URL resolves path against the base URL. Absolute URLs pass through.
func (b *BasePage) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return b.baseURL
	}
	return strings.TrimRight(b.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Navigate loads path relative to the base URL.
func (b *BasePage) Navigate(path string) error {
	url := b.URL(path)
	b.logger.Debug("navigating", zap.String("url", url))
	if err := b.page.Goto(url, b.navigation); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitFor waits until selector is visible.
func (b *BasePage) WaitFor(selector string) error {
	if err := b.page.WaitForVisible(selector, b.command); err != nil {
		return fmt.Errorf("element %q not visible: %w", selector, err)
	}
	return nil
}

// Click waits for selector to be visible, then clicks it.
func (b *BasePage) Click(selector string) error {
	if err := b.WaitFor(selector); err != nil {
		return err
	}
	if err := b.page.Click(selector, b.command); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// Fill waits for selector to be visible, then types text into it.
func (b *BasePage) Fill(selector, text string) error {
	if err := b.WaitFor(selector); err != nil {
		return err
	}
	if err := b.page.Fill(selector, text, b.command); err != nil {
		return fmt.Errorf("failed to fill %q: %w", selector, err)
	}
	return nil
}

// GetText waits for selector to be visible and returns its inner text.
func (b *BasePage) GetText(selector string) (string, error) {
	if err := b.WaitFor(selector); err != nil {
		return "", err
	}
	text, err := b.page.InnerText(selector, b.command)
	if err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return text, nil
}

// IsDisplayed reports whether selector becomes visible within the display
// timeout. It never fails the caller.
func (b *BasePage) IsDisplayed(selector string) bool {
	if err := b.page.WaitForVisible(selector, b.display); err != nil {
		b.logger.Debug("element not displayed", zap.String("selector", selector), zap.Error(err))
		return false
	}
	return true
}

// WaitForPageLoad waits for DOMContentLoaded. A timeout is logged and ignored.
func (b *BasePage) WaitForPageLoad() {
	if err := b.page.WaitForLoad(b.navigation); err != nil {
		b.logger.Warn("page load timeout, continuing", zap.Error(err))
	}
}
