package pages

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/browser"
	"github.com/entrhq/sessionrig/pkg/config"
)

// HomePage is the landing page of the application under test. The smoke
// scenario only relies on it rendering a body and a title.
type HomePage struct {
	*BasePage

	// Ready is the selector that proves the page rendered
	Ready string
}

// NewHomePage creates the home page object.
func NewHomePage(page browser.Page, cfg *config.Config, logger *zap.Logger) *HomePage {
	return &HomePage{
		BasePage: NewBasePage(page, cfg, logger),
		Ready:    "body",
	}
}

// Open navigates to the base URL and waits until the page is usable.
func (h *HomePage) Open() error {
	if err := h.Navigate("/"); err != nil {
		return err
	}
	h.WaitForPageLoad()
	return h.WaitFor(h.Ready)
}

// Title returns the document title, failing on an empty one.
func (h *HomePage) Title() (string, error) {
	title, err := h.Page().Title()
	if err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	if title == "" {
		return "", fmt.Errorf("page at %s has an empty title", h.Page().URL())
	}
	return title, nil
}
