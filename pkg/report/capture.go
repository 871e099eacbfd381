// Package report writes run artifacts: failure screenshots and the aggregate
// JSON report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/metrics"
)

// Screenshotter is the only page capability the capturer needs.
type Screenshotter interface {
	Screenshot(fullPage bool) ([]byte, error)
}

// ArtifactCaptureError describes a screenshot that could not be taken or stored.
// It is logged, never returned from Capture.
type ArtifactCaptureError struct {
	Scenario string
	Path     string
	Err      error
}

func (e *ArtifactCaptureError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to capture screenshot for %q at %s: %v", e.Scenario, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to capture screenshot for %q: %v", e.Scenario, e.Err)
}

func (e *ArtifactCaptureError) Unwrap() error {
	return e.Err
}

// Capturer stores failure screenshots under a directory.
type Capturer struct {
	dir     string
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewCapturer creates a capturer writing into dir. The directory is created on
// first capture.
func NewCapturer(dir string, logger *zap.Logger, collector *metrics.Collector) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{
		dir:     dir,
		logger:  logger,
		metrics: collector,
		now:     time.Now,
	}
}

// Capture takes a full-page PNG and writes it to <dir>/<name>_<unix-millis>.png.
// The image is returned so callers can attach it to their own reports; on any
// failure a warning is logged and nil is returned.
func (c *Capturer) Capture(page Screenshotter, scenario string) []byte {
	if page == nil {
		c.warn(&ArtifactCaptureError{Scenario: scenario, Err: fmt.Errorf("no page")})
		return nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		c.warn(&ArtifactCaptureError{Scenario: scenario, Path: c.dir, Err: err})
		return nil
	}

	data, err := page.Screenshot(true)
	if err != nil {
		c.warn(&ArtifactCaptureError{Scenario: scenario, Err: err})
		return nil
	}

	path := filepath.Join(c.dir, FileName(scenario, c.now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.warn(&ArtifactCaptureError{Scenario: scenario, Path: path, Err: err})
		return nil
	}

	c.metrics.Diagnostic("screenshot", nil)
	c.logger.Info("screenshot saved", zap.String("scenario", scenario), zap.String("path", path))
	return data
}

func (c *Capturer) warn(err *ArtifactCaptureError) {
	c.metrics.Diagnostic("screenshot", err)
	c.logger.Warn("screenshot capture failed", zap.Error(err))
}

// FileName returns the screenshot file name for a scenario at a given time.
func FileName(scenario string, at time.Time) string {
	return fmt.Sprintf("%s_%d.png", SanitizeName(scenario), at.UnixMilli())
}

// SanitizeName replaces every character that is not an ASCII letter or digit
// with an underscore.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
