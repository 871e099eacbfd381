package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePage struct {
	data  []byte
	err   error
	calls int
	full  bool
}

func (p *fakePage) Screenshot(fullPage bool) ([]byte, error) {
	p.calls++
	p.full = fullPage
	return p.data, p.err
}

func newTestCapturer(dir string) (*Capturer, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	c := NewCapturer(dir, zap.New(core), nil)
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return c, logs
}

func TestCapture_WritesOneFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenshots")
	c, _ := newTestCapturer(dir)
	page := &fakePage{data: []byte("png-bytes")}

	got := c.Capture(page, "Login: invalid password!")

	assert.Equal(t, []byte("png-bytes"), got)
	assert.True(t, page.full, "screenshots are full page")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Login__invalid_password__1700000000123.png", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestCapture_ScreenshotFailureIsOnlyAWarning(t *testing.T) {
	dir := t.TempDir()
	c, logs := newTestCapturer(dir)

	got := c.Capture(&fakePage{err: errors.New("target closed")}, "checkout")

	assert.Nil(t, got)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	warnings := logs.FilterMessage("screenshot capture failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zap.WarnLevel, warnings[0].Level)
}

func TestCapture_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	c, logs := newTestCapturer(filepath.Join(blocker, "screenshots"))
	page := &fakePage{data: []byte("png")}

	assert.Nil(t, c.Capture(page, "search"))
	assert.Equal(t, 0, page.calls)
	assert.Equal(t, 1, logs.FilterMessage("screenshot capture failed").Len())
}

func TestCapture_NilPage(t *testing.T) {
	c, logs := newTestCapturer(t.TempDir())
	assert.Nil(t, c.Capture(nil, "search"))
	assert.Equal(t, 1, logs.FilterMessage("screenshot capture failed").Len())
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "simple", want: "simple"},
		{in: "Add item to cart", want: "Add_item_to_cart"},
		{in: "a/b\\c:d", want: "a_b_c_d"},
		{in: "café #1", want: "caf___1"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestWriter_WriteJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(dir)
	assert.Equal(t, dir, w.Dir())

	path, err := w.WriteJSON("report.json", map[string]int{"passed": 2})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"passed": 2}`, string(data))
}
