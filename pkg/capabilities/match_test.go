package capabilities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/sessionrig/pkg/config"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns string
		mode     config.Mode
		want     []string
	}{
		{name: "single glob", patterns: "win_*", mode: config.ModeRemote, want: []string{"win_chrome", "win_edge", "win_firefox"}},
		{name: "list", patterns: "android_chrome, mac_*", mode: config.ModeRemote, want: []string{"android_chrome", "mac_chrome", "mac_safari"}},
		{name: "case insensitive", patterns: "IOS_*", mode: config.ModeRemote, want: []string{"ios_safari"}},
		{name: "exact local", patterns: "firefox", mode: config.ModeLocal, want: []string{"firefox"}},
		{name: "character class", patterns: "[cw]*", mode: config.ModeLocal, want: []string{"chrome", "chromium", "webkit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.patterns, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_NoMatch(t *testing.T) {
	_, err := Match("linux_*", config.ModeRemote)

	var unsupported *UnsupportedTargetError
	assert.True(t, errors.As(err, &unsupported))
}

func TestMatch_EmptyPattern(t *testing.T) {
	_, err := Match(" , ", config.ModeRemote)
	assert.Error(t, err)
}

func TestNames_Sorted(t *testing.T) {
	names := Names(config.ModeLocal)
	assert.Equal(t, []string{"chrome", "chromium", "firefox", "mobile_chrome", "safari", "webkit"}, names)
}
