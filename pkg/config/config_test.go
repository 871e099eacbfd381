package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "", want: ModeLocal},
		{input: "local", want: ModeLocal},
		{input: "remote", want: ModeRemote},
		{input: "BrowserStack", want: ModeRemote},
		{input: " browserstack ", want: ModeRemote},
		{input: "grid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing target", mutate: func(c *Config) { c.Target = "" }, field: "target", wantErr: true},
		{name: "zero viewport", mutate: func(c *Config) { c.Viewport.Width = 0 }, field: "viewport", wantErr: true},
		{name: "zero hook timeout", mutate: func(c *Config) { c.Timeouts.Hook = 0 }, field: "timeouts", wantErr: true},
		{name: "zero connect attempts", mutate: func(c *Config) { c.Retry.ConnectAttempts = 0 }, field: "retry", wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.Retry.DeviceDelay = -time.Second }, field: "retry", wantErr: true},
		{name: "tunnel without binary", mutate: func(c *Config) {
			c.Tunnel.Enabled = true
			c.Tunnel.Binary = ""
		}, field: "tunnel.binary", wantErr: true},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "grid" }, field: "mode", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestConfig_RequireCredentials(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("local mode should not need credentials: %v", err)
	}

	cfg.Mode = ModeRemote
	if err := cfg.RequireCredentials(); err == nil {
		t.Fatal("expected error without username")
	}

	cfg.Remote.Username = "user"
	err := cfg.RequireCredentials()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "remote.access_key" {
		t.Fatalf("expected access key error, got %v", err)
	}

	cfg.Remote.AccessKey = "key"
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeoutConfig_RemoteScaling(t *testing.T) {
	timeouts := DefaultConfig().Timeouts

	if got := timeouts.CommandTimeout(ModeLocal); got != 30*time.Second {
		t.Errorf("local command timeout: expected 30s, got %s", got)
	}
	if got := timeouts.CommandTimeout(ModeRemote); got != 60*time.Second {
		t.Errorf("remote command timeout: expected 60s, got %s", got)
	}
	if got := timeouts.NavigationTimeout(ModeRemote); got != 60*time.Second {
		t.Errorf("remote navigation timeout: expected 60s, got %s", got)
	}

	timeouts.RemoteMultiplier = 0
	if got := timeouts.NavigationTimeout(ModeRemote); got != 30*time.Second {
		t.Errorf("multiplier 0 should leave timeout unchanged, got %s", got)
	}
}
