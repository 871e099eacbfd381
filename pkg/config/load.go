package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envOverrides lists the environment variables that may override file values.
// Fields left unset keep the value from the lower layers.
type envOverrides struct {
	Env         string `envconfig:"ENV"`
	Browser     string `envconfig:"BROWSER"`
	BaseURL     string `envconfig:"BASE_URL"`
	Headless    string `envconfig:"HEADLESS"`
	Username    string `envconfig:"BROWSERSTACK_USERNAME"`
	AccessKey   string `envconfig:"BROWSERSTACK_ACCESS_KEY"`
	BuildName   string `envconfig:"BROWSERSTACK_BUILD_NAME"`
	ProjectName string `envconfig:"BROWSERSTACK_PROJECT_NAME"`
	Local       string `envconfig:"BROWSERSTACK_LOCAL"`
	LocalID     string `envconfig:"BROWSERSTACK_LOCAL_IDENTIFIER"`
	DeviceName  string `envconfig:"DEVICE_NAME"`
	OSVersion   string `envconfig:"OS_VERSION"`
	Command     string `envconfig:"COMMAND_TIMEOUT"`
	ReportsDir  string `envconfig:"REPORTS_DIR"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
}

// Load builds the configuration from defaults, an optional YAML file, an optional
// .env file and the process environment, in that order of precedence.
// An empty path skips the YAML layer. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ConfigurationError{Field: "file", Message: fmt.Sprintf("failed to parse %s", path), Err: err}
	}

	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return err
	}
	cfg.Mode = mode

	return nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return &ConfigurationError{Field: "env", Message: "failed to read environment", Err: err}
	}

	if env.Env != "" {
		mode, err := ParseMode(env.Env)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}

	setString(&cfg.Target, env.Browser)
	setString(&cfg.BaseURL, env.BaseURL)
	setString(&cfg.Remote.Username, env.Username)
	setString(&cfg.Remote.AccessKey, env.AccessKey)
	setString(&cfg.Remote.Build, env.BuildName)
	setString(&cfg.Remote.Project, env.ProjectName)
	setString(&cfg.Remote.DeviceName, env.DeviceName)
	setString(&cfg.Remote.OSVersion, env.OSVersion)
	setString(&cfg.Tunnel.Identifier, env.LocalID)
	setString(&cfg.Reports.Dir, env.ReportsDir)
	setString(&cfg.Logging.Level, env.LogLevel)

	if env.Command != "" {
		d, err := time.ParseDuration(env.Command)
		if err != nil || d <= 0 {
			return &ConfigurationError{Field: "COMMAND_TIMEOUT", Message: "must be a positive duration such as 45s", Err: err}
		}
		cfg.Timeouts.Command = d
	}

	if env.Headless != "" {
		v, err := strconv.ParseBool(env.Headless)
		if err != nil {
			return &ConfigurationError{Field: "HEADLESS", Message: "must be a boolean", Err: err}
		}
		cfg.Headless = v
	}

	if env.Local != "" {
		v, err := strconv.ParseBool(env.Local)
		if err != nil {
			return &ConfigurationError{Field: "BROWSERSTACK_LOCAL", Message: "must be a boolean", Err: err}
		}
		cfg.Tunnel.Enabled = v
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
