package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
	"github.com/entrhq/sessionrig/pkg/hooks"
)

// app holds the state shared by every subcommand.
type app struct {
	configFile string
	target     string
	mode       string
	baseURL    string

	cfg      *config.Config
	exitCode int
}

// newRootCmd creates an isolated command tree so tests can run it repeatedly.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "sessionrig",
		Short:         "Provision browser and device sessions and run smoke scenarios against them",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "YAML config file (defaults and environment only when empty)")
	flags.StringVarP(&a.target, "target", "t", "", "execution target, e.g. chrome or android_chrome")
	flags.StringVarP(&a.mode, "mode", "m", "", "execution mode: local or remote")
	flags.StringVar(&a.baseURL, "base-url", "", "base URL of the application under test")

	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.AddCommand(
		newRunCmd(a),
		newTargetsCmd(a),
		newCapabilitiesCmd(a),
		newEnvCmd(a),
	)
	return root, a
}

// loadConfig layers command-line flags over config.Load and validates the
// result again.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		mode, err := config.ParseMode(a.mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if flags.Changed("target") {
		cfg.Target = a.target
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// execute runs the command tree and maps the outcome to a process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
		return exitCodeFor(err)
	}
	return a.exitCode
}

func exitCodeFor(err error) int {
	var cfgErr *config.ConfigurationError
	var unsupported *capabilities.UnsupportedTargetError
	if errors.As(err, &cfgErr) || errors.As(err, &unsupported) {
		return hooks.ExitSetupFailed
	}
	return hooks.ExitFailed
}
