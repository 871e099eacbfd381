package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/browser"
	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/config"
	"github.com/entrhq/sessionrig/pkg/hooks"
	"github.com/entrhq/sessionrig/pkg/logging"
	"github.com/entrhq/sessionrig/pkg/metrics"
	"github.com/entrhq/sessionrig/pkg/report"
	"github.com/entrhq/sessionrig/pkg/tunnel"
)

const metricsNamespace = "sessionrig"

type runOptions struct {
	targets string
	install bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the smoke scenarios against one or more targets",
		Long: `Run provisions one session per target, runs the smoke scenarios
sequentially against it and tears everything down.

With --targets, every target matching the comma-separated glob patterns is
run in turn and gets its own reports subdirectory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.targets, "targets", "", "comma-separated target globs, e.g. \"win_*,android_chrome\"")
	cmd.Flags().BoolVar(&opts.install, "install", false, "download the local browser engine before launching")
	return cmd
}

func (a *app) run(ctx context.Context, stdout, stderr io.Writer, opts *runOptions) error {
	cfg := a.cfg

	names := []string{cfg.Target}
	if opts.targets != "" {
		matched, err := capabilities.Match(opts.targets, cfg.Mode)
		if err != nil {
			return err
		}
		names = matched
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.Reports.Dir, "logs", "run.log")
	}
	logger, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting sessionrig",
		zap.String("version", version),
		zap.String("mode", string(cfg.Mode)),
		zap.Strings("targets", names),
	)

	var summaries []*hooks.RunSummary
	for _, name := range names {
		if ctx.Err() != nil {
			logger.Warn("run interrupted, skipping remaining targets", zap.String("next", name))
			break
		}
		targetCfg := targetConfig(cfg, name, len(names) > 1)
		summaries = append(summaries, runTarget(ctx, targetCfg, logger, opts.install))
	}

	fmt.Fprint(stdout, renderSummary(summaries))
	a.exitCode = exitCode(summaries)
	if len(summaries) < len(names) && a.exitCode == hooks.ExitPassed {
		a.exitCode = hooks.ExitFailed
	}
	return nil
}

// targetConfig copies base for one target. Matrix runs write each target's
// artifacts into a subdirectory named after it.
func targetConfig(base *config.Config, name string, matrix bool) *config.Config {
	cfg := *base
	cfg.Target = name
	if matrix {
		cfg.Reports.Dir = filepath.Join(base.Reports.Dir, name)
	}
	return &cfg
}

// runTarget wires one provisioner and its hooks and runs the smoke scenarios.
func runTarget(ctx context.Context, cfg *config.Config, logger *zap.Logger, install bool) *hooks.RunSummary {
	logger = logger.With(zap.String("target", cfg.Target))
	runID := logging.RunID()
	collector := metrics.NewCollector(metricsNamespace)

	driver := browser.NewPlaywrightDriver(browser.DriverOptions{
		InstallBrowsers: install && !cfg.Mode.IsRemote(),
		Browsers:        installBrowsers(cfg),
		Output:          zap.NewStdLog(logging.Component(logger, "playwright")).Writer(),
	})
	provisioner := browser.NewProvisioner(cfg, driver, logging.Component(logger, "provisioner"), collector, runID)

	coord := hooks.NewCoordinator(cfg, provisioner, hooks.Options{
		Capturer: report.NewCapturer(cfg.Reports.Dir, logging.Component(logger, "report"), collector),
		Tunnel:   tunnel.New(cfg, logging.Component(logger, "tunnel")),
		Metrics:  collector,
		Logger:   logging.Component(logger, "hooks"),
	})

	suite := hooks.NewSuite(coord, report.NewWriter(cfg.Reports.Dir), runID)
	return suite.Run(ctx, smokeScenarios(cfg, logging.Component(logger, "pages")))
}

// installBrowsers limits the engine download to the one the target drives.
func installBrowsers(cfg *config.Config) []string {
	target, err := capabilities.Resolve(cfg.Target, cfg.Mode)
	if err != nil {
		return nil
	}
	return []string{string(target.Engine)}
}

// exitCode is the most severe code across all targets.
func exitCode(summaries []*hooks.RunSummary) int {
	code := hooks.ExitPassed
	for _, s := range summaries {
		if c := s.ExitCode(); c > code {
			code = c
		}
	}
	return code
}
