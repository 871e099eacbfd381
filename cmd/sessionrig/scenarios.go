package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/config"
	"github.com/entrhq/sessionrig/pkg/hooks"
	"github.com/entrhq/sessionrig/pkg/pages"
)

// smokeScenarios are the built-in checks run by the run command. The second
// scenario runs on the session left by the first, exercising reuse.
func smokeScenarios(cfg *config.Config, logger *zap.Logger) []hooks.Scenario {
	return []hooks.Scenario{
		{
			Name: "home page renders",
			Tags: []string{"@smoke"},
			Run: func(ctx context.Context, sc *hooks.ScenarioContext) error {
				home := pages.NewHomePage(sc.Page, cfg, logger)
				if err := home.Open(); err != nil {
					return err
				}
				title, err := home.Title()
				if err != nil {
					return err
				}
				logger.Info("home page rendered", zap.String("scenario", sc.Name), zap.String("title", title))
				return nil
			},
		},
		{
			Name: "home page survives a reload",
			Tags: []string{"@smoke", "@session"},
			Run: func(ctx context.Context, sc *hooks.ScenarioContext) error {
				home := pages.NewHomePage(sc.Page, cfg, logger)
				if err := home.Open(); err != nil {
					return err
				}
				if !home.IsDisplayed(home.Ready) {
					return fmt.Errorf("%q not displayed after reload", home.Ready)
				}
				return nil
			},
		},
	}
}
