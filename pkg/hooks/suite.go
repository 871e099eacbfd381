package hooks

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/report"
)

// ReportFile is the aggregate JSON report written after every run.
const ReportFile = "report.json"

// Exit codes returned by RunSummary.ExitCode.
const (
	ExitPassed      = 0
	ExitFailed      = 1
	ExitSetupFailed = 2
)

// Scenario is one unit of work executed against the acquired page.
type Scenario struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, sc *ScenarioContext) error
}

// ScenarioResult is the reported form of a finished scenario.
type ScenarioResult struct {
	Name       string        `json:"name"`
	Tags       []string      `json:"tags,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Screenshot bool          `json:"screenshot"`
}

// RunSummary is the outcome of Suite.Run and the body of report.json.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	Target     string           `json:"target"`
	Mode       string           `json:"mode"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Duration   time.Duration    `json:"duration"`
	Scenarios  []ScenarioResult `json:"scenarios"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	InfraError int              `json:"infra_errors"`

	SetupError    string `json:"setup_error,omitempty"`
	TeardownError string `json:"teardown_error,omitempty"`
	ReportPath    string `json:"-"`

	setupErr    error
	teardownErr error
}

// SetupErr returns the run setup failure, if any.
func (s *RunSummary) SetupErr() error {
	return s.setupErr
}

// TeardownErr returns the run teardown failure, if any. It never affects the
// exit code.
func (s *RunSummary) TeardownErr() error {
	return s.teardownErr
}

// ExitCode depends only on setup and scenario outcomes.
func (s *RunSummary) ExitCode() int {
	if s.setupErr != nil {
		return ExitSetupFailed
	}
	if s.Failed > 0 || s.InfraError > 0 {
		return ExitFailed
	}
	return ExitPassed
}

func (s *RunSummary) add(sc *ScenarioContext) {
	result := ScenarioResult{
		Name:       sc.Name,
		Tags:       sc.Tags,
		Outcome:    sc.Outcome,
		Duration:   sc.Duration,
		Screenshot: len(sc.Screenshot) > 0,
	}
	if sc.Err != nil {
		result.Error = sc.Err.Error()
	}
	s.Scenarios = append(s.Scenarios, result)

	switch sc.Outcome {
	case OutcomePassed:
		s.Passed++
	case OutcomeFailed:
		s.Failed++
	case OutcomeInfraError:
		s.InfraError++
	}
}

// Suite drives the coordinator's hooks around sequential scenarios.
type Suite struct {
	coord  *Coordinator
	writer *report.Writer
	runID  string
	logger *zap.Logger
}

// NewSuite creates a suite. A nil writer disables report.json.
func NewSuite(coord *Coordinator, writer *report.Writer, runID string) *Suite {
	return &Suite{
		coord:  coord,
		writer: writer,
		runID:  runID,
		logger: coord.logger,
	}
}

// Run executes every scenario in order and always runs run teardown.
func (s *Suite) Run(ctx context.Context, scenarios []Scenario) *RunSummary {
	cfg := s.coord.cfg
	summary := &RunSummary{
		RunID:     s.runID,
		Target:    cfg.Target,
		Mode:      string(cfg.Mode),
		StartedAt: time.Now(),
	}

	if err := s.coord.BeforeAll(ctx); err != nil {
		s.logger.Error("run setup failed", zap.Error(err))
		summary.setupErr = err
		summary.SetupError = err.Error()
	} else {
		for _, scenario := range scenarios {
			sc := s.runScenario(ctx, scenario)
			summary.add(sc)
		}
	}

	if err := s.coord.AfterAll(); err != nil {
		summary.teardownErr = err
		summary.TeardownError = err.Error()
	}

	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)

	if s.writer != nil && cfg.Reports.JSON {
		path, err := s.writer.WriteJSON(ReportFile, summary)
		if err != nil {
			s.logger.Warn("failed to write report", zap.Error(err))
		} else {
			summary.ReportPath = path
			s.logger.Info("report written", zap.String("dir", s.writer.Dir()), zap.String("file", ReportFile))
		}
	}

	return summary
}

func (s *Suite) runScenario(ctx context.Context, scenario Scenario) *ScenarioContext {
	sc := &ScenarioContext{
		Name:      scenario.Name,
		Tags:      scenario.Tags,
		StartedAt: time.Now(),
	}
	logger := s.logger.With(zap.String("scenario", scenario.Name))
	logger.Info("scenario started")

	if err := s.coord.BeforeScenario(ctx, sc); err == nil {
		if err := execute(ctx, scenario, sc); err != nil {
			sc.Fail(err)
		} else {
			sc.Outcome = OutcomePassed
		}
	}

	s.coord.AfterScenario(ctx, sc)
	sc.Duration = time.Since(sc.StartedAt)

	logger.Info("scenario finished",
		zap.String("outcome", string(sc.Outcome)),
		zap.Duration("duration", sc.Duration),
		zap.Error(sc.Err),
	)
	return sc
}

// execute runs the scenario body, turning a panic into a failure.
func execute(ctx context.Context, scenario Scenario, sc *ScenarioContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario panicked: %v\n%s", r, debug.Stack())
		}
	}()
	if scenario.Run == nil {
		return fmt.Errorf("scenario %q has no body", scenario.Name)
	}
	return scenario.Run(ctx, sc)
}
