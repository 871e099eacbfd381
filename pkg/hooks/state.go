package hooks

import (
	"time"

	"github.com/entrhq/sessionrig/pkg/browser"
)

// State is the coordinator's position in the run lifecycle.
type State int

const (
	StateInit State = iota
	StateAcquiring
	StateReady
	StateReporting
	StateCleanup
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAcquiring:
		return "ACQUIRING"
	case StateReady:
		return "READY"
	case StateReporting:
		return "REPORTING"
	case StateCleanup:
		return "CLEANUP"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Outcome classifies a finished scenario.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
	// OutcomeInfraError means no usable page could be provided; it is never an
	// assertion failure.
	OutcomeInfraError Outcome = "infra-error"
)

// ScenarioContext lives for exactly one scenario. Page is a non-owning
// reference published by BeforeScenario and cleared by AfterScenario.
type ScenarioContext struct {
	Name string
	Tags []string

	Page browser.Page

	Outcome Outcome
	Err     error

	// Screenshot holds the failure image, if one was captured
	Screenshot []byte

	StartedAt time.Time
	Duration  time.Duration
}

// Fail records an assertion failure.
func (sc *ScenarioContext) Fail(err error) {
	sc.Outcome = OutcomeFailed
	sc.Err = err
}

// Failed reports whether the scenario did not pass.
func (sc *ScenarioContext) Failed() bool {
	return sc.Outcome == OutcomeFailed || sc.Outcome == OutcomeInfraError
}

// reason is the human-readable text sent with the remote status.
func (sc *ScenarioContext) reason() string {
	if sc.Err != nil {
		return sc.Err.Error()
	}
	if sc.Outcome == OutcomePassed {
		return "scenario passed"
	}
	return string(sc.Outcome)
}
