package hooks

import "fmt"

// InfrastructureError is a scenario setup failure: no usable page could be
// provided. It is reported apart from assertion failures.
type InfrastructureError struct {
	Scenario string
	Attempts uint
	Err      error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure error in scenario %q after %d attempt(s): %v", e.Scenario, e.Attempts, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// TeardownError aggregates the failed steps of run teardown. Err is the
// errors.Join of every failure.
type TeardownError struct {
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("run teardown failed: %v", e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
