package schema

import "fmt"

// Exit codes, mapped by cmd/ onto process.Exit.
const (
	ExitPass          = 0
	ExitFail          = 1
	ExitUncertain     = 2
	ExitPlannerError  = 3
	ExitConfigOrOther = 4
)

// RunError is a typed error carrying the exit code the CLI layer should use,
// so cmd/ never has to pattern-match error strings to decide how to exit.
type RunError struct {
	Code int
	Err  error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError wraps err with an explicit exit code.
func NewRunError(code int, format string, args ...any) *RunError {
	return &RunError{Code: code, Err: fmt.Errorf(format, args...)}
}

// PlannerError is raised when both the initial plan and the repair attempt
// fail to produce a valid step list.
type PlannerError struct {
	Err error
}

func (e *PlannerError) Error() string {
	return fmt.Sprintf("planner error: %v", e.Err)
}

func (e *PlannerError) Unwrap() error {
	return e.Err
}

func (e *PlannerError) ExitCode() int {
	return ExitPlannerError
}
