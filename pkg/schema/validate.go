// Package schema defines the typed records that cross every boundary in
// PromptQA (planner output, runner results, evaluator verdicts, the final
// report). Validate methods are run on the records the LLM produces (the
// planner's plan, evaluator verdicts, agent responses); records built by
// code, such as runner results, are not re-validated.
package schema

import (
	"fmt"
	"strings"
)

// ValidationResult accumulates errors and warnings rather than failing on
// the first problem, so a caller can report everything wrong with a record
// in one pass.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func newResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any error was recorded.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings reports whether any warning was recorded.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Summary renders a short human-readable recap of the result.
func (r *ValidationResult) Summary() string {
	if r.Valid && !r.HasWarnings() {
		return "valid"
	}
	var b strings.Builder
	if r.HasErrors() {
		fmt.Fprintf(&b, "%d error(s)", len(r.Errors))
	}
	if r.HasWarnings() {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d warning(s)", len(r.Warnings))
	}
	return b.String()
}
