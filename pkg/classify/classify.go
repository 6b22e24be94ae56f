// Package classify implements the deterministic retry and hard-fail
// classification rules, plus the detectHardFail helper the evaluator
// delegates to.
package classify

import "github.com/promptqa/promptqa/pkg/schema"

// Reason is the outcome of classifying one step's result.
type Reason string

const (
	None            Reason = "none"
	HardFail        Reason = "hard_fail"
	ElementNotFound Reason = "element_not_found"
	ActionNoEffect  Reason = "action_no_effect"
)

// Retryable reports whether a classification warrants a retry.
func (r Reason) Retryable() bool {
	return r == ElementNotFound || r == ActionNoEffect
}

// DetectHardFail reports a non-empty reason when the step failed, or any
// page error occurred, or any 5xx status on a mutating method was
// observed. Unlike Classify, this does not distinguish success/failure
// combinations — any one of the three conditions is sufficient.
func DetectHardFail(result schema.StepExecutionResult) string {
	switch {
	case !result.Success:
		return "step execution failed"
	case result.Capture.HasPageError():
		return "uncaught page error"
	case result.Capture.HasMutating5xx():
		return "server error (5xx) on a mutating request"
	default:
		return ""
	}
}

// Classify implements the retry/hard-fail decision table given the current
// result and the previous step's visible text.
func Classify(result schema.StepExecutionResult, prevVisibleText string) Reason {
	if !result.Success {
		if result.Capture.HasPageError() || result.Capture.HasMutating5xx() {
			return HardFail
		}
		return ElementNotFound
	}

	if result.Capture.HasPageError() {
		return HardFail
	}

	if isRetryableNoEffectType(result.Step.Type) && result.VisibleText == prevVisibleText {
		return ActionNoEffect
	}

	return None
}

// isRetryableNoEffectType excludes goto/wait/expect_text from the
// action_no_effect check.
func isRetryableNoEffectType(t schema.StepKind) bool {
	switch t {
	case schema.KindGoto, schema.KindWait, schema.KindExpectText:
		return false
	default:
		return true
	}
}
