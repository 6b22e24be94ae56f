// Package summary computes the deterministic run verdict and extracts bug
// reports from a completed sequence of step results.
// The LLM never overrides these directly; it only supplies the per-step
// evaluations these functions fold over.
package summary

import (
	"fmt"

	"github.com/promptqa/promptqa/pkg/schema"
)

// ComputeVerdict folds a step result sequence into PASS/FAIL/UNCERTAIN
//. Any !success short-circuits to FAIL; any FAIL evaluation
// short-circuits to FAIL; an UNCERTAIN evaluation downgrades the result
// unless a later step proves FAIL.
func ComputeVerdict(results []schema.StepExecutionResult) schema.Verdict {
	sawUncertain := false
	for _, r := range results {
		if !r.Success {
			return schema.Fail
		}
		if r.Evaluation != nil {
			switch r.Evaluation.Result {
			case schema.Fail:
				return schema.Fail
			case schema.Uncertain:
				sawUncertain = true
			}
		}
	}
	if sawUncertain {
		return schema.Uncertain
	}
	return schema.Pass
}

// ExtractBugs walks the step results and emits a BugReport for every step
// that failed outright, or whose evaluation came back FAIL.
func ExtractBugs(results []schema.StepExecutionResult) []schema.BugReport {
	var bugs []schema.BugReport
	for _, r := range results {
		evidence := evidenceLines(r)

		switch {
		case !r.Success:
			bugs = append(bugs, schema.BugReport{
				StepIndex:   r.StepIndex,
				Description: fmt.Sprintf("Step %d (%s) failed: %s", r.StepIndex, r.Step.Type, r.Step.Description),
				Severity:    schema.SeverityCritical,
				Evidence:    evidence,
			})
		case r.Evaluation != nil && r.Evaluation.Result == schema.Fail:
			severity := schema.SeverityMajor
			if r.Capture.HasPageError() {
				severity = schema.SeverityCritical
			}
			bugs = append(bugs, schema.BugReport{
				StepIndex:   r.StepIndex,
				Description: fmt.Sprintf("Step %d (%s) evaluated FAIL: %s", r.StepIndex, r.Step.Type, r.Evaluation.Reason),
				Severity:    severity,
				Evidence:    evidence,
			})
		}
	}
	return bugs
}

// evidenceLines renders the fixed evidence-line formats: console errors,
// network failures, and page errors, in that order.
func evidenceLines(r schema.StepExecutionResult) []string {
	var lines []string
	for _, c := range r.Capture.ConsoleEntries {
		if c.Level == schema.ConsoleError {
			lines = append(lines, fmt.Sprintf("Console error: %s", c.Text))
		}
	}
	for _, n := range r.Capture.NetworkFailures {
		lines = append(lines, fmt.Sprintf("Network %s %s → %d", n.Method, n.URL, n.Status))
	}
	for _, p := range r.Capture.PageErrors {
		lines = append(lines, fmt.Sprintf("Page error: %s", p.Message))
	}
	return lines
}

// PlannerErrorSummary builds the degenerate RunSummary for a run that never
// got past planning.
func PlannerErrorSummary(runID, url, prompt string, err error) schema.RunSummary {
	return schema.RunSummary{
		RunID:   runID,
		URL:     url,
		Prompt:  prompt,
		Summary: schema.Fail,
		Bugs: []schema.BugReport{{
			StepIndex:   -1,
			Description: fmt.Sprintf("Planner error: %v", err),
			Severity:    schema.SeverityCritical,
		}},
	}
}
