// Package report renders a finished RunSummary into two artifact formats:
// a stable-ordered JSON record and a human-readable Markdown report.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptqa/promptqa/pkg/schema"
)

const reportVersion = "1.0"

// GenerateJSON builds the JSON report record. Field order within each
// object is decided by serializeJSON, not by this function.
func GenerateJSON(run schema.RunSummary, exitCode int) map[string]interface{} {
	steps := make([]interface{}, len(run.Steps))
	for i, s := range run.Steps {
		steps[i] = stepRecord(s)
	}

	bugs := make([]interface{}, len(run.Bugs))
	for i, b := range run.Bugs {
		bugs[i] = bugRecord(b)
	}

	return map[string]interface{}{
		"version":    reportVersion,
		"summary":    string(run.Summary),
		"runId":      run.RunID,
		"url":        run.URL,
		"prompt":     run.Prompt,
		"durationMs": run.DurationMs,
		"exitCode":   exitCode,
		"steps":      steps,
		"bugs":       bugs,
	}
}

func stepRecord(s schema.StepExecutionResult) map[string]interface{} {
	record := map[string]interface{}{
		"index":          s.StepIndex,
		"type":           string(s.Step.Type),
		"description":    s.Step.Description,
		"screenshotPath": s.ScreenshotPath,
		"errors":         pageErrorMessages(s.Capture.PageErrors),
	}
	if s.Evaluation != nil {
		record["result"] = string(s.Evaluation.Result)
		record["confidence"] = s.Evaluation.Confidence
		record["reason"] = s.Evaluation.Reason
	} else {
		record["result"] = nil
		record["confidence"] = nil
		record["reason"] = nil
	}
	return record
}

func bugRecord(b schema.BugReport) map[string]interface{} {
	return map[string]interface{}{
		"stepIndex":   b.StepIndex,
		"description": b.Description,
		"severity":    string(b.Severity),
		"evidence":    b.Evidence,
	}
}

func pageErrorMessages(errs []schema.PageError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

// SerializeJSON marshals record with two-space indentation. encoding/json
// sorts map[string]interface{} keys lexicographically at every level, which
// gives a byte-stable ordering across runs.
func SerializeJSON(record map[string]interface{}) ([]byte, error) {
	return json.MarshalIndent(record, "", "  ")
}

// GenerateMarkdown renders the fixed-format Markdown report: a header
// table, a per-step summary table, per-step detail sections, and a bug
// report section when non-empty.
func GenerateMarkdown(run schema.RunSummary, exitCode int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# PromptQA Report\n\n")
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run ID | %s |\n", escapePipes(run.RunID))
	fmt.Fprintf(&b, "| URL | %s |\n", escapePipes(run.URL))
	fmt.Fprintf(&b, "| Prompt | %s |\n", escapePipes(run.Prompt))
	fmt.Fprintf(&b, "| Verdict | %s |\n", run.Summary)
	fmt.Fprintf(&b, "| Exit code | %d |\n", exitCode)
	fmt.Fprintf(&b, "| Duration | %d ms |\n", run.DurationMs)
	if run.LoginFailed {
		fmt.Fprintf(&b, "| Login | failed |\n")
	}
	b.WriteString("\n")

	b.WriteString("## Steps\n\n")
	b.WriteString("| # | Type | Description | Success | Result | Confidence |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, s := range run.Steps {
		result, confidence := "-", "-"
		if s.Evaluation != nil {
			result = string(s.Evaluation.Result)
			confidence = fmt.Sprintf("%.2f", s.Evaluation.Confidence)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %t | %s | %s |\n",
			s.StepIndex, s.Step.Type, escapePipes(s.Step.Description), s.Success, result, confidence)
	}
	b.WriteString("\n")

	for _, s := range run.Steps {
		fmt.Fprintf(&b, "### Step %d: %s\n\n", s.StepIndex, escapePipes(s.Step.Description))
		fmt.Fprintf(&b, "- URL: %s\n", s.URL)
		fmt.Fprintf(&b, "- Success: %t\n", s.Success)
		if s.ScreenshotPath != "" {
			fmt.Fprintf(&b, "- Screenshot: %s\n", s.ScreenshotPath)
		}
		if s.Evaluation != nil {
			fmt.Fprintf(&b, "- Evaluation: %s (confidence %.2f) — %s\n", s.Evaluation.Result, s.Evaluation.Confidence, s.Evaluation.Reason)
		}
		if errs := pageErrorMessages(s.Capture.PageErrors); len(errs) > 0 {
			b.WriteString("- Errors:\n")
			for _, e := range errs {
				fmt.Fprintf(&b, "  - %s\n", e)
			}
		}
		b.WriteString("\n")
	}

	if len(run.Bugs) > 0 {
		b.WriteString("## Bug Reports\n\n")
		for _, bug := range run.Bugs {
			fmt.Fprintf(&b, "- **[%s]** step %d: %s\n", bug.Severity, bug.StepIndex, escapePipes(bug.Description))
			for _, e := range bug.Evidence {
				fmt.Fprintf(&b, "  - %s\n", e)
			}
		}
	}

	return b.String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
