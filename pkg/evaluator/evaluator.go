// Package evaluator renders the evaluator prompt for one step's evidence,
// calls the LLM, and produces a validated schema.EvaluationResult that
// never propagates an error to its caller.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptqa/promptqa/pkg/classify"
	"github.com/promptqa/promptqa/pkg/llm"
	"github.com/promptqa/promptqa/pkg/prompts"
	"github.com/promptqa/promptqa/pkg/schema"
)

const (
	maxConsoleLines = 10
	maxNetworkLines = 10
	maxPageErrLines = 5
)

// Evaluator judges a single StepExecutionResult.
type Evaluator struct {
	client  llm.Client
	prompts *prompts.Store
}

// New constructs an Evaluator.
func New(client llm.Client, store *prompts.Store) *Evaluator {
	return &Evaluator{client: client, prompts: store}
}

// Evaluate renders the evaluator template, calls the LLM, and returns a
// validated EvaluationResult. It never returns an error: a second failed
// attempt falls back to schema.FallbackEvaluation().
func (e *Evaluator) Evaluate(ctx context.Context, result schema.StepExecutionResult) schema.EvaluationResult {
	vars := e.templateVars(result)

	system, err := e.prompts.Render(prompts.Evaluator, vars)
	if err != nil {
		return schema.FallbackEvaluation()
	}

	raw, err := e.client.Generate(ctx, system, "")
	if err != nil {
		return schema.FallbackEvaluation()
	}

	eval, verr := e.parseAndValidate(raw)
	if verr == nil {
		return eval
	}

	repairVars := map[string]string{
		"rawResponse": raw,
		"error":       verr.Error(),
	}
	repairPrompt, err := e.prompts.Render(prompts.EvaluatorRepair, repairVars)
	if err != nil {
		return schema.FallbackEvaluation()
	}

	raw2, err := e.client.Generate(ctx, system, repairPrompt)
	if err != nil {
		return schema.FallbackEvaluation()
	}

	eval, verr = e.parseAndValidate(raw2)
	if verr != nil {
		return schema.FallbackEvaluation()
	}
	return eval
}

// DetectHardFail re-exports classify.DetectHardFail, the deterministic
// hard-fail helper, so callers needn't import pkg/classify directly for this
// one check.
func DetectHardFail(result schema.StepExecutionResult) string {
	return classify.DetectHardFail(result)
}

func (e *Evaluator) templateVars(result schema.StepExecutionResult) map[string]string {
	return map[string]string{
		"description":     result.Step.Description,
		"expectedAction":  result.Step.ExpectedActionPhrase(),
		"success":         fmt.Sprintf("%t", result.Success),
		"url":             result.URL,
		"visibleText":     schema.TruncateVisibleText(result.VisibleText),
		"consoleErrors":   formatConsole(result.Capture.ConsoleEntries),
		"networkFailures": formatNetwork(result.Capture.NetworkFailures),
		"pageErrors":      formatPageErrors(result.Capture.PageErrors),
	}
}

func (e *Evaluator) parseAndValidate(raw string) (schema.EvaluationResult, error) {
	extracted := llm.ExtractJSON(raw, '{', '}')

	var eval schema.EvaluationResult
	if err := json.Unmarshal([]byte(extracted), &eval); err != nil {
		return schema.EvaluationResult{}, fmt.Errorf("parsing evaluation: %w", err)
	}

	eval.Confidence = schema.ClampConfidence(eval.Confidence)

	result := eval.Validate()
	if result.HasErrors() {
		return schema.EvaluationResult{}, fmt.Errorf("%s", result.Summary())
	}
	return eval, nil
}

func formatConsole(entries []schema.ConsoleEntry) string {
	if len(entries) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(entries))
	for i, c := range entries {
		if i >= maxConsoleLines {
			break
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", c.Level, c.Text))
	}
	return strings.Join(lines, "\n")
}

func formatNetwork(failures []schema.NetworkFailure) string {
	if len(failures) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(failures))
	for i, n := range failures {
		if i >= maxNetworkLines {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s -> %d %s", n.Method, n.URL, n.Status, n.StatusText))
	}
	return strings.Join(lines, "\n")
}

func formatPageErrors(errs []schema.PageError) string {
	if len(errs) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(errs))
	for i, p := range errs {
		if i >= maxPageErrLines {
			break
		}
		lines = append(lines, p.Message)
	}
	return strings.Join(lines, "\n")
}
