package summary

import (
	"errors"
	"strings"
	"testing"

	"github.com/promptqa/promptqa/pkg/schema"
)

func TestComputeVerdictAllPass(t *testing.T) {
	results := []schema.StepExecutionResult{
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Pass}},
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Pass}},
	}
	if v := ComputeVerdict(results); v != schema.Pass {
		t.Fatalf("expected PASS, got %s", v)
	}
}

func TestComputeVerdictFailOnStepFailure(t *testing.T) {
	results := []schema.StepExecutionResult{
		{Success: false},
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Pass}},
	}
	if v := ComputeVerdict(results); v != schema.Fail {
		t.Fatalf("expected FAIL, got %s", v)
	}
}

func TestComputeVerdictFailOnEvaluationFail(t *testing.T) {
	results := []schema.StepExecutionResult{
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Fail}},
	}
	if v := ComputeVerdict(results); v != schema.Fail {
		t.Fatalf("expected FAIL, got %s", v)
	}
}

func TestComputeVerdictUncertainWhenNoFail(t *testing.T) {
	results := []schema.StepExecutionResult{
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Uncertain}},
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Pass}},
	}
	if v := ComputeVerdict(results); v != schema.Uncertain {
		t.Fatalf("expected UNCERTAIN, got %s", v)
	}
}

func TestComputeVerdictUncertainThenLaterFailStillFails(t *testing.T) {
	results := []schema.StepExecutionResult{
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Uncertain}},
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Fail}},
	}
	if v := ComputeVerdict(results); v != schema.Fail {
		t.Fatalf("expected FAIL, got %s", v)
	}
}

func TestExtractBugsOnStepFailure(t *testing.T) {
	results := []schema.StepExecutionResult{
		{
			StepIndex: 2,
			Step:      schema.Step{Type: schema.KindClick, Description: "click submit"},
			Success:   false,
			Capture: schema.CaptureFrame{
				PageErrors: []schema.PageError{{Message: "boom"}},
			},
		},
	}
	bugs := ExtractBugs(results)
	if len(bugs) != 1 {
		t.Fatalf("expected 1 bug, got %d", len(bugs))
	}
	if bugs[0].Severity != schema.SeverityCritical {
		t.Fatalf("expected critical severity, got %s", bugs[0].Severity)
	}
	if !strings.Contains(bugs[0].Evidence[0], "Page error: boom") {
		t.Fatalf("expected page error evidence, got %v", bugs[0].Evidence)
	}
}

func TestExtractBugsOnEvaluationFailSeverity(t *testing.T) {
	withPageError := []schema.StepExecutionResult{{
		StepIndex:  0,
		Success:    true,
		Evaluation: &schema.EvaluationResult{Result: schema.Fail, Reason: "broken"},
		Capture:    schema.CaptureFrame{PageErrors: []schema.PageError{{Message: "x"}}},
	}}
	bugs := ExtractBugs(withPageError)
	if bugs[0].Severity != schema.SeverityCritical {
		t.Fatalf("expected critical when page errors present, got %s", bugs[0].Severity)
	}

	withoutPageError := []schema.StepExecutionResult{{
		StepIndex:  0,
		Success:    true,
		Evaluation: &schema.EvaluationResult{Result: schema.Fail, Reason: "broken"},
	}}
	bugs = ExtractBugs(withoutPageError)
	if bugs[0].Severity != schema.SeverityMajor {
		t.Fatalf("expected major when no page errors, got %s", bugs[0].Severity)
	}
}

func TestExtractBugsNoneWhenAllPass(t *testing.T) {
	results := []schema.StepExecutionResult{
		{Success: true, Evaluation: &schema.EvaluationResult{Result: schema.Pass}},
	}
	if bugs := ExtractBugs(results); len(bugs) != 0 {
		t.Fatalf("expected no bugs, got %d", len(bugs))
	}
}

func TestPlannerErrorSummary(t *testing.T) {
	s := PlannerErrorSummary("run-1", "https://example.com", "do the thing", errors.New("both attempts invalid"))
	if s.Summary != schema.Fail {
		t.Fatalf("expected FAIL, got %s", s.Summary)
	}
	if !strings.HasPrefix(s.Bugs[0].Description, "Planner error") {
		t.Fatalf("expected description to start with Planner error, got %q", s.Bugs[0].Description)
	}
}
