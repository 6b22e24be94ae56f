package evaluator

import (
	"context"
	"testing"

	"github.com/promptqa/promptqa/pkg/llm"
	"github.com/promptqa/promptqa/pkg/prompts"
	"github.com/promptqa/promptqa/pkg/schema"
)

func testStore(t *testing.T) *prompts.Store {
	t.Helper()
	return prompts.NewStore("../../prompts")
}

func stepResult() schema.StepExecutionResult {
	return schema.StepExecutionResult{
		StepIndex:   0,
		Step:        schema.Step{Type: schema.KindClick, Description: "click submit"},
		Success:     true,
		URL:         "https://example.com/done",
		VisibleText: "Thank you",
	}
}

func TestEvaluateSuccess(t *testing.T) {
	mock := llm.NewMockClient([]string{`{"result":"PASS","confidence":0.9,"reason":"confirmation shown"}`})
	e := New(mock, testStore(t))

	eval := e.Evaluate(context.Background(), stepResult())
	if eval.Result != schema.Pass {
		t.Fatalf("expected PASS, got %s", eval.Result)
	}
	if eval.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", eval.Confidence)
	}
}

func TestEvaluateClampsConfidence(t *testing.T) {
	mock := llm.NewMockClient([]string{`{"result":"FAIL","confidence":5,"reason":"nope"}`})
	e := New(mock, testStore(t))

	eval := e.Evaluate(context.Background(), stepResult())
	if eval.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", eval.Confidence)
	}
}

func TestEvaluateRepairsOnInvalidFirstAttempt(t *testing.T) {
	mock := llm.NewMockClient([]string{
		"not json",
		`{"result":"UNCERTAIN","confidence":0.4,"reason":"ambiguous"}`,
	})
	e := New(mock, testStore(t))

	eval := e.Evaluate(context.Background(), stepResult())
	if eval.Result != schema.Uncertain {
		t.Fatalf("expected UNCERTAIN after repair, got %s", eval.Result)
	}
}

func TestEvaluateFallsBackNeverErrors(t *testing.T) {
	mock := llm.NewMockClient([]string{"not json", "still not json"})
	e := New(mock, testStore(t))

	eval := e.Evaluate(context.Background(), stepResult())
	fallback := schema.FallbackEvaluation()
	if eval.Result != fallback.Result || eval.Reason != fallback.Reason {
		t.Fatalf("expected fallback evaluation, got %+v", eval)
	}
}

func TestDetectHardFailOnPageError(t *testing.T) {
	r := stepResult()
	r.Capture.PageErrors = []schema.PageError{{Message: "TypeError: x is not a function"}}
	if reason := DetectHardFail(r); reason == "" {
		t.Fatal("expected a hard-fail reason")
	}
}

func TestDetectHardFailNoneWhenClean(t *testing.T) {
	if reason := DetectHardFail(stepResult()); reason != "" {
		t.Fatalf("expected no hard-fail reason, got %q", reason)
	}
}
