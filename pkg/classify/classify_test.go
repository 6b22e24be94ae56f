package classify

import (
	"testing"

	"github.com/promptqa/promptqa/pkg/schema"
)

func result(success bool, stepType schema.StepKind, visibleText string, pageErr bool, mutating5xx bool) schema.StepExecutionResult {
	frame := schema.CaptureFrame{}
	if pageErr {
		frame.PageErrors = append(frame.PageErrors, schema.PageError{Message: "boom"})
	}
	if mutating5xx {
		frame.NetworkFailures = append(frame.NetworkFailures, schema.NetworkFailure{
			URL: "https://example.com/api", Status: 500, Method: "POST",
		})
	}
	return schema.StepExecutionResult{
		Step:        schema.Step{Type: stepType},
		Success:     success,
		VisibleText: visibleText,
		Capture:     frame,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name            string
		result          schema.StepExecutionResult
		prevVisibleText string
		want            Reason
	}{
		{
			name:   "success with page error is hard fail",
			result: result(true, schema.KindClick, "same text", true, false),
			want:   HardFail,
		},
		{
			name:   "failure with mutating 5xx is hard fail",
			result: result(false, schema.KindClick, "text", false, true),
			want:   HardFail,
		},
		{
			name:   "failure otherwise is element not found",
			result: result(false, schema.KindClick, "text", false, false),
			want:   ElementNotFound,
		},
		{
			name:            "success, no visible change, retryable type is action no effect",
			result:          result(true, schema.KindClick, "unchanged", false, false),
			prevVisibleText: "unchanged",
			want:            ActionNoEffect,
		},
		{
			name:            "success, no visible change, but goto is exempt",
			result:          result(true, schema.KindGoto, "unchanged", false, false),
			prevVisibleText: "unchanged",
			want:            None,
		},
		{
			name:            "success, no visible change, but wait is exempt",
			result:          result(true, schema.KindWait, "unchanged", false, false),
			prevVisibleText: "unchanged",
			want:            None,
		},
		{
			name:            "success, no visible change, but expect_text is exempt",
			result:          result(true, schema.KindExpectText, "unchanged", false, false),
			prevVisibleText: "unchanged",
			want:            None,
		},
		{
			name:            "success with visible change is none",
			result:          result(true, schema.KindClick, "new text", false, false),
			prevVisibleText: "old text",
			want:            None,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.result, tc.prevVisibleText)
			if got != tc.want {
				t.Errorf("Classify() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReasonRetryable(t *testing.T) {
	cases := []struct {
		reason Reason
		want   bool
	}{
		{None, false},
		{HardFail, false},
		{ElementNotFound, true},
		{ActionNoEffect, true},
	}
	for _, tc := range cases {
		if got := tc.reason.Retryable(); got != tc.want {
			t.Errorf("%q.Retryable() = %v, want %v", tc.reason, got, tc.want)
		}
	}
}

func TestDetectHardFail(t *testing.T) {
	cases := []struct {
		name   string
		result schema.StepExecutionResult
		want   bool
	}{
		{
			name:   "step failed",
			result: result(false, schema.KindClick, "text", false, false),
			want:   true,
		},
		{
			name:   "page error",
			result: result(true, schema.KindClick, "text", true, false),
			want:   true,
		},
		{
			name:   "mutating 5xx",
			result: result(true, schema.KindClick, "text", false, true),
			want:   true,
		},
		{
			name:   "clean success",
			result: result(true, schema.KindClick, "text", false, false),
			want:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectHardFail(tc.result) != ""
			if got != tc.want {
				t.Errorf("DetectHardFail() non-empty = %v, want %v", got, tc.want)
			}
		})
	}
}
