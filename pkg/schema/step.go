package schema

import "fmt"

// StepKind is the discriminant of the Step tagged union.
type StepKind string

const (
	KindGoto       StepKind = "goto"
	KindClick      StepKind = "click"
	KindType       StepKind = "type"
	KindSelect     StepKind = "select"
	KindUpload     StepKind = "upload"
	KindWait       StepKind = "wait"
	KindExpectText StepKind = "expect_text"
	KindPressKey   StepKind = "press_key"
)

// Step is a tagged-union record: one deterministic browser action plus a
// human description. It is kept as a single flat struct (not a Go interface
// hierarchy) because the planner produces it from untyped JSON that must be
// repaired *before* narrowing — see pkg/planner's FixupRawSteps.
type Step struct {
	Type        StepKind      `json:"type"`
	Description string        `json:"description"`
	Timeout     int           `json:"timeout,omitempty"` // milliseconds
	Selector    *SelectorHint `json:"selector,omitempty"`
	Value       string        `json:"value,omitempty"`
}

// Validate checks the per-type shape rules for each step kind.
func (s Step) Validate() *ValidationResult {
	r := newResult()

	switch s.Type {
	case KindGoto, KindClick, KindType, KindSelect, KindUpload, KindWait, KindExpectText, KindPressKey:
	default:
		r.addError("step: unknown type %q", s.Type)
		return r
	}

	if s.Description == "" {
		r.addError("step %s: description must not be empty", s.Type)
	}
	if s.Timeout < 0 {
		r.addError("step %s: timeout must be positive when present", s.Type)
	}

	switch s.Type {
	case KindGoto:
		if s.Value == "" {
			r.addError("step goto: value (URL) is required")
		}
	case KindClick:
		if s.Selector == nil {
			r.addError("step click: selector is required")
		}
	case KindType, KindSelect, KindUpload:
		if s.Selector == nil {
			r.addError("step %s: selector is required", s.Type)
		}
		if s.Value == "" {
			r.addError("step %s: value is required", s.Type)
		}
	case KindWait:
		if s.Selector == nil && s.Value == "" {
			r.addError("step wait: either selector or a numeric value is required")
		}
	case KindExpectText:
		if s.Value == "" {
			r.addError("step expect_text: value is required")
		}
	case KindPressKey:
		if s.Value == "" {
			r.addError("step press_key: value (key name) is required")
		}
	}

	if s.Selector != nil {
		sub := s.Selector.Validate()
		r.Errors = append(r.Errors, sub.Errors...)
		r.Warnings = append(r.Warnings, sub.Warnings...)
		if sub.HasErrors() {
			r.Valid = false
		}
	}

	return r
}

// ValidatePlan enforces the plan-level invariants: non-empty, bounded
// length, and the first step must be goto.
func ValidatePlan(steps []Step, maxSteps int) *ValidationResult {
	r := newResult()
	if len(steps) == 0 {
		r.addError("plan: must contain at least one step")
		return r
	}
	if maxSteps > 0 && len(steps) > maxSteps {
		r.addError("plan: %d steps exceeds max of %d", len(steps), maxSteps)
	}
	if steps[0].Type != KindGoto {
		r.addError("plan: first step must be goto, got %q", steps[0].Type)
	}
	for i, s := range steps {
		sub := s.Validate()
		for _, e := range sub.Errors {
			r.addError("step[%d]: %s", i, e)
		}
		r.Warnings = append(r.Warnings, sub.Warnings...)
	}
	return r
}

// ExpectedActionPhrase renders a short human phrase describing what a step
// is supposed to accomplish, used by the evaluator template.
func (s Step) ExpectedActionPhrase() string {
	switch s.Type {
	case KindGoto:
		return fmt.Sprintf("navigate to %s", s.Value)
	case KindClick:
		return "click the target element"
	case KindType:
		return fmt.Sprintf("type %q into the target element", s.Value)
	case KindSelect:
		return fmt.Sprintf("select %q in the target element", s.Value)
	case KindUpload:
		return fmt.Sprintf("upload %q to the target element", s.Value)
	case KindWait:
		return "wait for the target condition"
	case KindExpectText:
		return fmt.Sprintf("observe the text %q", s.Value)
	case KindPressKey:
		return fmt.Sprintf("press the %q key", s.Value)
	default:
		return "perform the action"
	}
}
