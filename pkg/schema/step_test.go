package schema

import "testing"

func TestSelectorHintRoleRequiresRole(t *testing.T) {
	h := SelectorHint{Strategy: StrategyRole, Value: "submit"}
	r := h.Validate()
	if !r.HasErrors() {
		t.Fatal("expected error when strategy=role and role is absent")
	}
}

func TestSelectorHintValid(t *testing.T) {
	tests := []SelectorHint{
		{Strategy: StrategyTestID, Value: "login-btn"},
		{Strategy: StrategyRole, Value: "submit", Role: "button"},
		{Strategy: StrategyText, Value: "Sign in"},
		{Strategy: StrategyCSS, Value: "#submit"},
	}
	for _, h := range tests {
		if r := h.Validate(); r.HasErrors() {
			t.Errorf("%+v: unexpected errors %v", h, r.Errors)
		}
	}
}

func TestStepValidateRequiresSelectorAndValue(t *testing.T) {
	s := Step{Type: KindType, Description: "enter email"}
	r := s.Validate()
	if !r.HasErrors() {
		t.Fatal("expected errors for type step missing selector and value")
	}
}

func TestStepValidateGotoRequiresValue(t *testing.T) {
	s := Step{Type: KindGoto, Description: "open"}
	if r := s.Validate(); !r.HasErrors() {
		t.Fatal("expected error for goto missing value")
	}
}

func TestValidatePlanFirstStepMustBeGoto(t *testing.T) {
	plan := []Step{
		{Type: KindClick, Description: "click", Selector: &SelectorHint{Strategy: StrategyCSS, Value: "#x"}},
	}
	r := ValidatePlan(plan, 12)
	if !r.HasErrors() {
		t.Fatal("expected error when first step is not goto")
	}
}

func TestValidatePlanEmpty(t *testing.T) {
	if r := ValidatePlan(nil, 12); !r.HasErrors() {
		t.Fatal("expected error for empty plan")
	}
}

func TestValidatePlanMaxSteps(t *testing.T) {
	plan := []Step{{Type: KindGoto, Description: "open", Value: "http://x"}}
	for i := 0; i < 5; i++ {
		plan = append(plan, Step{Type: KindWait, Description: "wait", Value: "100"})
	}
	r := ValidatePlan(plan, 3)
	if !r.HasErrors() {
		t.Fatal("expected error when plan exceeds max steps")
	}
}

func TestValidatePlanAccepted(t *testing.T) {
	plan := []Step{
		{Type: KindGoto, Description: "open", Value: "http://example.test"},
		{Type: KindExpectText, Description: "check title", Value: "Example"},
	}
	r := ValidatePlan(plan, 12)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
}
