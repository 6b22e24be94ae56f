package schema

// SelectorStrategy enumerates the ways a SelectorHint can locate an element.
type SelectorStrategy string

const (
	StrategyTestID SelectorStrategy = "testid"
	StrategyRole   SelectorStrategy = "role"
	StrategyText   SelectorStrategy = "text"
	StrategyCSS    SelectorStrategy = "css"
)

// SelectorHint is an abstract element locator: a strategy plus the value it
// is matched against, with role/name used only when strategy=role.
type SelectorHint struct {
	Strategy SelectorStrategy `json:"strategy" yaml:"strategy"`
	Value    string           `json:"value" yaml:"value"`
	Role     string           `json:"role,omitempty" yaml:"role,omitempty"`
	Name     string           `json:"name,omitempty" yaml:"name,omitempty"`
}

// Validate enforces the SelectorHint invariants: non-empty value, known
// strategy, and role present whenever strategy=role.
func (h SelectorHint) Validate() *ValidationResult {
	r := newResult()
	switch h.Strategy {
	case StrategyTestID, StrategyRole, StrategyText, StrategyCSS:
	default:
		r.addError("selector: unknown strategy %q", h.Strategy)
	}
	if h.Value == "" {
		r.addError("selector: value must not be empty")
	}
	if h.Strategy == StrategyRole && h.Role == "" {
		r.addError("selector: strategy=role requires role to be present")
	}
	return r
}
