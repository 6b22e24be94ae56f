package schema

// AgentStepResponse is the union the agent_step template's LLM response is
// parsed into: either a done declaration with a summary, or the next
// action to take (a Step without the goto-only navigation case, since the
// agent loop never re-navigates via a produced action).
type AgentStepResponse struct {
	Done    bool   `json:"done"`
	Summary string `json:"summary,omitempty"`
	Action  *Step  `json:"action,omitempty"`
}

// Validate checks the union's shape: exactly one of Summary (when done) or
// Action (when not done) makes sense, and a non-goto action must still
// satisfy the ordinary per-type Step rules.
func (a AgentStepResponse) Validate() *ValidationResult {
	r := newResult()
	if a.Done {
		return r
	}
	if a.Action == nil {
		r.addError("agent step: action is required when done=false")
		return r
	}
	if a.Action.Type == KindGoto {
		r.addError("agent step: action must not be goto")
	}
	sub := a.Action.Validate()
	r.Errors = append(r.Errors, sub.Errors...)
	r.Warnings = append(r.Warnings, sub.Warnings...)
	if sub.HasErrors() {
		r.Valid = false
	}
	return r
}

// AgentFinalEvaluation is the result of the agent loop's mandatory final
// evaluation call, structurally identical to EvaluationResult.
type AgentFinalEvaluation struct {
	Result     Verdict `json:"result"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ToEvaluationResult converts to the shared EvaluationResult shape used to
// overwrite the last step result's evaluation.
func (a AgentFinalEvaluation) ToEvaluationResult() EvaluationResult {
	return EvaluationResult{Result: a.Result, Confidence: a.Confidence, Reason: a.Reason}
}

// Validate delegates to EvaluationResult's rules (same invariants).
func (a AgentFinalEvaluation) Validate() *ValidationResult {
	return a.ToEvaluationResult().Validate()
}
