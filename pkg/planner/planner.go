// Package planner turns a natural-language goal and a page snapshot into an
// ordered, validated list of schema.Step values.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/promptqa/promptqa/pkg/llm"
	"github.com/promptqa/promptqa/pkg/prompts"
	"github.com/promptqa/promptqa/pkg/schema"
)

// Planner renders the planner prompt, calls the LLM, and repairs/validates
// the resulting step list.
type Planner struct {
	client   llm.Client
	prompts  *prompts.Store
	maxSteps int
}

// New constructs a Planner. maxSteps bounds the produced plan.
func New(client llm.Client, store *prompts.Store, maxSteps int) *Planner {
	return &Planner{client: client, prompts: store, maxSteps: maxSteps}
}

// Input bundles everything the planner template needs about the current
// page.
type Input struct {
	Goal              string
	BaseURL           string
	Snapshot          schema.PageSnapshot
	ScreenshotBase64  string
	ScreenshotMIMEType string
}

// Plan produces a validated step list, or a *schema.PlannerError if both the
// initial attempt and the single repair attempt fail.
func (p *Planner) Plan(ctx context.Context, in Input) ([]schema.Step, error) {
	vars := map[string]string{
		"title":           in.Snapshot.Title,
		"url":             in.Snapshot.URL,
		"metaDescription": in.Snapshot.MetaDescription,
		"visibleText":     in.Snapshot.VisibleText,
		"elements":        SerializeElements(in.Snapshot.Elements),
		"prompt":          in.Goal,
		"baseUrl":         in.BaseURL,
	}

	system, err := p.prompts.Render(prompts.Planner, vars)
	if err != nil {
		return nil, &schema.PlannerError{Err: err}
	}

	raw, err := p.call(ctx, system, "", in)
	if err != nil {
		return nil, &schema.PlannerError{Err: err}
	}

	steps, verr := p.parseAndValidate(raw)
	if verr == nil {
		return steps, nil
	}
	slog.Warn("planner: response invalid, attempting repair", "error", verr)

	repairVars := map[string]string{
		"rawResponse": raw,
		"error":       verr.Error(),
	}
	repairPrompt, err := p.prompts.Render(prompts.PlannerRepair, repairVars)
	if err != nil {
		return nil, &schema.PlannerError{Err: err}
	}

	raw2, err := p.client.Generate(ctx, system, repairPrompt)
	if err != nil {
		return nil, &schema.PlannerError{Err: fmt.Errorf("repair call: %w", err)}
	}

	steps, verr = p.parseAndValidate(raw2)
	if verr != nil {
		return nil, &schema.PlannerError{Err: fmt.Errorf("repair attempt also invalid: %w", verr)}
	}
	return steps, nil
}

func (p *Planner) call(ctx context.Context, system, user string, in Input) (string, error) {
	if in.ScreenshotBase64 != "" {
		if vision, ok := p.client.(llm.ImageCapable); ok {
			mime := in.ScreenshotMIMEType
			if mime == "" {
				mime = "image/png"
			}
			return vision.GenerateWithImage(ctx, system, user, in.ScreenshotBase64, mime)
		}
	}
	return p.client.Generate(ctx, system, user)
}

func (p *Planner) parseAndValidate(raw string) ([]schema.Step, error) {
	extracted := llm.ExtractJSON(raw, '[', ']')

	var rawSteps []RawStep
	if err := json.Unmarshal([]byte(extracted), &rawSteps); err != nil {
		return nil, fmt.Errorf("parsing step list: %w", err)
	}

	FixupRawSteps(rawSteps)

	steps := make([]schema.Step, len(rawSteps))
	for i, rs := range rawSteps {
		steps[i] = rs.ToStep()
	}

	result := schema.ValidatePlan(steps, p.maxSteps)
	if result.HasErrors() {
		return nil, fmt.Errorf("%s", result.Summary())
	}
	return steps, nil
}

// RawStep is the loosely-typed shape the LLM actually produces, repaired
// before being narrowed into schema.Step.
type RawStep struct {
	Type        string       `json:"type"`
	Description string       `json:"description"`
	Timeout     int          `json:"timeout"`
	Selector    *RawSelector `json:"selector"`
	Value       string       `json:"value"`
}

type RawSelector struct {
	Strategy string `json:"strategy"`
	Value    string `json:"value"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

func (rs RawStep) ToStep() schema.Step {
	s := schema.Step{
		Type:        schema.StepKind(rs.Type),
		Description: rs.Description,
		Timeout:     rs.Timeout,
		Value:       rs.Value,
	}
	if rs.Selector != nil {
		s.Selector = &schema.SelectorHint{
			Strategy: schema.SelectorStrategy(rs.Selector.Strategy),
			Value:    rs.Selector.Value,
			Role:     rs.Selector.Role,
			Name:     rs.Selector.Name,
		}
	}
	return s
}

var quotedSubstring = regexp.MustCompile(`"([^"]{1,80})"|'([^']{1,80})'`)

// FixupRawSteps applies the pre-validation repair pass, mutating steps in
// place.
func FixupRawSteps(steps []RawStep) {
	for i := range steps {
		s := &steps[i]

		if s.Description == "" {
			s.Description = s.Type + " step"
		}

		if s.Selector != nil {
			FixupSelector(s.Selector)
		}

		if s.Type == string(schema.KindExpectText) && s.Value == "" {
			s.Value = synthesizeExpectedText(s.Description)
		}
	}
}

// FixupSelector rewrites strategy names the planner sometimes invents into
// ones the resolver actually understands.
func FixupSelector(sel *RawSelector) {
	switch sel.Strategy {
	case string(schema.StrategyTestID), string(schema.StrategyRole), string(schema.StrategyText), string(schema.StrategyCSS):
		return
	case "placeholder":
		sel.Strategy = string(schema.StrategyCSS)
		sel.Value = fmt.Sprintf("input[placeholder=%s]", strconv.Quote(sel.Value))
	case "name":
		sel.Strategy = string(schema.StrategyCSS)
		sel.Value = fmt.Sprintf("[name=%s]", strconv.Quote(sel.Value))
	case "id":
		sel.Strategy = string(schema.StrategyCSS)
		sel.Value = "#" + sel.Value
	case "label":
		sel.Strategy = string(schema.StrategyText)
	default:
		attr := sel.Strategy
		sel.Strategy = string(schema.StrategyCSS)
		sel.Value = fmt.Sprintf("[%s=%s]", attr, strconv.Quote(sel.Value))
	}
}

// synthesizeExpectedText pulls a quoted substring out of the step
// description, falling back to a truncated copy of it.
func synthesizeExpectedText(description string) string {
	if m := quotedSubstring.FindStringSubmatch(description); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	const max = 60
	r := []rune(strings.TrimSpace(description))
	if len(r) > max {
		return string(r[:max])
	}
	return string(r)
}

// SerializeElements renders interactive elements as pseudo-HTML tags
// carrying state flags, the exact format the planner template's
// {{elements}} placeholder expects.
func SerializeElements(elements []schema.InteractiveElement) string {
	lines := make([]string, 0, len(elements))
	for _, e := range elements {
		var attrs []string
		if e.TestID != "" {
			attrs = append(attrs, fmt.Sprintf(`data-testid=%s`, strconv.Quote(e.TestID)))
		}
		if e.Type != "" {
			attrs = append(attrs, fmt.Sprintf(`type=%s`, strconv.Quote(e.Type)))
		}
		if e.Name != "" {
			attrs = append(attrs, fmt.Sprintf(`name=%s`, strconv.Quote(e.Name)))
		}
		if e.Placeholder != "" {
			attrs = append(attrs, fmt.Sprintf(`placeholder=%s`, strconv.Quote(e.Placeholder)))
		}
		if e.Href != "" {
			attrs = append(attrs, fmt.Sprintf(`href=%s`, strconv.Quote(e.Href)))
		}
		if len(e.Options) > 0 {
			attrs = append(attrs, fmt.Sprintf(`options=%s`, strconv.Quote(strings.Join(e.Options, ","))))
		}

		attrStr := ""
		if len(attrs) > 0 {
			attrStr = " " + strings.Join(attrs, " ")
		}
		tag := fmt.Sprintf("<%s%s>%s</%s>", e.Tag, attrStr, e.Text, e.Tag)

		var flags []string
		if e.Disabled {
			flags = append(flags, "DISABLED")
		}
		if e.AriaBusy {
			flags = append(flags, "BUSY")
		}
		if e.ReadOnly {
			flags = append(flags, "READONLY")
		}
		for _, c := range e.ClassList {
			if strings.Contains(strings.ToLower(c), "load") {
				flags = append(flags, "loading:"+c)
			}
		}
		if len(flags) > 0 {
			tag += " [" + strings.Join(flags, " ") + "]"
		}

		lines = append(lines, tag)
	}
	return strings.Join(lines, "\n")
}
