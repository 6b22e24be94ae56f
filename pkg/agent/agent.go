// Package agent implements the observe-decide-act Agent Loop:
// one page snapshot at a time drives an LLM decision, executed and folded
// into history, until the model declares itself done or the budget runs out.
package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/capture"
	"github.com/promptqa/promptqa/pkg/llm"
	"github.com/promptqa/promptqa/pkg/planner"
	"github.com/promptqa/promptqa/pkg/prescan"
	"github.com/promptqa/promptqa/pkg/prompts"
	"github.com/promptqa/promptqa/pkg/report"
	"github.com/promptqa/promptqa/pkg/runner"
	"github.com/promptqa/promptqa/pkg/schema"
	"github.com/promptqa/promptqa/pkg/summary"
)

// Config carries the agent loop's budgets.
type Config struct {
	MaxSteps          int // V2_MAX_STEPS
	LoginMaxSteps     int
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	TotalTimeout      time.Duration
	OutputDir         string
}

// Input describes one agent-loop invocation.
type Input struct {
	RunID       string
	URL         string
	Prompt      string
	LoginPrompt string
	Cookies     []browser.Cookie
}

// Agent wires the driver, capture collector, prescan scanner, LLM client,
// and runner needed to drive the observe-decide-act loop.
type Agent struct {
	driver    browser.Driver
	collector *capture.Collector
	scanner   *prescan.Scanner
	client    llm.Client
	prompts   *prompts.Store
	run       *runner.Runner
	cfg       Config
}

// New assembles an Agent.
func New(d browser.Driver, collector *capture.Collector, scanner *prescan.Scanner, client llm.Client, store *prompts.Store, r *runner.Runner, cfg Config) *Agent {
	return &Agent{driver: d, collector: collector, scanner: scanner, client: client, prompts: store, run: r, cfg: cfg}
}

// Run bootstraps the session, optionally logs in, runs the main
// observe-decide-act sub-loop, performs the mandatory final evaluation, and
// returns the finished summary plus its exit code.
func (a *Agent) Run(ctx context.Context, in Input) (schema.RunSummary, int) {
	startedAt := time.Now()
	deadline := startedAt.Add(a.cfg.TotalTimeout)

	if err := a.run.AddCookies(ctx, in.Cookies); err != nil {
		s := summary.PlannerErrorSummary(in.RunID, in.URL, in.Prompt, fmt.Errorf("adding cookies: %w", err))
		return a.finish(s, startedAt, schema.ExitConfigOrOther)
	}
	if err := a.driver.Goto(ctx, in.URL, a.cfg.NavigationTimeout); err != nil {
		s := summary.PlannerErrorSummary(in.RunID, in.URL, in.Prompt, fmt.Errorf("initial navigation: %w", err))
		return a.finish(s, startedAt, schema.ExitConfigOrOther)
	}

	loginFailed := false
	if in.LoginPrompt != "" {
		_, _, loginDone, _ := a.subloop(ctx, in.LoginPrompt, a.cfg.LoginMaxSteps, deadline, "login")
		loginFailed = !loginDone
	}

	results, history, done, _ := a.subloop(ctx, in.Prompt, a.cfg.MaxSteps, deadline, "step")

	finalEval := a.finalEvaluate(ctx, in.Prompt, history, deadline)

	var verdict schema.Verdict
	if finalEval != nil {
		if len(results) > 0 {
			last := &results[len(results)-1]
			ev := finalEval.ToEvaluationResult()
			last.Evaluation = &ev
		} else if done {
			// Open Question (c): zero steps executed and the agent declared
			// done immediately — the final eval's result *is* the verdict,
			// bypassing the deterministic fold entirely.
			verdict = finalEval.Result
		}
	}
	if verdict == "" {
		verdict = summary.ComputeVerdict(results)
	}

	s := schema.RunSummary{
		RunID:       in.RunID,
		URL:         in.URL,
		Prompt:      in.Prompt,
		Steps:       results,
		LoginFailed: loginFailed,
	}
	s.Summary = verdict
	s.Bugs = summary.ExtractBugs(results)

	return a.finish(s, startedAt, exitCodeFor(verdict))
}

// subloop runs one observe-decide-act sequence bounded by maxSteps and
// deadline, returning the executed step results, the action history built
// alongside them, whether the model declared done, and its summary text.
func (a *Agent) subloop(ctx context.Context, goal string, maxSteps int, deadline time.Time, filePrefix string) ([]schema.StepExecutionResult, []schema.ActionHistoryEntry, bool, string) {
	var results []schema.StepExecutionResult
	var history []schema.ActionHistoryEntry

	for i := 0; i < maxSteps; i++ {
		if time.Now().After(deadline) {
			return results, history, false, ""
		}

		snap, err := a.scanner.ScanCurrent(ctx)
		if err != nil {
			history = append(history, schema.ActionHistoryEntry{
				StepIndex: i, Action: "observe", Description: "failed to observe page",
				Success: false, Observation: schema.TruncateObservation(err.Error(), schema.MaxActHistoryObservationChars),
			})
			continue
		}
		shot := a.screenshot(ctx)

		resp, err := a.decide(ctx, goal, snap, shot, history)
		if err != nil {
			history = append(history, schema.ActionHistoryEntry{
				StepIndex: i, Action: "decide", Description: "failed to parse a valid decision",
				Success: false, Observation: schema.TruncateObservation(err.Error(), schema.MaxActHistoryObservationChars),
			})
			continue
		}

		if resp.Done {
			return results, history, true, resp.Summary
		}

		result := a.run.ExecuteStep(ctx, *resp.Action, i)
		a.persistStep(filePrefix, i, result)
		results = append(results, result)

		history = append(history, schema.ActionHistoryEntry{
			StepIndex:   i,
			Action:      string(resp.Action.Type),
			Description: resp.Action.Description,
			Success:     result.Success,
			Observation: schema.TruncateObservation(result.VisibleText, schema.MaxActHistoryObservationChars),
		})
	}

	return results, history, false, ""
}

// decide renders the agent_step template, calls the LLM, and narrows the
// response into a validated AgentStepResponse, applying the planner's
// pre-validation repair to a lone action step.
func (a *Agent) decide(ctx context.Context, goal string, snap schema.PageSnapshot, screenshotBase64 string, history []schema.ActionHistoryEntry) (*schema.AgentStepResponse, error) {
	vars := map[string]string{
		"prompt":        goal,
		"url":           snap.URL,
		"title":         snap.Title,
		"visibleText":   snap.VisibleText,
		"elements":      elementsText(snap),
		"actionHistory": formatHistory(history),
	}
	system, err := a.prompts.Render(prompts.AgentStep, vars)
	if err != nil {
		return nil, err
	}

	raw, err := a.call(ctx, system, "", screenshotBase64)
	if err != nil {
		return nil, err
	}

	extracted := llm.ExtractJSON(raw, '{', '}')
	var rawResp struct {
		Done    bool              `json:"done"`
		Summary string            `json:"summary"`
		Action  *planner.RawStep  `json:"action"`
	}
	if err := json.Unmarshal([]byte(extracted), &rawResp); err != nil {
		return nil, fmt.Errorf("parsing agent step response: %w", err)
	}

	resp := schema.AgentStepResponse{Done: rawResp.Done, Summary: rawResp.Summary}
	if rawResp.Action != nil {
		fixed := []planner.RawStep{*rawResp.Action}
		planner.FixupRawSteps(fixed)
		step := fixed[0].ToStep()
		resp.Action = &step
	}

	if result := resp.Validate(); result.HasErrors() {
		return nil, fmt.Errorf("%s", result.Summary())
	}
	return &resp, nil
}

// finalEvaluate performs the mandatory post-loop evaluation:
// prescan the current page, capture a screenshot, render agent_final, call
// the LLM once, and validate. A failure here simply means no final
// evaluation exists; it never errors out the run.
func (a *Agent) finalEvaluate(ctx context.Context, goal string, history []schema.ActionHistoryEntry, deadline time.Time) *schema.AgentFinalEvaluation {
	if time.Now().After(deadline) {
		return nil
	}
	snap, err := a.scanner.ScanCurrent(ctx)
	if err != nil {
		return nil
	}
	shot := a.screenshot(ctx)

	vars := map[string]string{
		"prompt":        goal,
		"url":           snap.URL,
		"title":         snap.Title,
		"visibleText":   snap.VisibleText,
		"actionHistory": formatHistory(history),
	}
	system, err := a.prompts.Render(prompts.AgentFinal, vars)
	if err != nil {
		return nil
	}

	raw, err := a.call(ctx, system, "", shot)
	if err != nil {
		return nil
	}

	extracted := llm.ExtractJSON(raw, '{', '}')
	var eval schema.AgentFinalEvaluation
	if err := json.Unmarshal([]byte(extracted), &eval); err != nil {
		return nil
	}
	eval.Confidence = schema.ClampConfidence(eval.Confidence)
	if result := eval.Validate(); result.HasErrors() {
		return nil
	}
	return &eval
}

func (a *Agent) call(ctx context.Context, system, user, screenshotBase64 string) (string, error) {
	if screenshotBase64 != "" {
		if vision, ok := a.client.(llm.ImageCapable); ok {
			return vision.GenerateWithImage(ctx, system, user, screenshotBase64, "image/png")
		}
	}
	return a.client.Generate(ctx, system, user)
}

func (a *Agent) screenshot(ctx context.Context) string {
	data, err := a.driver.ScreenshotBytes(ctx)
	if err != nil || len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

func (a *Agent) persistStep(prefix string, index int, result schema.StepExecutionResult) {
	if a.cfg.OutputDir == "" {
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(a.cfg.OutputDir, fmt.Sprintf("%s-%d.json", prefix, index))
	_ = os.WriteFile(path, data, 0644)
}

func (a *Agent) finish(s schema.RunSummary, startedAt time.Time, exitCode int) (schema.RunSummary, int) {
	s.StartedAt = startedAt
	s.FinishedAt = time.Now()
	s.DurationMs = s.FinishedAt.Sub(startedAt).Milliseconds()

	if a.cfg.OutputDir != "" {
		record := report.GenerateJSON(s, exitCode)
		if data, err := report.SerializeJSON(record); err == nil {
			_ = os.WriteFile(filepath.Join(a.cfg.OutputDir, "summary.json"), data, 0644)
		}
	}
	return s, exitCode
}

func exitCodeFor(v schema.Verdict) int {
	switch v {
	case schema.Pass:
		return schema.ExitPass
	case schema.Fail:
		return schema.ExitFail
	default:
		return schema.ExitUncertain
	}
}

func formatHistory(history []schema.ActionHistoryEntry) string {
	if len(history) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(history))
	for _, h := range history {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) — success=%t: %s", h.StepIndex, h.Action, h.Description, h.Success, h.Observation))
	}
	return strings.Join(lines, "\n")
}

func elementsText(snap schema.PageSnapshot) string {
	return planner.SerializeElements(snap.Elements)
}
