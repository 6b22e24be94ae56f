// Package loop implements the Plan-Once Loop: plan the whole
// step sequence up front, then execute, classify, retry, and evaluate each
// step in order until the plan is exhausted or a hard failure breaks it.
package loop

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/capture"
	"github.com/promptqa/promptqa/pkg/classify"
	"github.com/promptqa/promptqa/pkg/evaluator"
	"github.com/promptqa/promptqa/pkg/planner"
	"github.com/promptqa/promptqa/pkg/prescan"
	"github.com/promptqa/promptqa/pkg/report"
	"github.com/promptqa/promptqa/pkg/runner"
	"github.com/promptqa/promptqa/pkg/schema"
	"github.com/promptqa/promptqa/pkg/summary"
)

// Config carries the loop's timing and step-budget parameters.
type Config struct {
	MaxSteps          int
	LoginMaxSteps     int
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	RetryWait         time.Duration
	TotalTimeout      time.Duration
	OutputDir         string
}

// Input describes one test invocation.
type Input struct {
	RunID       string
	URL         string
	Prompt      string
	LoginPrompt string
	Cookies     []browser.Cookie
}

// Loop wires the Planner, Runner, Evaluator, Prescan Scanner, and Capture
// Collector behind one driver for a single plan-once run.
type Loop struct {
	driver    browser.Driver
	collector *capture.Collector
	scanner   *prescan.Scanner
	plan      *planner.Planner
	eval      *evaluator.Evaluator
	run       *runner.Runner
	cfg       Config
}

// New assembles a Loop. d, collector, and scanner must already be attached
// to the same page.
func New(d browser.Driver, collector *capture.Collector, scanner *prescan.Scanner, p *planner.Planner, e *evaluator.Evaluator, r *runner.Runner, cfg Config) *Loop {
	return &Loop{driver: d, collector: collector, scanner: scanner, plan: p, eval: e, run: r, cfg: cfg}
}

// Run executes the plan-once sequence and returns the finished summary plus
// its mapped exit code.
func (l *Loop) Run(ctx context.Context, in Input) (schema.RunSummary, int) {
	startedAt := time.Now()
	deadline := startedAt.Add(l.cfg.TotalTimeout)

	if err := l.run.AddCookies(ctx, in.Cookies); err != nil {
		s := summary.PlannerErrorSummary(in.RunID, in.URL, in.Prompt, fmt.Errorf("adding cookies: %w", err))
		return l.finish(s, startedAt, schema.ExitConfigOrOther)
	}

	snap, err := l.scanner.Scan(ctx, in.URL, l.cfg.NavigationTimeout)
	if err != nil {
		s := summary.PlannerErrorSummary(in.RunID, in.URL, in.Prompt, fmt.Errorf("initial prescan: %w", err))
		return l.finish(s, startedAt, schema.ExitConfigOrOther)
	}
	shot := l.screenshot(ctx)

	loginFailed := false
	if in.LoginPrompt != "" {
		var ok bool
		snap, shot, ok = l.runLoginSubloop(ctx, in, snap, shot, deadline)
		loginFailed = !ok
	}

	steps, err := l.plan.Plan(ctx, planner.Input{
		Goal: in.Prompt, BaseURL: in.URL, Snapshot: snap,
		ScreenshotBase64: shot,
	})
	if err != nil {
		s := summary.PlannerErrorSummary(in.RunID, in.URL, in.Prompt, err)
		s.LoginFailed = loginFailed
		return l.finish(s, startedAt, schema.ExitPlannerError)
	}
	if len(steps) > l.cfg.MaxSteps {
		steps = steps[:l.cfg.MaxSteps]
	}

	results := l.executeSteps(ctx, steps, deadline)

	s := schema.RunSummary{
		RunID:       in.RunID,
		URL:         in.URL,
		Prompt:      in.Prompt,
		Steps:       results,
		LoginFailed: loginFailed,
	}
	s.Summary = summary.ComputeVerdict(results)
	s.Bugs = summary.ExtractBugs(results)

	exitCode := exitCodeFor(s.Summary)
	return l.finish(s, startedAt, exitCode)
}

// executeSteps runs the plan in order, applying the retry policy and
// re-classifying both before and after evaluation: both classify calls
// read the same prevVisibleText, which only advances once a step's
// handling is complete.
func (l *Loop) executeSteps(ctx context.Context, steps []schema.Step, deadline time.Time) []schema.StepExecutionResult {
	var results []schema.StepExecutionResult
	prevVisibleText := ""

	for i, step := range steps {
		if time.Now().After(deadline) {
			break
		}

		result := l.run.ExecuteStep(ctx, step, i)

		switch classify.Classify(result, prevVisibleText) {
		case classify.ElementNotFound:
			if time.Now().Add(l.cfg.RetryWait).Before(deadline) {
				select {
				case <-time.After(l.cfg.RetryWait):
				case <-ctx.Done():
				}
				result = l.run.ExecuteStep(ctx, step, i)
			}
		case classify.ActionNoEffect:
			result = l.run.ExecuteStep(ctx, step, i)
		}

		if time.Now().Before(deadline) {
			eval := l.eval.Evaluate(ctx, result)
			result.Evaluation = &eval
		}

		l.persistStep(i, result)
		results = append(results, result)

		hardFail := classify.Classify(result, prevVisibleText) == classify.HardFail
		prevVisibleText = result.VisibleText

		if hardFail {
			break
		}
	}

	return results
}

// runLoginSubloop plans and executes a bounded login sequence. Failure is non-fatal: the caller flags loginFailed and continues
// with whatever snapshot/screenshot it already had.
func (l *Loop) runLoginSubloop(ctx context.Context, in Input, snap schema.PageSnapshot, shot string, deadline time.Time) (schema.PageSnapshot, string, bool) {
	steps, err := l.plan.Plan(ctx, planner.Input{
		Goal: in.LoginPrompt, BaseURL: in.URL, Snapshot: snap, ScreenshotBase64: shot,
	})
	if err != nil {
		return snap, shot, false
	}
	if len(steps) > l.cfg.LoginMaxSteps {
		steps = steps[:l.cfg.LoginMaxSteps]
	}

	for i, step := range steps {
		if time.Now().After(deadline) {
			return snap, shot, false
		}
		result := l.run.ExecuteStep(ctx, step, i)
		if !result.Success {
			return snap, shot, false
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = l.driver.WaitForLoadState(waitCtx, browser.LoadNetworkIdle, 5*time.Second)

	newSnap, err := l.scanner.ScanCurrent(ctx)
	if err != nil {
		return snap, shot, false
	}
	return newSnap, l.screenshot(ctx), true
}

func (l *Loop) screenshot(ctx context.Context) string {
	data, err := l.driver.ScreenshotBytes(ctx)
	if err != nil || len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

func (l *Loop) persistStep(index int, result schema.StepExecutionResult) {
	if l.cfg.OutputDir == "" {
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(l.cfg.OutputDir, fmt.Sprintf("step-%d.json", index))
	_ = os.WriteFile(path, data, 0644) // best-effort
}

func (l *Loop) finish(s schema.RunSummary, startedAt time.Time, exitCode int) (schema.RunSummary, int) {
	s.StartedAt = startedAt
	s.FinishedAt = time.Now()
	s.DurationMs = s.FinishedAt.Sub(startedAt).Milliseconds()

	if l.cfg.OutputDir != "" {
		record := report.GenerateJSON(s, exitCode)
		if data, err := report.SerializeJSON(record); err == nil {
			_ = os.WriteFile(filepath.Join(l.cfg.OutputDir, "summary.json"), data, 0644)
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
