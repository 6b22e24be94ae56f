// Package runner implements the Runner component: executes one
// Step against a page and produces a StepExecutionResult with artifacts,
// regardless of whether the action itself succeeded.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/capture"
	"github.com/promptqa/promptqa/pkg/schema"
)

// Config carries the runner's timeouts.
type Config struct {
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	MaxVisibleChars   int
	OutputDir         string
}

// Runner executes steps against one driver/page, flushing capture before
// and after each step.
type Runner struct {
	driver    browser.Driver
	collector *capture.Collector
	cfg       Config
}

// New creates a Runner for one driver/page.
func New(d browser.Driver, collector *capture.Collector, cfg Config) *Runner {
	if cfg.MaxVisibleChars <= 0 {
		cfg.MaxVisibleChars = schema.MaxVisibleTextChars
	}
	return &Runner{driver: d, collector: collector, cfg: cfg}
}

// AddCookies attaches pre-auth cookies before any navigation.
func (r *Runner) AddCookies(ctx context.Context, cookies []browser.Cookie) error {
	return r.driver.AddCookies(ctx, cookies)
}

// ExecuteStep runs step at the given index: flush stale
// capture, dispatch by type, then regardless of outcome take a screenshot,
// read URL and visible text, and flush again. Success is false iff the
// action itself errored.
func (r *Runner) ExecuteStep(ctx context.Context, step schema.Step, index int) schema.StepExecutionResult {
	r.collector.Flush() // discard stale capture accumulated before this step began

	actionErr := r.dispatch(ctx, step)

	screenshotPath := ""
	if r.cfg.OutputDir != "" {
		path := filepath.Join(r.cfg.OutputDir, "screenshots", fmt.Sprintf("step-%d.png", index))
		if err := r.driver.Screenshot(ctx, path); err == nil {
			screenshotPath = path
		}
		// best-effort: a failed screenshot never fails the step
	}

	url := r.driver.URL()
	visibleText, _ := r.driver.InnerText(ctx, "")
	visibleText = truncateRunes(visibleText, r.cfg.MaxVisibleChars)

	frame := r.collector.Flush()

	return schema.StepExecutionResult{
		StepIndex:      index,
		Step:           step,
		Success:        actionErr == nil,
		URL:            url,
		ScreenshotPath: screenshotPath,
		VisibleText:    visibleText,
		Capture:        frame,
	}
}

// dispatch runs the step's action against the driver.
func (r *Runner) dispatch(ctx context.Context, step schema.Step) error {
	timeout := r.actionTimeout(step)

	switch step.Type {
	case schema.KindGoto:
		return r.driver.Goto(ctx, step.Value, r.navTimeout(step))

	case schema.KindClick:
		loc, err := r.driver.Locator(*step.Selector)
		if err != nil {
			return err
		}
		return loc.Click(ctx, timeout)

	case schema.KindType:
		loc, err := r.driver.Locator(*step.Selector)
		if err != nil {
			return err
		}
		return loc.Fill(ctx, step.Value, timeout)

	case schema.KindSelect:
		loc, err := r.driver.Locator(*step.Selector)
		if err != nil {
			return err
		}
		return loc.SelectOption(ctx, step.Value, timeout)

	case schema.KindUpload:
		loc, err := r.driver.Locator(*step.Selector)
		if err != nil {
			return err
		}
		return loc.SetInputFiles(ctx, step.Value, timeout)

	case schema.KindWait:
		if step.Selector != nil {
			loc, err := r.driver.Locator(*step.Selector)
			if err != nil {
				return err
			}
			return loc.WaitVisible(ctx, timeout)
		}
		ms, err := strconv.Atoi(strings.TrimSpace(step.Value))
		if err != nil {
			return fmt.Errorf("wait: value %q is not a numeric millisecond count", step.Value)
		}
		return r.driver.WaitMillis(ctx, ms)

	case schema.KindExpectText:
		selector := ""
		if step.Selector != nil {
			loc, err := r.driver.Locator(*step.Selector)
			if err != nil {
				return err
			}
			if err := loc.WaitVisible(ctx, timeout); err != nil {
				return err
			}
			text, err := loc.InnerText(ctx, timeout)
			if err != nil {
				return err
			}
			if !strings.Contains(text, step.Value) {
				return fmt.Errorf("expect_text: %q not found in element text %q", step.Value, text)
			}
			return nil
		}
		text, err := r.driver.InnerText(ctx, selector)
		if err != nil {
			return err
		}
		if !strings.Contains(text, step.Value) {
			return fmt.Errorf("expect_text: %q not found in page text", step.Value)
		}
		return nil

	case schema.KindPressKey:
		return r.driver.PressKey(ctx, step.Value, timeout)

	default:
		return fmt.Errorf("runner: unknown step type %q", step.Type)
	}
}

func (r *Runner) actionTimeout(step schema.Step) time.Duration {
	if step.Timeout > 0 {
		return time.Duration(step.Timeout) * time.Millisecond
	}
	return r.cfg.ActionTimeout
}

func (r *Runner) navTimeout(step schema.Step) time.Duration {
	if step.Timeout > 0 {
		return time.Duration(step.Timeout) * time.Millisecond
	}
	return r.cfg.NavigationTimeout
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
