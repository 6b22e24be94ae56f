package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptqa/promptqa/pkg/agent"
	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/cache"
	"github.com/promptqa/promptqa/pkg/capture"
	"github.com/promptqa/promptqa/pkg/config"
	"github.com/promptqa/promptqa/pkg/evaluator"
	"github.com/promptqa/promptqa/pkg/hooks"
	"github.com/promptqa/promptqa/pkg/llm"
	"github.com/promptqa/promptqa/pkg/loop"
	"github.com/promptqa/promptqa/pkg/planner"
	"github.com/promptqa/promptqa/pkg/prescan"
	"github.com/promptqa/promptqa/pkg/prompts"
	"github.com/promptqa/promptqa/pkg/report"
	"github.com/promptqa/promptqa/pkg/retry"
	"github.com/promptqa/promptqa/pkg/runner"
	"github.com/promptqa/promptqa/pkg/schema"
	"github.com/promptqa/promptqa/pkg/util"
)

// overrides carries the flag values every subcommand shares on top of the
// loaded config file.
type overrides struct {
	maxSteps    int
	headless    bool
	headlessSet bool
	timeout     int
	cookie      string
	loginPrompt string
	reportPath  string
}

func (o overrides) apply(cfg *config.Config) {
	if o.maxSteps > 0 {
		cfg.MaxSteps = o.maxSteps
	}
	if o.headlessSet {
		cfg.Headless = o.headless
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}
	if o.cookie != "" {
		cfg.Auth.Cookie = o.cookie
	}
	if o.loginPrompt != "" {
		cfg.Auth.LoginPrompt = o.loginPrompt
	}
	if o.reportPath != "" {
		cfg.ReportPath = o.reportPath
	}
}

// loadConfig reads path (or falls back to discovery/defaults inside
// pkg/config) and wraps any failure as exit code 4.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, schema.NewRunError(schema.ExitConfigOrOther, "loading config: %w", err)
	}
	return cfg, nil
}

// parseCookieString turns a "name=value; name2=value2" string into
// per-target cookies. A malformed pair is an error.
func parseCookieString(raw, targetURL string) ([]browser.Cookie, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var cookies []browser.Cookie
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("malformed cookie pair %q", pair)
		}
		cookies = append(cookies, browser.Cookie{
			Name:  strings.TrimSpace(parts[0]),
			Value: strings.TrimSpace(parts[1]),
			URL:   targetURL,
		})
	}
	return cookies, nil
}

// testJob describes one test to execute against one config.
type testJob struct {
	Name        string
	URL         string
	Prompt      string
	LoginPrompt string
	OutputDir   string
}

// runJob wires every component for one test invocation and returns the finished summary and its exit code.
func runJob(ctx context.Context, cfg *config.Config, job testJob, strategy string, progress schema.ProgressFunc) (schema.RunSummary, int, error) {
	if err := os.MkdirAll(filepath.Join(job.OutputDir, "screenshots"), 0755); err != nil {
		return schema.RunSummary{}, schema.ExitConfigOrOther, schema.NewRunError(schema.ExitConfigOrOther, "creating output dir: %w", err)
	}

	runID := uuid.NewString()
	progress("start", fmt.Sprintf("run %s: %s — %q", runID, job.URL, job.Prompt))

	driver, err := launchWithRetry(ctx, browser.LaunchConfig{Headless: cfg.Headless, Width: 1280, Height: 800})
	if err != nil {
		return schema.RunSummary{}, schema.ExitConfigOrOther, schema.NewRunError(schema.ExitConfigOrOther, "launching browser: %w", err)
	}
	defer driver.Close()

	collector := capture.New(schema.DefaultMaxConsoleErrors, schema.DefaultMaxNetworkErrors)
	collector.Attach(driver)

	var snapCache *cache.SnapshotCache
	if cfg.Cache.Enabled {
		ttl := time.Duration(cfg.Timeout) * time.Second
		if cfg.Cache.TTLSeconds > 0 {
			ttl = time.Duration(cfg.Cache.TTLSeconds) * time.Second
		}
		snapCache = cache.NewSnapshotCache(ttl)
		defer snapCache.Stop()
	}
	scanner := prescan.New(driver, snapCache)

	client, err := llm.New(llm.Config{
		Provider:  string(cfg.Provider),
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return schema.RunSummary{}, schema.ExitConfigOrOther, schema.NewRunError(schema.ExitConfigOrOther, "building llm client: %w", err)
	}
	store := prompts.NewStore("")

	runnerCfg := runner.Config{
		ActionTimeout:     time.Duration(config.DefaultActionTimeoutMs) * time.Millisecond,
		NavigationTimeout: time.Duration(config.DefaultNavigationTimeoutMs) * time.Millisecond,
		MaxVisibleChars:   schema.MaxVisibleTextChars,
		OutputDir:         job.OutputDir,
	}
	run := runner.New(driver, collector, runnerCfg)

	cookies, err := parseCookieString(cfg.Auth.Cookie, job.URL)
	if err != nil {
		return schema.RunSummary{}, schema.ExitConfigOrOther, schema.NewRunError(schema.ExitConfigOrOther, "parsing cookie: %w", err)
	}

	hookMgr := hooks.NewManager()
	hookMgr.Register(hooks.LogHook{})
	hookMgr.BeforeRun(hooks.RunContext{URL: job.URL, Prompt: job.Prompt, RunID: runID})

	totalTimeout := time.Duration(cfg.Timeout) * time.Second

	var s schema.RunSummary
	var exitCode int

	switch strategy {
	case "agent":
		maxSteps := cfg.MaxSteps
		if maxSteps == config.DefaultMaxSteps {
			maxSteps = config.DefaultAgentMaxSteps
		}
		a := agent.New(driver, collector, scanner, client, store, run, agent.Config{
			MaxSteps:          maxSteps,
			LoginMaxSteps:     config.DefaultLoginMaxSteps,
			ActionTimeout:     runnerCfg.ActionTimeout,
			NavigationTimeout: runnerCfg.NavigationTimeout,
			TotalTimeout:      totalTimeout,
			OutputDir:         job.OutputDir,
		})
		s, exitCode = a.Run(ctx, agent.Input{
			RunID: runID, URL: job.URL, Prompt: job.Prompt,
			LoginPrompt: job.LoginPrompt, Cookies: cookies,
		})
	default:
		p := planner.New(client, store, cfg.MaxSteps)
		ev := evaluator.New(client, store)
		l := loop.New(driver, collector, scanner, p, ev, run, loop.Config{
			MaxSteps:          cfg.MaxSteps,
			LoginMaxSteps:     config.DefaultLoginMaxSteps,
			ActionTimeout:     runnerCfg.ActionTimeout,
			NavigationTimeout: runnerCfg.NavigationTimeout,
			RetryWait:         time.Duration(config.DefaultRetryWaitMs) * time.Millisecond,
			TotalTimeout:      totalTimeout,
			OutputDir:         job.OutputDir,
		})
		s, exitCode = l.Run(ctx, loop.Input{
			RunID: runID, URL: job.URL, Prompt: job.Prompt,
			LoginPrompt: job.LoginPrompt, Cookies: cookies,
		})
	}

	progress("finish", fmt.Sprintf("run %s: %s (exit %d)", runID, s.Summary, exitCode))

	record := report.GenerateJSON(s, exitCode)
	if data, err := report.SerializeJSON(record); err == nil {
		_ = os.WriteFile(filepath.Join(job.OutputDir, "summary.json"), data, 0644)
	}
	md := report.GenerateMarkdown(s, exitCode)
	_ = os.WriteFile(filepath.Join(job.OutputDir, "report.md"), []byte(md), 0644)

	hookMgr.AfterRun(s)

	return s, exitCode, nil
}

// launchWithRetry starts Chrome, retrying transient launch
// failures (a flaky sandbox fork, a port race on the DevTools socket) with
// pkg/retry's exponential backoff rather than failing a whole test run on
// one bad process start.
func launchWithRetry(ctx context.Context, cfg browser.LaunchConfig) (*browser.RodDriver, error) {
	var driver *browser.RodDriver
	err := retry.Do(ctx, &retry.Config{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second, Multiplier: 2}, func() error {
		d, err := browser.Launch(ctx, cfg)
		if err != nil {
			return err
		}
		driver = d
		return nil
	})
	return driver, err
}

// progressToStderr is the default schema.ProgressFunc for the CLI layer:
// human progress always goes to stderr, never stdout.
func progressToStderr(stage, message string) {
	slog.Info(message, "stage", stage)
}

// sanitizedOutputDir partitions outputDir per test name.
func sanitizedOutputDir(base, name string) string {
	if name == "" {
		return base
	}
	return filepath.Join(base, util.SanitizeFilename(name))
}

// exitCodeForErr extracts the exit code from a *schema.RunError, defaulting
// to 4 (config/unexpected error) for anything else.
func exitCodeForErr(err error) int {
	if err == nil {
		return schema.ExitPass
	}
	if re, ok := err.(*schema.RunError); ok {
		return re.Code
	}
	return schema.ExitConfigOrOther
}

// jsonRecordFor renders one run's summary through the report contract and
// returns it as a string, ready to print to stdout.
func jsonRecordFor(s schema.RunSummary, exitCode int) string {
	record := report.GenerateJSON(s, exitCode)
	data, err := report.SerializeJSON(record)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// joinRecords concatenates pre-serialized JSON object records with commas,
// for the `run` subcommand's JSON-array output.
func joinRecords(records []string) string {
	out := ""
	for i, r := range records {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out
}

// worstExitCode picks the highest-numbered exit code seen across a batch of
// tests.
func worstExitCode(codes []int) int {
	worst := schema.ExitPass
	for _, c := range codes {
		if c > worst {
			worst = c
		}
	}
	return worst
}

