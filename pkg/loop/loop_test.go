package loop

import (
	"context"
	"testing"
	"time"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/capture"
	"github.com/promptqa/promptqa/pkg/evaluator"
	"github.com/promptqa/promptqa/pkg/llm"
	"github.com/promptqa/promptqa/pkg/planner"
	"github.com/promptqa/promptqa/pkg/prescan"
	"github.com/promptqa/promptqa/pkg/prompts"
	"github.com/promptqa/promptqa/pkg/runner"
	"github.com/promptqa/promptqa/pkg/schema"
)

type fakeLocator struct{}

func (fakeLocator) Click(context.Context, time.Duration) error                 { return nil }
func (fakeLocator) Fill(context.Context, string, time.Duration) error          { return nil }
func (fakeLocator) SelectOption(context.Context, string, time.Duration) error  { return nil }
func (fakeLocator) SetInputFiles(context.Context, string, time.Duration) error { return nil }
func (fakeLocator) WaitVisible(context.Context, time.Duration) error           { return nil }
func (fakeLocator) InnerText(context.Context, time.Duration) (string, error)   { return "", nil }

type fakeDriver struct {
	url  string
	text string
}

func (d *fakeDriver) Goto(_ context.Context, url string, _ time.Duration) error {
	d.url = url
	return nil
}
func (d *fakeDriver) Locator(schema.SelectorHint) (browser.Locator, error) { return fakeLocator{}, nil }
func (d *fakeDriver) PressKey(context.Context, string, time.Duration) error { return nil }
func (d *fakeDriver) WaitForLoadState(context.Context, browser.LoadState, time.Duration) error {
	return nil
}
func (d *fakeDriver) WaitMillis(context.Context, int) error       { return nil }
func (d *fakeDriver) Screenshot(context.Context, string) error    { return nil }
func (d *fakeDriver) ScreenshotBytes(context.Context) ([]byte, error) { return []byte{1, 2, 3}, nil }
func (d *fakeDriver) InnerText(context.Context, string) (string, error) {
	return d.text, nil
}
func (d *fakeDriver) URL() string   { return d.url }
func (d *fakeDriver) Title() string { return "Example" }
func (d *fakeDriver) Evaluate(context.Context, string, ...interface{}) (string, error) {
	return "", nil
}
func (d *fakeDriver) ExtractElements(context.Context) ([]schema.InteractiveElement, error) {
	return []schema.InteractiveElement{{Tag: "button", TestID: "submit", Text: "Submit"}}, nil
}
func (d *fakeDriver) AddCookies(context.Context, []browser.Cookie) error { return nil }
func (d *fakeDriver) OnConsole(func(browser.ConsoleEvent))               {}
func (d *fakeDriver) OnResponse(func(browser.ResponseEvent))             {}
func (d *fakeDriver) OnPageError(func(browser.PageErrorEvent))           {}
func (d *fakeDriver) Close() error                                      { return nil }

func newTestLoop(t *testing.T, mock *llm.MockClient) (*Loop, *fakeDriver) {
	t.Helper()
	d := &fakeDriver{text: "Welcome"}
	collector := capture.New(0, 0)
	collector.Attach(d)
	scanner := prescan.New(d, nil)
	store := prompts.NewStore("../../prompts")
	p := planner.New(mock, store, 12)
	e := evaluator.New(mock, store)
	r := runner.New(d, collector, runner.Config{
		ActionTimeout:     time.Second,
		NavigationTimeout: time.Second,
		OutputDir:         t.TempDir(),
	})
	cfg := Config{
		MaxSteps:          12,
		LoginMaxSteps:     6,
		ActionTimeout:     time.Second,
		NavigationTimeout: time.Second,
		RetryWait:         10 * time.Millisecond,
		TotalTimeout:      5 * time.Second,
		OutputDir:         t.TempDir(),
	}
	return New(d, collector, scanner, p, e, r, cfg), d
}

func TestLoopRunAllPass(t *testing.T) {
	mock := llm.NewMockClient([]string{
		`[{"type":"goto","description":"open","value":"https://example.com"},
		  {"type":"click","description":"click submit","selector":{"strategy":"testid","value":"submit"}}]`,
		`{"result":"PASS","confidence":0.9,"reason":"looks right"}`,
		`{"result":"PASS","confidence":0.9,"reason":"looks right"}`,
	})
	l, _ := newTestLoop(t, mock)

	s, exitCode := l.Run(context.Background(), Input{
		RunID: "run-1", URL: "https://example.com", Prompt: "submit the form",
	})
	if exitCode != schema.ExitPass {
		t.Fatalf("expected exit 0, got %d", exitCode)
	}
	if s.Summary != schema.Pass {
		t.Fatalf("expected PASS, got %s", s.Summary)
	}
	if len(s.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(s.Steps))
	}
}

func TestLoopRunPlannerFailureYieldsExit3(t *testing.T) {
	mock := llm.NewMockClient([]string{"not json", "still not json"})
	l, _ := newTestLoop(t, mock)

	s, exitCode := l.Run(context.Background(), Input{
		RunID: "run-2", URL: "https://example.com", Prompt: "do something",
	})
	if exitCode != schema.ExitPlannerError {
		t.Fatalf("expected exit 3, got %d", exitCode)
	}
	if s.Summary != schema.Fail {
		t.Fatalf("expected FAIL, got %s", s.Summary)
	}
	if len(s.Bugs) == 0 {
		t.Fatal("expected at least one bug describing the planner error")
	}
}
