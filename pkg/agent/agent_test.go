package agent

import (
	"context"
	"testing"
	"time"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/capture"
	"github.com/promptqa/promptqa/pkg/llm"
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
	url string
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
func (d *fakeDriver) WaitMillis(context.Context, int) error          { return nil }
func (d *fakeDriver) Screenshot(context.Context, string) error       { return nil }
func (d *fakeDriver) ScreenshotBytes(context.Context) ([]byte, error) { return []byte{1, 2, 3}, nil }
func (d *fakeDriver) InnerText(context.Context, string) (string, error) {
	return "Welcome", nil
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

func newTestAgent(t *testing.T, mock *llm.MockClient) *Agent {
	t.Helper()
	d := &fakeDriver{}
	collector := capture.New(0, 0)
	collector.Attach(d)
	scanner := prescan.New(d, nil)
	store := prompts.NewStore("../../prompts")
	r := runner.New(d, collector, runner.Config{
		ActionTimeout:     time.Second,
		NavigationTimeout: time.Second,
		OutputDir:         t.TempDir(),
	})
	cfg := Config{
		MaxSteps:          5,
		LoginMaxSteps:     3,
		ActionTimeout:     time.Second,
		NavigationTimeout: time.Second,
		TotalTimeout:      5 * time.Second,
		OutputDir:         t.TempDir(),
	}
	return New(d, collector, scanner, mock, store, r, cfg)
}

func TestAgentRunExecutesThenDeclaresDone(t *testing.T) {
	mock := llm.NewMockClient([]string{
		`{"done":false,"action":{"type":"click","description":"click submit","selector":{"strategy":"testid","value":"submit"}}}`,
		`{"done":true,"summary":"finished"}`,
		`{"result":"PASS","confidence":0.9,"reason":"all good"}`,
	})
	a := newTestAgent(t, mock)

	s, exitCode := a.Run(context.Background(), Input{RunID: "run-1", URL: "https://example.com", Prompt: "submit the form"})
	if exitCode != schema.ExitPass {
		t.Fatalf("expected exit 0, got %d", exitCode)
	}
	if s.Summary != schema.Pass {
		t.Fatalf("expected PASS, got %s", s.Summary)
	}
	if len(s.Steps) != 1 {
		t.Fatalf("expected 1 executed step, got %d", len(s.Steps))
	}
	if s.Steps[0].Evaluation == nil || s.Steps[0].Evaluation.Result != schema.Pass {
		t.Fatal("expected the final evaluation to overwrite the last step's evaluation")
	}
}

func TestAgentRunZeroStepsDoneUsesFinalEvalAsVerdict(t *testing.T) {
	mock := llm.NewMockClient([]string{
		`{"done":true,"summary":"nothing to do"}`,
		`{"result":"UNCERTAIN","confidence":0.3,"reason":"ambiguous goal"}`,
	})
	a := newTestAgent(t, mock)

	s, exitCode := a.Run(context.Background(), Input{RunID: "run-2", URL: "https://example.com", Prompt: "do nothing useful"})
	if len(s.Steps) != 0 {
		t.Fatalf("expected 0 steps, got %d", len(s.Steps))
	}
	if s.Summary != schema.Uncertain {
		t.Fatalf("expected UNCERTAIN, got %s", s.Summary)
	}
	if exitCode != schema.ExitUncertain {
		t.Fatalf("expected exit 2, got %d", exitCode)
	}
}

func TestAgentRunDecideFailureRecordsHistoryAndContinues(t *testing.T) {
	mock := llm.NewMockClient([]string{
		"not json at all",
		`{"done":true,"summary":"done after a bad decision"}`,
		`{"result":"PASS","confidence":0.8,"reason":"ok"}`,
	})
	a := newTestAgent(t, mock)

	s, _ := a.Run(context.Background(), Input{RunID: "run-3", URL: "https://example.com", Prompt: "try something"})
	if len(s.Steps) != 0 {
		t.Fatalf("expected 0 executed steps after a decide failure followed by done, got %d", len(s.Steps))
	}
}
