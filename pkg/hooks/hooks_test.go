package hooks

import (
	"errors"
	"testing"

	"github.com/promptqa/promptqa/pkg/schema"
)

type recordingHook struct {
	name           string
	beforeCalled   bool
	afterCalled    bool
	beforeErr      error
	afterErr       error
}

func (h *recordingHook) Name() string { return h.name }
func (h *recordingHook) BeforeRun(RunContext) error {
	h.beforeCalled = true
	return h.beforeErr
}
func (h *recordingHook) AfterRun(schema.RunSummary) error {
	h.afterCalled = true
	return h.afterErr
}

func TestManagerCallsAllHooks(t *testing.T) {
	m := NewManager()
	a := &recordingHook{name: "a"}
	b := &recordingHook{name: "b"}
	m.Register(a)
	m.Register(b)

	m.BeforeRun(RunContext{RunID: "run-1"})
	if !a.beforeCalled || !b.beforeCalled {
		t.Fatal("expected both hooks' BeforeRun to run")
	}

	m.AfterRun(schema.RunSummary{RunID: "run-1"})
	if !a.afterCalled || !b.afterCalled {
		t.Fatal("expected both hooks' AfterRun to run")
	}
}

func TestManagerContinuesAfterHookError(t *testing.T) {
	m := NewManager()
	failing := &recordingHook{name: "failing", beforeErr: errors.New("boom")}
	ok := &recordingHook{name: "ok"}
	m.Register(failing)
	m.Register(ok)

	m.BeforeRun(RunContext{})
	if !ok.beforeCalled {
		t.Fatal("expected second hook to run despite first hook's error")
	}
}

func TestLogHookDoesNotError(t *testing.T) {
	h := LogHook{}
	if err := h.BeforeRun(RunContext{RunID: "r", URL: "https://example.com"}); err != nil {
		t.Fatalf("BeforeRun: %v", err)
	}
	if err := h.AfterRun(schema.RunSummary{RunID: "r", Summary: schema.Pass}); err != nil {
		t.Fatalf("AfterRun: %v", err)
	}
}
