// Package hooks provides an in-process before/after-run extension point:
// every Hook here is registered by Go code at startup, never loaded from
// a plugin.Open'd .so file.
package hooks

import (
	"log/slog"
	"sync"

	"github.com/promptqa/promptqa/pkg/schema"
)

// RunContext carries the information a hook needs before a run starts.
type RunContext struct {
	URL    string
	Prompt string
	RunID  string
}

// Hook observes the lifecycle of one run. Implementations should return
// quickly; a slow hook delays the run it's attached to.
type Hook interface {
	Name() string
	BeforeRun(ctx RunContext) error
	AfterRun(summary schema.RunSummary) error
}

// Manager holds the registered hooks for one process and fans lifecycle
// calls out to all of them in registration order.
type Manager struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a hook. It takes the manager's lock, so it may be called
// concurrently with BeforeRun/AfterRun, but not from inside a hook.
func (m *Manager) Register(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// BeforeRun invokes every registered hook's BeforeRun. A hook's error is
// logged and does not stop the other hooks or the run itself.
func (m *Manager) BeforeRun(ctx RunContext) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.hooks {
		if err := h.BeforeRun(ctx); err != nil {
			slog.Warn("hook BeforeRun failed", "hook", h.Name(), "error", err)
		}
	}
}

// AfterRun invokes every registered hook's AfterRun, same error handling as
// BeforeRun.
func (m *Manager) AfterRun(summary schema.RunSummary) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.hooks {
		if err := h.AfterRun(summary); err != nil {
			slog.Warn("hook AfterRun failed", "hook", h.Name(), "error", err)
		}
	}
}

// LogHook is a built-in Hook that logs run start/finish via log/slog.
type LogHook struct{}

func (LogHook) Name() string { return "log" }

func (LogHook) BeforeRun(ctx RunContext) error {
	slog.Info("run starting", "runId", ctx.RunID, "url", ctx.URL, "prompt", ctx.Prompt)
	return nil
}

func (LogHook) AfterRun(summary schema.RunSummary) error {
	slog.Info("run finished", "runId", summary.RunID, "verdict", summary.Summary, "steps", len(summary.Steps), "bugs", len(summary.Bugs))
	return nil
}
