// Package browser wraps the browser automation library behind a narrow
// interface, so nothing above it ever imports
// go-rod directly. A Driver owns one page/tab for the lifetime of one run.
package browser

import (
	"context"
	"time"

	"github.com/promptqa/promptqa/pkg/schema"
)

// LoadState names a load-completion condition a caller can wait for.
type LoadState string

const (
	LoadDOMContentLoaded LoadState = "domcontentloaded"
	LoadNetworkIdle      LoadState = "networkidle"
)

// Cookie is one pre-auth cookie to attach before any navigation.
type Cookie struct {
	Name  string
	Value string
	URL   string
}

// ConsoleEvent is one console.* call observed on the page.
type ConsoleEvent struct {
	Level string // "log", "warning", "error", ...
	Text  string
}

// ResponseEvent is one network response observed on the page.
type ResponseEvent struct {
	URL        string
	Status     int
	StatusText string
	Method     string
}

// PageErrorEvent is one uncaught exception observed on the page.
type PageErrorEvent struct {
	Message string
}

// Locator resolves a SelectorHint to a concrete, lazily-bound element.
// Resolution happens at action time, not when Driver.Locator is called.
// There is no automatic fallback between strategies; a bad hint surfaces as
// an action-time timeout.
type Locator interface {
	Click(ctx context.Context, timeout time.Duration) error
	Fill(ctx context.Context, value string, timeout time.Duration) error
	SelectOption(ctx context.Context, value string, timeout time.Duration) error
	SetInputFiles(ctx context.Context, path string, timeout time.Duration) error
	WaitVisible(ctx context.Context, timeout time.Duration) error
	InnerText(ctx context.Context, timeout time.Duration) (string, error)
}

// Driver is the narrow surface every caller above pkg/browser programs
// against. It wraps exactly one page for the run's lifetime.
type Driver interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	Locator(hint schema.SelectorHint) (Locator, error)
	PressKey(ctx context.Context, key string, timeout time.Duration) error
	WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error
	WaitMillis(ctx context.Context, ms int) error
	Screenshot(ctx context.Context, path string) error
	ScreenshotBytes(ctx context.Context) ([]byte, error)
	InnerText(ctx context.Context, selector string) (string, error)
	URL() string
	Title() string
	Evaluate(ctx context.Context, js string, args ...interface{}) (string, error)
	ExtractElements(ctx context.Context) ([]schema.InteractiveElement, error)
	AddCookies(ctx context.Context, cookies []Cookie) error
	OnConsole(func(ConsoleEvent))
	OnResponse(func(ResponseEvent))
	OnPageError(func(PageErrorEvent))
	Close() error
}
