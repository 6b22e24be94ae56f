// Package capture implements the Capture Collector: a page's owned
// mutable event buffer, drained only at controlled flush() boundaries,
// holding typed, capped console/network/page-error evidence.
package capture

import (
	"sync"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/schema"
)

// Collector accumulates console, network, and page-error events between
// flush() calls. It is attached once per page and guards its
// buffers with a mutex so concurrent event-dispatch appends and a flush()
// drain never interleave into a partial frame.
type Collector struct {
	mu sync.Mutex

	maxConsole int
	maxNetwork int

	console  []schema.ConsoleEntry
	network  []schema.NetworkFailure
	pageErrs []schema.PageError
}

// New creates a Collector with the given per-category caps.
func New(maxConsole, maxNetwork int) *Collector {
	if maxConsole <= 0 {
		maxConsole = schema.DefaultMaxConsoleErrors
	}
	if maxNetwork <= 0 {
		maxNetwork = schema.DefaultMaxNetworkErrors
	}
	return &Collector{maxConsole: maxConsole, maxNetwork: maxNetwork}
}

// Attach subscribes the collector to a Driver's events: console
// entries are retained only at error/warning level, responses only at
// status >= 400, and every page error is retained.
func (c *Collector) Attach(d browser.Driver) {
	d.OnConsole(func(e browser.ConsoleEvent) {
		level, ok := reduceLevel(e.Level)
		if !ok {
			return
		}
		c.mu.Lock()
		if len(c.console) < c.maxConsole {
			c.console = append(c.console, schema.ConsoleEntry{Level: level, Text: e.Text})
		}
		c.mu.Unlock()
	})
	d.OnResponse(func(e browser.ResponseEvent) {
		if e.Status < 400 {
			return
		}
		c.mu.Lock()
		if len(c.network) < c.maxNetwork {
			c.network = append(c.network, schema.NetworkFailure{
				URL: e.URL, Status: e.Status, StatusText: e.StatusText, Method: e.Method,
			})
		}
		c.mu.Unlock()
	})
	d.OnPageError(func(e browser.PageErrorEvent) {
		c.mu.Lock()
		c.pageErrs = append(c.pageErrs, schema.PageError{Message: e.Message})
		c.mu.Unlock()
	})
}

// reduceLevel maps a raw console API type to the reduced error/warn
// vocabulary CaptureFrame retains; everything else is dropped.
func reduceLevel(raw string) (schema.ConsoleLevel, bool) {
	switch raw {
	case "error":
		return schema.ConsoleError, true
	case "warning", "warn":
		return schema.ConsoleWarn, true
	default:
		return "", false
	}
}

// Flush returns the current frame, truncated to the configured per-category
// caps, and atomically resets all buffers.
func (c *Collector) Flush() schema.CaptureFrame {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := schema.CaptureFrame{
		ConsoleEntries:  truncateConsole(c.console, c.maxConsole),
		NetworkFailures: truncateNetwork(c.network, c.maxNetwork),
		PageErrors:      append([]schema.PageError(nil), c.pageErrs...),
	}
	c.console = nil
	c.network = nil
	c.pageErrs = nil
	return frame
}

func truncateConsole(in []schema.ConsoleEntry, max int) []schema.ConsoleEntry {
	if len(in) > max {
		in = in[:max]
	}
	return append([]schema.ConsoleEntry(nil), in...)
}

func truncateNetwork(in []schema.NetworkFailure, max int) []schema.NetworkFailure {
	if len(in) > max {
		in = in[:max]
	}
	return append([]schema.NetworkFailure(nil), in...)
}
