// Package prescan implements the Prescan component: navigate
// (or not), then extract title, meta description, truncated visible text,
// and interactive elements, running the independent reads concurrently
// and joining them before returning.
package prescan

import (
	"context"
	"time"

	"github.com/promptqa/promptqa/pkg/browser"
	"github.com/promptqa/promptqa/pkg/cache"
	"github.com/promptqa/promptqa/pkg/parallel"
	"github.com/promptqa/promptqa/pkg/schema"
)

// Scanner runs prescans against a driver, optionally memoizing results in a
// snapshot cache keyed by URL.
type Scanner struct {
	driver browser.Driver
	cache  *cache.SnapshotCache
}

// New creates a Scanner. cache may be nil to disable memoization.
func New(d browser.Driver, snapshotCache *cache.SnapshotCache) *Scanner {
	return &Scanner{driver: d, cache: snapshotCache}
}

// Scan navigates to url (domcontentloaded wait, navigationTimeout) and
// returns a PageSnapshot. A cache hit skips navigation and DOM
// extraction entirely.
func (s *Scanner) Scan(ctx context.Context, url string, navigationTimeout time.Duration) (schema.PageSnapshot, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(url); ok {
			if snap, ok := v.(schema.PageSnapshot); ok {
				return snap, nil
			}
		}
	}

	if err := s.driver.Goto(ctx, url, navigationTimeout); err != nil {
		return schema.PageSnapshot{}, err
	}

	snap, err := s.extract(ctx, s.driver.URL())
	if err != nil {
		return schema.PageSnapshot{}, err
	}

	if s.cache != nil {
		s.cache.Set(url, snap)
	}
	return snap, nil
}

// ScanCurrent extracts the snapshot of whatever page is already loaded,
// without navigating. Used by the agent loop after every act.
func (s *Scanner) ScanCurrent(ctx context.Context) (schema.PageSnapshot, error) {
	return s.extract(ctx, s.driver.URL())
}

// extract runs the title/visible-text/DOM-extraction reads concurrently via
// pkg/parallel.Execute, bounding fan-out, and joins them before returning.
func (s *Scanner) extract(ctx context.Context, url string) (schema.PageSnapshot, error) {
	var (
		title, metaDescription, visibleText, outerHTML string
		elements                                        []schema.InteractiveElement
	)

	tasks := []parallel.Task{
		func() error {
			title = s.driver.Title()
			return nil
		},
		func() error {
			text, err := s.driver.InnerText(ctx, "body")
			if err != nil {
				return err
			}
			visibleText = truncate(text, 4000)
			return nil
		},
		func() error {
			desc, err := s.driver.Evaluate(ctx, `() => { const m = document.querySelector('meta[name="description"]'); return m ? m.content : ''; }`)
			if err != nil {
				return nil // best-effort
			}
			metaDescription = desc
			return nil
		},
		func() error {
			els, err := s.driver.ExtractElements(ctx)
			if err != nil {
				return err
			}
			elements = els
			return nil
		},
		func() error {
			html, err := s.driver.Evaluate(ctx, `() => document.documentElement.outerHTML`)
			if err != nil {
				return nil // best-effort, only feeds the auxiliary cross-check
			}
			outerHTML = html
			return nil
		},
	}

	for _, err := range parallel.Execute(ctx, tasks, len(tasks)) {
		if err != nil {
			return schema.PageSnapshot{}, err
		}
	}

	logElementCountMismatch(url, len(elements), countStaticInteractiveElements(outerHTML))

	return schema.PageSnapshot{
		URL:             url,
		Title:           title,
		VisibleText:     schema.TruncateVisibleText(visibleText),
		Elements:        elements,
		MetaDescription: metaDescription,
	}, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
