package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/promptqa/promptqa/pkg/schema"
)

// RodDriver implements Driver on top of go-rod/CDP: launcher setup and
// event subscription generalized into a long-lived per-run driver.
type RodDriver struct {
	browser *rod.Browser
	page    *rod.Page

	mu         sync.Mutex
	methodByID map[proto.NetworkRequestID]string

	onConsole   func(ConsoleEvent)
	onResponse  func(ResponseEvent)
	onPageError func(PageErrorEvent)
}

// LaunchConfig configures Chrome startup.
type LaunchConfig struct {
	Headless bool
	Width    int
	Height   int
}

// Launch starts Chrome (headless when cfg.Headless is set) and opens a single blank page, returning a
// ready-to-use Driver. No WebGL/SwiftShader tuning here — this drives
// ordinary web pages, not canvas-heavy applications.
func Launch(ctx context.Context, cfg LaunchConfig) (*RodDriver, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage")

	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 800
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		browser.Close()
		return nil, fmt.Errorf("setting viewport: %w", err)
	}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		browser.Close()
		return nil, fmt.Errorf("enabling network domain: %w", err)
	}

	d := &RodDriver{
		browser:    browser,
		page:       page,
		methodByID: make(map[proto.NetworkRequestID]string),
	}
	d.attachEvents()
	return d, nil
}

// attachEvents subscribes to console, network and page-error CDP events
// once per page. Handlers are driven by go-rod's own single-threaded event
// dispatch loop, satisfying the capture collector's append/drain discipline.
func (d *RodDriver) attachEvents() {
	go d.page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			d.mu.Lock()
			handler := d.onConsole
			d.mu.Unlock()
			if handler == nil {
				return
			}
			var parts []string
			for _, arg := range e.Args {
				if s := arg.Value.Str(); s != "" {
					parts = append(parts, s)
				}
			}
			handler(ConsoleEvent{Level: string(e.Type), Text: strings.Join(parts, " ")})
		},
		func(e *proto.NetworkRequestWillBeSent) {
			d.mu.Lock()
			d.methodByID[e.RequestID] = e.Request.Method
			d.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			d.mu.Lock()
			method := d.methodByID[e.RequestID]
			handler := d.onResponse
			d.mu.Unlock()
			if handler == nil {
				return
			}
			handler(ResponseEvent{
				URL:        e.Response.URL,
				Status:     e.Response.Status,
				StatusText: e.Response.StatusText,
				Method:     method,
			})
		},
		func(e *proto.RuntimeExceptionThrown) {
			d.mu.Lock()
			handler := d.onPageError
			d.mu.Unlock()
			if handler == nil {
				return
			}
			msg := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				msg = e.ExceptionDetails.Exception.Description
			}
			handler(PageErrorEvent{Message: msg})
		},
	)()
}

func (d *RodDriver) OnConsole(fn func(ConsoleEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onConsole = fn
}

func (d *RodDriver) OnResponse(fn func(ResponseEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResponse = fn
}

func (d *RodDriver) OnPageError(fn func(PageErrorEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onPageError = fn
}

func (d *RodDriver) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p := d.page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0); err != nil {
		// best-effort: a page that never stabilizes (e.g. live updates) isn't a nav failure
		_ = err
	}
	return nil
}

func (d *RodDriver) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	p := d.page.Context(ctx).Timeout(timeout)
	switch state {
	case LoadNetworkIdle:
		return p.WaitIdle(timeout)
	default:
		return p.WaitLoad()
	}
}

func (d *RodDriver) WaitMillis(ctx context.Context, ms int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	}
}

func (d *RodDriver) PressKey(ctx context.Context, key string, timeout time.Duration) error {
	k, ok := keyMap[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("press_key: unknown key %q", key)
	}
	return d.page.Context(ctx).Timeout(timeout).Keyboard.Type(k)
}

// keyMap translates the key names PromptQA's press_key step accepts into
// go-rod's input.Key constants.
var keyMap = map[string]input.Key{
	"enter":      input.Enter,
	"return":     input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"space":      input.Space,
	"arrowdown":  input.ArrowDown,
	"arrowup":    input.ArrowUp,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"delete":     input.Delete,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
}

func (d *RodDriver) Screenshot(ctx context.Context, path string) error {
	data, err := d.ScreenshotBytes(ctx)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (d *RodDriver) ScreenshotBytes(ctx context.Context) ([]byte, error) {
	data, err := d.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

func (d *RodDriver) InnerText(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		selector = "body"
	}
	js := `(sel) => { const el = document.querySelector(sel); return el ? el.innerText : ''; }`
	res, err := d.page.Context(ctx).Eval(js, selector)
	if err != nil {
		return "", fmt.Errorf("innerText %q: %w", selector, err)
	}
	return res.Value.Str(), nil
}

func (d *RodDriver) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *RodDriver) Title() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (d *RodDriver) Evaluate(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := d.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (d *RodDriver) AddCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:  c.Name,
			Value: c.Value,
			URL:   c.URL,
		})
	}
	return d.page.Context(ctx).SetCookies(params)
}

func (d *RodDriver) Close() error {
	return d.browser.Close()
}

func (d *RodDriver) Locator(hint schema.SelectorHint) (Locator, error) {
	sel, err := cssFor(hint)
	if err != nil {
		return nil, err
	}
	return &rodLocator{page: d.page, selector: sel, hint: hint}, nil
}

// ExtractElements enumerates interactive elements via a single in-page
// extraction routine: buttons, links, inputs, selects,
// textareas, de-duplicated by DOM node, labels derived from aria-label,
// <label for>, or an enclosing <label>.
func (d *RodDriver) ExtractElements(ctx context.Context) ([]schema.InteractiveElement, error) {
	res, err := d.page.Context(ctx).Eval(extractElementsJS)
	if err != nil {
		return nil, fmt.Errorf("extracting interactive elements: %w", err)
	}
	var out []schema.InteractiveElement
	if err := res.Value.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("decoding extracted elements: %w", err)
	}
	return out, nil
}

// extractElementsJS enumerates button, [role=button], a[href], input,
// select, textarea nodes and derives a label from aria-label, a matching
// <label for>, or an enclosing <label>, against the live DOM instead of a
// static HTML string.
const extractElementsJS = `() => {
	function label(el) {
		const aria = el.getAttribute('aria-label');
		if (aria) return aria;
		if (el.id) {
			const byFor = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			if (byFor) return byFor.textContent.trim();
		}
		const enclosing = el.closest('label');
		if (enclosing) return enclosing.textContent.trim();
		return '';
	}
	const seen = new Set();
	const out = [];
	const nodes = document.querySelectorAll('button, [role=button], a[href], input, select, textarea');
	for (const el of nodes) {
		if (seen.has(el)) continue;
		seen.add(el);
		const tag = el.tagName.toLowerCase();
		const item = {
			tag: tag,
			type: el.getAttribute('type') || '',
			text: (el.textContent || el.value || '').trim().slice(0, 200),
			testId: el.getAttribute('data-testid') || '',
			name: el.getAttribute('name') || label(el),
			placeholder: el.getAttribute('placeholder') || '',
			href: el.getAttribute('href') || '',
			disabled: !!el.disabled,
			readOnly: !!el.readOnly,
			ariaBusy: el.getAttribute('aria-busy') === 'true',
			classList: Array.from(el.classList || []),
		};
		if (tag === 'select') {
			item.options = Array.from(el.options || []).map(o => o.value);
		}
		out.push(item);
	}
	return out;
}`

type rodLocator struct {
	page     *rod.Page
	selector string
	hint     schema.SelectorHint
}

func (l *rodLocator) element(ctx context.Context, timeout time.Duration) (*rod.Element, error) {
	el, err := l.page.Context(ctx).Timeout(timeout).Element(l.selector)
	if err != nil {
		return nil, fmt.Errorf("locate %s=%q: %w", l.hint.Strategy, l.hint.Value, err)
	}
	return el, nil
}

func (l *rodLocator) Click(ctx context.Context, timeout time.Duration) error {
	el, err := l.element(ctx, timeout)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (l *rodLocator) Fill(ctx context.Context, value string, timeout time.Duration) error {
	el, err := l.element(ctx, timeout)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(value)
}

func (l *rodLocator) SelectOption(ctx context.Context, value string, timeout time.Duration) error {
	el, err := l.element(ctx, timeout)
	if err != nil {
		return err
	}
	return el.Select([]string{value}, true, rod.SelectorTypeText)
}

func (l *rodLocator) SetInputFiles(ctx context.Context, path string, timeout time.Duration) error {
	el, err := l.element(ctx, timeout)
	if err != nil {
		return err
	}
	return el.SetFiles([]string{path})
}

func (l *rodLocator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	el, err := l.element(ctx, timeout)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (l *rodLocator) InnerText(ctx context.Context, timeout time.Duration) (string, error) {
	el, err := l.element(ctx, timeout)
	if err != nil {
		return "", err
	}
	return el.Text()
}

// cssFor translates a SelectorHint into a go-rod selector string.
// role/text strategies use go-rod's pseudo-selector syntax.
func cssFor(hint schema.SelectorHint) (string, error) {
	switch hint.Strategy {
	case schema.StrategyTestID:
		return fmt.Sprintf(`[data-testid=%q]`, hint.Value), nil
	case schema.StrategyRole:
		if hint.Role == "" {
			return "", fmt.Errorf("selector: strategy=role requires role (hint=%+v)", hint)
		}
		if hint.Name != "" {
			return fmt.Sprintf(`[role=%q][aria-label=%q], [role=%q]:has-text(%q)`, hint.Role, hint.Name, hint.Role, hint.Name), nil
		}
		return fmt.Sprintf(`[role=%q]`, hint.Role), nil
	case schema.StrategyText:
		return fmt.Sprintf(`:has-text(%q)`, hint.Value), nil
	case schema.StrategyCSS:
		return hint.Value, nil
	default:
		return "", fmt.Errorf("selector: unknown strategy %q", hint.Strategy)
	}
}
