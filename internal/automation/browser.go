package automation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// BrowserAutomation handles page interactions. Every helper blocks until the
// interaction finished or its timeout expired; timeouts surface as
// *types.NavigationError.
type BrowserAutomation struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewBrowserAutomation wraps a Rod page with automation helpers.
func NewBrowserAutomation(page *rod.Page, logger *slog.Logger) *BrowserAutomation {
	return &BrowserAutomation{
		page:   page,
		logger: logger.With("component", "browser_automation"),
	}
}

// Page returns the wrapped page.
func (ba *BrowserAutomation) Page() *rod.Page {
	return ba.page
}

func (ba *BrowserAutomation) bounded(ctx context.Context, timeout time.Duration) *rod.Page {
	return ba.page.Context(ctx).Timeout(timeout)
}

// --- Waiting ---

// WaitFor waits until an element matches selector.
func (ba *BrowserAutomation) WaitFor(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	el, err := ba.bounded(ctx, timeout).Element(selector)
	if err != nil {
		return nil, &types.NavigationError{Op: "wait for element", Target: selector, Err: err}
	}
	return el.Context(ctx), nil
}

// WaitForAny waits until at least one element matches selector.
func (ba *BrowserAutomation) WaitForAny(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ba.bounded(ctx, timeout).WaitElementsMoreThan(selector, 0); err != nil {
		return &types.NavigationError{Op: "wait for elements", Target: selector, Err: err}
	}
	return nil
}

// WaitForSelectorOrText waits until an element matches selector, or an
// element matching textSelector has trimmed text equal to text.
func (ba *BrowserAutomation) WaitForSelectorOrText(ctx context.Context, selector, textSelector, text string, timeout time.Duration) error {
	pattern := `^\s*` + regexp.QuoteMeta(text) + `\s*$`
	if _, err := ba.bounded(ctx, timeout).Race().
		Element(selector).
		ElementR(textSelector, pattern).
		Do(); err != nil {
		return &types.NavigationError{Op: "wait for page", Target: selector + " | " + text, Err: err}
	}
	return nil
}

// WaitNavigation returns a function that blocks until the next navigation
// of the page went almost idle. Call it before the action that navigates.
func (ba *BrowserAutomation) WaitNavigation(ctx context.Context, timeout time.Duration) func() {
	return ba.bounded(ctx, timeout).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
}

// --- Click ---

// ClickByText clicks the first element matching selector whose trimmed text
// equals text exactly, waiting up to timeout for it to appear.
func (ba *BrowserAutomation) ClickByText(ctx context.Context, selector, text string, timeout time.Duration) error {
	pattern := `^\s*` + regexp.QuoteMeta(text) + `\s*$`
	el, err := ba.bounded(ctx, timeout).ElementR(selector, pattern)
	if err != nil {
		return &types.NavigationError{Op: "find by text", Target: text, Err: err}
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", text, err)
	}
	return nil
}

// --- Form Interaction ---

// ClearInput selects the content of an input and deletes it.
func (ba *BrowserAutomation) ClearInput(el *rod.Element) error {
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus input: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select input text: %w", err)
	}
	return ba.page.Keyboard.Press(input.Backspace)
}

// TypeSlowly clears the input matched by selector and types text one
// character at a time with delay between characters.
func (ba *BrowserAutomation) TypeSlowly(ctx context.Context, selector, text string, delay, timeout time.Duration) error {
	el, err := ba.WaitFor(ctx, selector, timeout)
	if err != nil {
		return err
	}
	return ba.TypeInto(ctx, el, text, delay)
}

// TypeInto clears el and types text one character at a time.
func (ba *BrowserAutomation) TypeInto(ctx context.Context, el *rod.Element, text string, delay time.Duration) error {
	if err := ba.ClearInput(el); err != nil {
		return err
	}
	page := el.Page()
	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return fmt.Errorf("type text: %w", err)
		}
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// PressEnter presses the Enter key on the focused element.
func (ba *BrowserAutomation) PressEnter() error {
	return ba.page.Keyboard.Press(input.Enter)
}

// SelectByValue selects the option of a <select> element whose value
// attribute equals value.
func (ba *BrowserAutomation) SelectByValue(el *rod.Element, value string) error {
	return el.Select([]string{fmt.Sprintf("[value=%q]", value)}, true, rod.SelectorTypeCSSSector)
}

// --- Scrolling ---

// Wheel parks the pointer at (x, y) and dispatches one wheel scroll of
// delta pixels.
func (ba *BrowserAutomation) Wheel(x, y float64, delta int) error {
	if err := ba.page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return fmt.Errorf("move pointer: %w", err)
	}
	if err := ba.page.Mouse.Scroll(0, float64(delta), 1); err != nil {
		return fmt.Errorf("wheel scroll: %w", err)
	}
	return nil
}

// --- Misc ---

// EvalJS executes JavaScript on the page and returns the result.
func (ba *BrowserAutomation) EvalJS(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	return ba.page.Context(ctx).Eval(js, args...)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
