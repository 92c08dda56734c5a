// Package playwright implements core.Driver with playwright-go, launching
// Chromium through the Playwright driver.
package playwright

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/playwright-community/playwright-go"
)

// Driver implements core.Driver on one Playwright page.
type Driver struct {
	browser  playwright.Browser
	page     playwright.Page
	pageLoad time.Duration

	mu     sync.Mutex
	closed bool
}

func (d *Driver) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.page.IsClosed() {
		return core.ErrSessionClosed
	}
	return nil
}

// Navigate implements core.Driver. Waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeoutMs(ctx, d.pageLoad),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return core.ErrPageLoadTimeout.WithCause(err)
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// FindElements implements core.Driver.
func (d *Driver) FindElements(ctx context.Context, sel core.Selector) ([]core.Element, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	handles, err := d.page.QuerySelectorAll(selectorFor(sel))
	if err != nil {
		return nil, err
	}
	elems := make([]core.Element, 0, len(handles))
	for _, h := range handles {
		elems = append(elems, &Element{d: d, handle: h})
	}
	return elems, nil
}

// selectorFor converts a selector to Playwright's engine=value syntax.
func selectorFor(sel core.Selector) string {
	if css, ok := sel.CSSEquivalent(); ok {
		return "css=" + css
	}
	return "xpath=" + sel.XPathEquivalent()
}

// Title implements core.Driver.
func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.page.Title()
}

// CurrentURL implements core.Driver.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}

// ExecuteScript implements core.Driver. script is a function body, as in
// WebDriver; element arguments are passed as handles.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	wire := make([]interface{}, len(args))
	for i, a := range args {
		if e, ok := a.(*Element); ok {
			wire[i] = e.handle
			continue
		}
		wire[i] = a
	}
	return d.page.Evaluate(wrapScript(script), wire)
}

func wrapScript(script string) string {
	return fmt.Sprintf("(args) => { const r = (function(){%s}).apply(null, args); return r === undefined ? null : r; }", script)
}

// Screenshot implements core.Driver.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	return d.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: timeoutMs(ctx, 0),
	})
}

// Quit closes the page's browser.
func (d *Driver) Quit() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.browser.Close()
}

// timeoutMs returns the smaller of def and the time left on ctx, in
// milliseconds, or nil to use the context default.
func timeoutMs(ctx context.Context, def time.Duration) *float64 {
	limit := def
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); limit <= 0 || left < limit {
			limit = left
		}
	}
	if limit <= 0 {
		return nil
	}
	return playwright.Float(float64(limit.Milliseconds()))
}

// Element wraps a Playwright element handle.
type Element struct {
	d      *Driver
	handle playwright.ElementHandle
}

// Click implements core.Element.
func (e *Element) Click(ctx context.Context) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	return e.handle.Click(playwright.ElementHandleClickOptions{Timeout: timeoutMs(ctx, 0)})
}

// Clear implements core.Element.
func (e *Element) Clear(ctx context.Context) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	return e.handle.Fill("", playwright.ElementHandleFillOptions{Timeout: timeoutMs(ctx, 0)})
}

// SendKeys implements core.Element. A trailing newline presses Enter.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	body, enter := strings.CutSuffix(text, "\n")
	if body != "" {
		if err := e.handle.Type(body, playwright.ElementHandleTypeOptions{Timeout: timeoutMs(ctx, 0)}); err != nil {
			return err
		}
	}
	if enter {
		return e.handle.Press("Enter")
	}
	return nil
}

// Text implements core.Element.
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.d.check(ctx); err != nil {
		return "", err
	}
	s, err := e.handle.InnerText()
	return strings.TrimSpace(s), err
}

// Displayed implements core.Element.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := e.d.check(ctx); err != nil {
		return false, err
	}
	return e.handle.IsVisible()
}

// Enabled implements core.Element.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := e.d.check(ctx); err != nil {
		return false, err
	}
	return e.handle.IsEnabled()
}

// Hover implements core.Element.
func (e *Element) Hover(ctx context.Context) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	return e.handle.Hover(playwright.ElementHandleHoverOptions{Timeout: timeoutMs(ctx, 0)})
}

// describe is used in debug logs.
func describe(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
