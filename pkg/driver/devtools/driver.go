// Package devtools implements core.Driver with chromedp, driving Chrome directly
// over the DevTools protocol without a chromedriver process.
package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Driver implements core.Driver on one chromedp browser tab.
type Driver struct {
	ctx         context.Context // chromedp tab context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	pageLoad    time.Duration

	quitOnce sync.Once
	quitErr  error
}

// run executes actions on the tab, bounded by the caller's ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	if d.ctx.Err() != nil {
		return core.ErrSessionClosed
	}
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case d.ctx.Err() != nil:
		return core.ErrSessionClosed.WithCause(err)
	}
	return err
}

// Navigate implements core.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if d.pageLoad > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pageLoad)
		defer cancel()
	}
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.ErrPageLoadTimeout.WithMessage(fmt.Sprintf("page load exceeded %v: %s", d.pageLoad, url))
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// FindElements implements core.Driver. AtLeast(0) keeps the lookup from
// blocking; the locator does the polling.
func (d *Driver) FindElements(ctx context.Context, sel core.Selector) ([]core.Element, error) {
	query, by := queryFor(sel)
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(query, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	elems := make([]core.Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &Element{d: d, node: n})
	}
	return elems, nil
}

// queryFor picks the chromedp query for a selector. CSS forms go through
// querySelectorAll; XPath and link text through DOM.performSearch.
func queryFor(sel core.Selector) (string, chromedp.QueryOption) {
	if css, ok := sel.CSSEquivalent(); ok {
		return css, chromedp.ByQueryAll
	}
	return sel.XPathEquivalent(), chromedp.BySearch
}

// Title implements core.Driver.
func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.run(ctx, chromedp.Title(&title))
	return title, err
}

// CurrentURL implements core.Driver.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

// ExecuteScript implements core.Driver. script is a function body, as in
// WebDriver: "return document.readyState".
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	expr, err := wrapScript(script, args)
	if err != nil {
		return nil, err
	}
	var res interface{}
	if err := d.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return nil, err
	}
	return res, nil
}

// wrapScript turns a function body into an expression. undefined results
// become null so Evaluate can decode them.
func wrapScript(script string, args []interface{}) (string, error) {
	for _, a := range args {
		if _, ok := a.(*Element); ok {
			return "", fmt.Errorf("devtools: element arguments are not supported in ExecuteScript")
		}
	}
	if args == nil {
		args = []interface{}{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("devtools: encode script args: %w", err)
	}
	return fmt.Sprintf("(function(){ const r = (function(){%s}).apply(null, %s); return r === undefined ? null : r; })()", script, encoded), nil
}

// Screenshot implements core.Driver.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Quit closes the browser and its allocator.
func (d *Driver) Quit() error {
	d.quitOnce.Do(func() {
		d.quitErr = chromedp.Cancel(d.ctx)
		d.cancel()
		d.cancelAlloc()
		if errors.Is(d.quitErr, context.Canceled) {
			d.quitErr = nil
		}
	})
	return d.quitErr
}

// Element is a DOM node on the driver's tab.
type Element struct {
	d    *Driver
	node *cdp.Node
}

func (e *Element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// Click implements core.Element.
func (e *Element) Click(ctx context.Context) error {
	return e.d.run(ctx, chromedp.MouseClickNode(e.node))
}

// Clear implements core.Element.
func (e *Element) Clear(ctx context.Context) error {
	return e.d.run(ctx, chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

// SendKeys implements core.Element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.d.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

// Text implements core.Element. innerText matches what a shopper sees,
// and unlike chromedp.Text it does not wait for visibility.
func (e *Element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.callOn(ctx, `function(){ return (this.innerText || this.textContent || "").trim(); }`, &s)
	return s, err
}

// Displayed implements core.Element.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	var ok bool
	err := e.callOn(ctx, `function(){
		if (!this.isConnected) return false;
		const s = window.getComputedStyle(this);
		if (s.display === "none" || s.visibility === "hidden" || s.opacity === "0") return false;
		const r = this.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	}`, &ok)
	return ok, err
}

// Enabled implements core.Element.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	var ok bool
	err := e.callOn(ctx, `function(){ return !this.disabled && this.getAttribute("aria-disabled") !== "true"; }`, &ok)
	return ok, err
}

// Hover implements core.Element: scroll into view, then move the mouse to
// the centre of the content box.
func (e *Element) Hover(ctx context.Context) error {
	return e.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx); err != nil {
			return err
		}
		box, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		if len(box.Content) < 6 {
			return fmt.Errorf("invalid box model")
		}
		x := (box.Content[0] + box.Content[2]) / 2
		y := (box.Content[1] + box.Content[5]) / 2
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// callOn runs fn with this bound to the node and decodes its result into out.
func (e *Element) callOn(ctx context.Context, fn string, out interface{}) error {
	return e.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(strings.TrimSpace(fn)).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
}
