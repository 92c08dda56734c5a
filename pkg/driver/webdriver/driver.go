package webdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// quitTimeout bounds session deletion during Quit.
const quitTimeout = 10 * time.Second

// Driver implements core.Driver using a WebDriver server.
type Driver struct {
	client  *Client
	service *Service // nil for remote servers
}

// NewDriver wraps a connected client. service, if non-nil, is stopped on Quit.
func NewDriver(client *Client, service *Service) *Driver {
	return &Driver{client: client, service: service}
}

// Client returns the underlying protocol client.
func (d *Driver) Client() *Client {
	return d.client
}

// Navigate implements core.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.client.OpenURL(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// FindElements implements core.Driver.
func (d *Driver) FindElements(ctx context.Context, sel core.Selector) ([]core.Element, error) {
	using, value := strategyFor(sel)
	ids, err := d.client.FindElements(ctx, using, value)
	if err != nil {
		if isCode(err, "no such element") {
			return nil, nil
		}
		return nil, err
	}
	elems := make([]core.Element, 0, len(ids))
	for _, id := range ids {
		elems = append(elems, &Element{client: d.client, id: id})
	}
	return elems, nil
}

// Title implements core.Driver.
func (d *Driver) Title(ctx context.Context) (string, error) {
	return d.client.Title(ctx)
}

// CurrentURL implements core.Driver.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	return d.client.CurrentURL(ctx)
}

// ExecuteScript implements core.Driver.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	wire := make([]interface{}, len(args))
	for i, a := range args {
		if e, ok := a.(*Element); ok {
			wire[i] = map[string]interface{}{w3cElementKey: e.id}
			continue
		}
		wire[i] = a
	}
	return d.client.ExecuteScript(ctx, script, wire)
}

// Screenshot implements core.Driver.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.client.Screenshot(ctx)
}

// Quit deletes the session and stops the local chromedriver, if any.
func (d *Driver) Quit() error {
	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()

	err := d.client.Disconnect(ctx)
	if err != nil {
		logger.Warn("webdriver: delete session: %v", err)
	}
	if d.service != nil {
		if stopErr := d.service.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}

// strategyFor maps a selector onto a W3C location strategy.
// id, name and class have no W3C strategy of their own and go through CSS.
func strategyFor(sel core.Selector) (using, value string) {
	switch sel.Kind {
	case core.ByXPath:
		return "xpath", sel.Value
	case core.ByLinkText:
		return "link text", sel.Value
	}
	if css, ok := sel.CSSEquivalent(); ok {
		return "css selector", css
	}
	return "xpath", sel.XPathEquivalent()
}

// Element is a WebDriver element reference.
type Element struct {
	client *Client
	id     string
}

// ID returns the WebDriver element reference.
func (e *Element) ID() string {
	return e.id
}

// Click implements core.Element.
func (e *Element) Click(ctx context.Context) error {
	return e.client.ClickElement(ctx, e.id)
}

// Clear implements core.Element.
func (e *Element) Clear(ctx context.Context) error {
	return e.client.ClearElement(ctx, e.id)
}

// SendKeys implements core.Element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.client.SendKeysToElement(ctx, e.id, text)
}

// Text implements core.Element.
func (e *Element) Text(ctx context.Context) (string, error) {
	return e.client.GetElementText(ctx, e.id)
}

// Displayed implements core.Element.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	return e.client.IsElementDisplayed(ctx, e.id)
}

// Enabled implements core.Element.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.client.IsElementEnabled(ctx, e.id)
}

// Hover implements core.Element.
func (e *Element) Hover(ctx context.Context) error {
	return e.client.MoveToElement(ctx, e.id)
}
