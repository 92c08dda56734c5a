// Package mock provides an in-memory storefront driver for testing without
// a real browser.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/devicelab-dev/shopcheck/pkg/site"
)

// Config configures mock storefront behavior.
type Config struct {
	// Site whose selectors the storefront answers. Default: site.Amazon("").
	Site *site.Site
	// Results is the number of results a search returns. 0 = default (3).
	Results int
	// NoResults makes every search return an empty result page.
	NoResults bool
	// CartBroken makes add-to-cart clicks do nothing.
	CartBroken bool
	// NoHamburger removes the navigation menu trigger from every page.
	NoHamburger bool
	// PrimaryGone hides the first selector of every chain, forcing fallbacks.
	PrimaryGone bool
	// ScreenshotErr makes Screenshot fail.
	ScreenshotErr error
	// QuitErr is returned from Quit.
	QuitErr error
	// ActionDelay adds artificial latency to every driver call.
	ActionDelay time.Duration
	// SearchLatency is how many lookups pass before search results render.
	SearchLatency int
}

type page int

const (
	pageBlank page = iota
	pageHome
	pageResults
	pageProduct
)

// element keys
const (
	keySearchBox    = "searchBox"
	keySearchSubmit = "searchSubmit"
	keyResult       = "result"
	keyProductLink  = "productLink"
	keyAddToCart    = "addToCart"
	keyCartCount    = "cartCount"
	keyHamburger    = "hamburger"
	keyMenuItem     = "menuItem"
)

// Driver is a mock implementation of core.Driver simulating a storefront.
type Driver struct {
	Config Config

	mu       sync.Mutex
	keys     map[core.Selector]string
	page     page
	query    string
	typed    string
	cart     int
	menuOpen bool
	hovered  string
	pending  int // lookups until results render
	closed   bool
	history  []string
	shots    int
	quits    int
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	if cfg.Site == nil {
		cfg.Site = site.Amazon("")
	}
	if cfg.Results == 0 {
		cfg.Results = 3
	}
	d := &Driver{Config: cfg, keys: make(map[core.Selector]string)}

	s := cfg.Site
	bind := map[string][]core.Selector{
		keySearchBox:    s.SearchBox.Selectors,
		keySearchSubmit: s.SearchSubmit.Selectors,
		keyResult:       s.SearchResults.Selectors,
		keyProductLink:  s.FirstProduct.Selectors,
		keyAddToCart:    s.AddToCart.Selectors,
		keyCartCount:    s.CartCount.Selectors,
		keyHamburger:    s.Hamburger.Selectors,
		keyMenuItem:     s.MenuItems.Selectors,
	}
	for key, sels := range bind {
		for i, sel := range sels {
			if cfg.PrimaryGone && i == 0 {
				continue
			}
			d.keys[sel] = key
		}
	}
	return d
}

func (d *Driver) delay(ctx context.Context) error {
	if d.Config.ActionDelay > 0 {
		select {
		case <-time.After(d.Config.ActionDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// check returns ErrSessionClosed after Quit. Callers hold mu.
func (d *Driver) check() error {
	if d.closed {
		return core.ErrSessionClosed
	}
	return nil
}

// Navigate loads url. Any URL under the site's base URL shows the home page.
func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	if err := d.delay(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	d.history = append(d.history, rawURL)
	if !strings.HasPrefix(rawURL, d.Config.Site.BaseURL) {
		return fmt.Errorf("mock: no route to %s", rawURL)
	}
	d.page = pageHome
	d.menuOpen = false
	return nil
}

// FindElements returns the elements currently rendered for sel.
func (d *Driver) FindElements(ctx context.Context, sel core.Selector) ([]core.Element, error) {
	if err := d.delay(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.pending > 0 {
		d.pending--
	}

	key, ok := d.keys[sel]
	if !ok || !d.rendered(key) {
		return []core.Element{}, nil
	}

	n := 1
	switch key {
	case keyResult, keyProductLink:
		n = d.Config.Results
	case keyMenuItem:
		n = len(menuLabels)
	}
	els := make([]core.Element, n)
	for i := range els {
		els[i] = &Element{d: d, key: key, index: i}
	}
	return els, nil
}

// rendered reports whether key is on the current page. Callers hold mu.
func (d *Driver) rendered(key string) bool {
	if d.page == pageBlank {
		return false
	}
	switch key {
	case keySearchBox, keySearchSubmit, keyCartCount:
		return true
	case keyHamburger:
		return !d.Config.NoHamburger
	case keyMenuItem:
		return d.menuOpen && !d.Config.NoHamburger
	case keyResult, keyProductLink:
		return d.page == pageResults && d.pending == 0 && !d.Config.NoResults
	case keyAddToCart:
		return d.page == pageProduct
	}
	return false
}

// Title returns the document title for the current page.
func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := d.delay(ctx); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return "", err
	}
	switch d.page {
	case pageHome:
		return "Amazon.com. Spend less. Smile more.", nil
	case pageResults:
		if d.pending > 0 {
			return "Amazon.com", nil
		}
		return "Amazon.com : " + d.query, nil
	case pageProduct:
		return "Amazon.com: Mock Laptop 15.6\" FHD, 16GB RAM : Electronics", nil
	}
	return "", nil
}

// CurrentURL returns the current page URL.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return "", err
	}
	base := d.Config.Site.BaseURL
	switch d.page {
	case pageHome:
		return base + "/", nil
	case pageResults:
		return base + "/s?k=" + url.QueryEscape(d.query), nil
	case pageProduct:
		return base + "/dp/B0MOCK0001", nil
	}
	return "about:blank", nil
}

// ExecuteScript answers document.readyState and ignores other scripts.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if strings.Contains(script, "document.readyState") {
		return "complete", nil
	}
	return nil, nil
}

// Screenshot returns a small PNG.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.Config.ScreenshotErr != nil {
		return nil, d.Config.ScreenshotErr
	}
	d.shots++

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, G: 153, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Quit closes the mock session.
func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	d.closed = true
	return d.Config.QuitErr
}

// Cart returns the current cart count.
func (d *Driver) Cart() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cart
}

// Screenshots returns how many screenshots were taken.
func (d *Driver) Screenshots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shots
}

// Quits returns how many times Quit was called.
func (d *Driver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

// History returns every navigated URL.
func (d *Driver) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

// Hovered returns the key of the last hovered element.
func (d *Driver) Hovered() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hovered
}

var menuLabels = []string{"Trending", "Digital Content & Devices", "Shop by Department", "Programs & Features", "Help & Settings"}

// Element is a handle into the mock storefront.
type Element struct {
	d     *Driver
	key   string
	index int
}

func (e *Element) lock(ctx context.Context) error {
	if err := e.d.delay(ctx); err != nil {
		return err
	}
	e.d.mu.Lock()
	if err := e.d.check(); err != nil {
		e.d.mu.Unlock()
		return err
	}
	if !e.d.rendered(e.key) {
		e.d.mu.Unlock()
		return fmt.Errorf("mock: stale element reference: %s", e.key)
	}
	return nil
}

// Click performs the element's action.
func (e *Element) Click(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	d := e.d
	defer d.mu.Unlock()

	switch e.key {
	case keySearchSubmit:
		if strings.TrimSpace(d.typed) == "" {
			return nil
		}
		d.page = pageResults
		d.query = d.typed
		d.pending = d.Config.SearchLatency
		d.menuOpen = false
	case keyResult, keyProductLink:
		d.page = pageProduct
		d.menuOpen = false
	case keyAddToCart:
		if !d.Config.CartBroken {
			d.cart++
		}
	case keyHamburger:
		d.menuOpen = true
	}
	return nil
}

// Clear empties the search box.
func (e *Element) Clear(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.d.mu.Unlock()
	if e.key == keySearchBox {
		e.d.typed = ""
	}
	return nil
}

// SendKeys types into the search box.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.d.mu.Unlock()
	if e.key != keySearchBox {
		return fmt.Errorf("mock: element %s is not interactable", e.key)
	}
	e.d.typed += text
	return nil
}

// Text returns the visible text.
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.lock(ctx); err != nil {
		return "", err
	}
	d := e.d
	defer d.mu.Unlock()

	switch e.key {
	case keyCartCount:
		return strconv.Itoa(d.cart), nil
	case keyMenuItem:
		return menuLabels[e.index%len(menuLabels)], nil
	case keyResult, keyProductLink:
		return fmt.Sprintf("Mock %s #%d", d.query, e.index+1), nil
	case keyHamburger:
		return "All", nil
	case keyAddToCart:
		return "Add to Cart", nil
	}
	return "", nil
}

// Displayed reports whether the element is still rendered.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	e.d.mu.Unlock()
	return true, nil
}

// Enabled reports whether the element accepts input.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.Displayed(ctx)
}

// Hover moves the pointer over the element.
func (e *Element) Hover(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.d.mu.Unlock()
	e.d.hovered = e.key
	return nil
}

// Launcher implements session.Launcher with mock storefronts.
type Launcher struct {
	Config Config
	// Err fails every launch.
	Err error

	mu      sync.Mutex
	drivers []*Driver
}

// Name returns the backend name.
func (l *Launcher) Name() string { return "mock" }

// Launch creates a fresh storefront.
func (l *Launcher) Launch(ctx context.Context, _ session.Config) (core.Driver, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	d := New(l.Config)
	l.mu.Lock()
	l.drivers = append(l.drivers, d)
	l.mu.Unlock()
	return d, nil
}

// Drivers returns every driver launched so far.
func (l *Launcher) Drivers() []*Driver {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Driver(nil), l.drivers...)
}
