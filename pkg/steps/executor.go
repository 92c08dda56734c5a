// Package steps implements the storefront scenario steps and binds them to
// godog.
package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/locator"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/scenario"
	"github.com/devicelab-dev/shopcheck/pkg/site"
)

// Executor runs steps for one scenario against one browser.
type Executor struct {
	driver core.Driver
	loc    *locator.Locator
	site   *site.Site
	sc     *scenario.Context
	log    *logger.Entry
}

// NewExecutor binds the steps to driver. sc may be nil.
func NewExecutor(driver core.Driver, s *site.Site, policy locator.WaitPolicy, sc *scenario.Context) *Executor {
	name := ""
	if sc != nil {
		name = sc.Name
	}
	return &Executor{
		driver: driver,
		loc:    locator.New(driver, policy),
		site:   s,
		sc:     sc,
		log:    logger.With(logger.Fields{"scenario": name}),
	}
}

// OpenHomePage loads the storefront and waits until the search box is present.
func (e *Executor) OpenHomePage(ctx context.Context) error {
	url := e.site.HomeURL()
	e.log.Info("opening %s", url)
	if err := e.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := e.loc.Policy().Until(ctx, "document ready", e.documentReady); err != nil {
		return err
	}
	_, err := e.loc.Locate(ctx, e.site.SearchBox, locator.Present())
	return err
}

func (e *Executor) documentReady(ctx context.Context) (bool, error) {
	state, err := e.driver.ExecuteScript(ctx, "return document.readyState")
	if err != nil {
		return false, err
	}
	s, _ := state.(string)
	return s == "complete" || s == "interactive", nil
}

// SearchFor types term into the search box, submits, and waits for results
// to start rendering.
func (e *Executor) SearchFor(ctx context.Context, term string) error {
	err := e.search(ctx, term)
	if err != nil && e.sc != nil {
		e.sc.Log("Failed to perform search: %v", err)
	}
	return err
}

func (e *Executor) search(ctx context.Context, term string) error {
	box, err := e.loc.Locate(ctx, e.site.SearchBox, locator.Clickable())
	if err != nil {
		return err
	}
	if err := box.First().Clear(ctx); err != nil {
		return fmt.Errorf("clear search box: %w", err)
	}
	if err := box.First().SendKeys(ctx, term); err != nil {
		return fmt.Errorf("type %q: %w", term, err)
	}

	submit, err := e.loc.Locate(ctx, e.site.SearchSubmit, locator.Clickable())
	if err != nil {
		return err
	}
	if err := submit.First().Click(ctx); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}

	_, err = e.loc.Locate(ctx, e.site.SearchResults, locator.Present())
	return err
}

// ShouldSeeSearchResults asserts at least one result is listed.
func (e *Executor) ShouldSeeSearchResults(ctx context.Context) error {
	m, err := e.loc.Locate(ctx, e.site.SearchResults, locator.CountAbove(0))
	if err != nil {
		if isNotFound(err) {
			return &core.StepAssertionError{Step: "search results", Expected: "more than 0 results", Actual: "0 results"}
		}
		return err
	}
	e.log.Debug("%d search results via %s", m.Count(), m.Selector)
	return nil
}

// TitleShouldContain asserts the page title contains text, ignoring case.
// The title is polled because it updates after client-side rendering.
func (e *Executor) TitleShouldContain(ctx context.Context, text string) error {
	want := strings.ToLower(text)
	var title string
	err := e.loc.Policy().Until(ctx, fmt.Sprintf("title to contain %q", text), func(ctx context.Context) (bool, error) {
		t, err := e.driver.Title(ctx)
		if err != nil {
			return false, err
		}
		title = t
		return strings.Contains(strings.ToLower(t), want), nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrWaitTimeout) {
		return &core.StepAssertionError{
			Step:     "page title",
			Expected: fmt.Sprintf("title containing %q", text),
			Actual:   fmt.Sprintf("%q", title),
		}
	}
	return err
}

// ClickFirstProduct opens the first search result.
func (e *Executor) ClickFirstProduct(ctx context.Context) error {
	m, err := e.loc.Locate(ctx, e.site.FirstProduct, locator.Clickable())
	if err != nil {
		return err
	}
	if err := m.First().Click(ctx); err != nil {
		return fmt.Errorf("click first product: %w", err)
	}
	return nil
}

// AddProductToCart clicks the product page's add-to-cart button.
func (e *Executor) AddProductToCart(ctx context.Context) error {
	m, err := e.loc.Locate(ctx, e.site.AddToCart, locator.Clickable())
	if err != nil {
		return err
	}
	if err := m.First().Click(ctx); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// CartCountShouldBe asserts the cart badge shows expected. The badge is
// polled until it matches or the wait expires.
func (e *Executor) CartCountShouldBe(ctx context.Context, expected string) error {
	m, err := e.loc.Locate(ctx, e.site.CartCount, locator.Present())
	if err != nil {
		return err
	}

	var actual string
	err = e.loc.Policy().Until(ctx, "cart count "+expected, func(ctx context.Context) (bool, error) {
		text, err := m.First().Text(ctx)
		if err != nil {
			return false, err
		}
		actual = strings.TrimSpace(text)
		return actual == expected, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrWaitTimeout) {
		return &core.StepAssertionError{
			Step:     "cart count",
			Expected: fmt.Sprintf("%q", expected),
			Actual:   fmt.Sprintf("%q", actual),
		}
	}
	return err
}

// HoverOverMenu moves the pointer over the navigation menu trigger.
// Every label opens the same "All" departments menu.
func (e *Executor) HoverOverMenu(ctx context.Context, label string) error {
	e.log.Debug("hovering %q menu", label)
	m, err := e.loc.Locate(ctx, e.site.Hamburger, locator.Clickable())
	if err != nil {
		return err
	}
	if err := m.First().Hover(ctx); err != nil {
		return fmt.Errorf("hover %q menu: %w", label, err)
	}
	return nil
}

// ShouldSeeNavigationCategories opens the menu and asserts it lists at
// least one category.
func (e *Executor) ShouldSeeNavigationCategories(ctx context.Context) error {
	burger, err := e.loc.Locate(ctx, e.site.Hamburger, locator.Clickable())
	if err != nil {
		return err
	}
	if err := burger.First().Click(ctx); err != nil {
		return fmt.Errorf("open navigation menu: %w", err)
	}

	m, err := e.loc.Locate(ctx, e.site.MenuItems, locator.CountAbove(0))
	if err != nil {
		if isNotFound(err) {
			return &core.StepAssertionError{Step: "navigation categories", Expected: "at least 1 category", Actual: "0 categories"}
		}
		return err
	}
	e.log.Debug("%d navigation categories", m.Count())
	return nil
}

// isNotFound reports a plain exhausted chain, not a lost session.
func isNotFound(err error) bool {
	var nf *core.ElementNotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return !errors.Is(err, core.ErrSessionClosed)
}
