// Package site describes the storefront under test: its entry URL and the
// fallback selector chains for every element the steps touch.
package site

import (
	"strings"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/locator"
)

// DefaultBaseURL is the storefront the suite targets.
const DefaultBaseURL = "https://www.amazon.com"

// Site is the page model. Chains list the most specific selector first.
type Site struct {
	BaseURL string

	SearchBox     locator.Chain
	SearchSubmit  locator.Chain
	SearchResults locator.Chain
	FirstProduct  locator.Chain
	AddToCart     locator.Chain
	CartCount     locator.Chain
	Hamburger     locator.Chain
	MenuItems     locator.Chain
}

// Amazon returns the page model for an Amazon storefront at baseURL.
func Amazon(baseURL string) *Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Site{
		BaseURL: strings.TrimRight(baseURL, "/"),

		SearchBox: locator.NewChain("search box",
			core.ID("twotabsearchtextbox"),
			core.Name("field-keywords"),
			core.CSS("input[type='text'][aria-label*='Search']"),
		),
		SearchSubmit: locator.NewChain("search button",
			core.ID("nav-search-submit-button"),
			core.CSS("input[type='submit'][value='Go']"),
			core.XPath("//form[@name='site-search']//input[@type='submit']"),
		),
		SearchResults: locator.NewChain("search results",
			core.CSS("[data-component-type='s-search-result']"),
			core.CSS("div.s-result-item[data-asin]:not([data-asin=''])"),
		),
		FirstProduct: locator.NewChain("first product",
			core.CSS("[data-component-type='s-search-result'] h2 a"),
			core.CSS("[data-component-type='s-search-result'] a.a-link-normal.s-no-outline"),
			core.XPath("(//div[@data-component-type='s-search-result']//h2/a)[1]"),
		),
		AddToCart: locator.NewChain("add to cart button",
			core.ID("add-to-cart-button"),
			core.Name("submit.add-to-cart"),
			core.CSS("#addToCart input[type='submit']"),
		),
		CartCount: locator.NewChain("cart count",
			core.ID("nav-cart-count"),
			core.CSS("span.nav-cart-count"),
		),
		Hamburger: locator.NewChain("hamburger menu",
			core.ID("nav-hamburger-menu"),
			core.CSS("a[aria-label='Open All Categories Menu']"),
			core.XPath("//a[@data-csa-c-slot-id='HamburgerMenuDesktop']"),
		),
		MenuItems: locator.NewChain("navigation categories",
			core.Class("hmenu-item"),
			core.CSS("#hmenu-content .hmenu-item"),
		),
	}
}

// HomeURL returns the landing page URL.
func (s *Site) HomeURL() string {
	return s.BaseURL + "/"
}

// Chains returns every chain keyed by logical element name.
func (s *Site) Chains() []locator.Chain {
	return []locator.Chain{
		s.SearchBox, s.SearchSubmit, s.SearchResults, s.FirstProduct,
		s.AddToCart, s.CartCount, s.Hamburger, s.MenuItems,
	}
}
