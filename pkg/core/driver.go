package core

import (
	"context"
	"fmt"
	"time"
)

// Driver defines the browser capabilities the suite depends on.
// Implementations: W3C WebDriver (chromedriver), chromedp, Playwright, mock.
// Steps arrange calls; the Driver just executes individual browser commands.
type Driver interface {
	// Navigate loads url in the current tab and returns once the backend
	// reports the navigation finished (bounded by the page-load timeout).
	Navigate(ctx context.Context, url string) error

	// FindElements performs a single, non-waiting lookup.
	// An empty slice with a nil error means "nothing matched yet".
	FindElements(ctx context.Context, sel Selector) ([]Element, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// CurrentURL returns the URL of the current document.
	CurrentURL(ctx context.Context) (string, error)

	// ExecuteScript runs JavaScript in the page and returns its result.
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)

	// Screenshot captures the current viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// Quit ends the browser session and releases the browser process.
	Quit() error
}

// Element is a handle to a DOM element returned by FindElements.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Hover(ctx context.Context) error
}

// SelectorKind identifies a locator strategy.
type SelectorKind string

// SelectorKind values
const (
	ByID       SelectorKind = "id"
	ByCSS      SelectorKind = "css"
	ByXPath    SelectorKind = "xpath"
	ByName     SelectorKind = "name"
	ByClass    SelectorKind = "class"
	ByLinkText SelectorKind = "linkText"
)

// Selector is one (kind, value) locator attempt.
type Selector struct {
	Kind  SelectorKind `yaml:"kind" json:"kind"`
	Value string       `yaml:"value" json:"value"`
}

// ID returns an id selector.
func ID(v string) Selector { return Selector{Kind: ByID, Value: v} }

// CSS returns a css selector.
func CSS(v string) Selector { return Selector{Kind: ByCSS, Value: v} }

// XPath returns an xpath selector.
func XPath(v string) Selector { return Selector{Kind: ByXPath, Value: v} }

// Name returns a name-attribute selector.
func Name(v string) Selector { return Selector{Kind: ByName, Value: v} }

// Class returns a class-name selector.
func Class(v string) Selector { return Selector{Kind: ByClass, Value: v} }

// LinkText returns an exact link text selector.
func LinkText(v string) Selector { return Selector{Kind: ByLinkText, Value: v} }

// String returns a description like css="a.b".
func (s Selector) String() string {
	return fmt.Sprintf("%s=%q", s.Kind, s.Value)
}

// IsEmpty returns true if no value is set.
func (s Selector) IsEmpty() bool {
	return s.Value == ""
}

// CSSEquivalent converts the selector to a CSS selector when one exists.
// XPath and link text have no CSS form and return false.
func (s Selector) CSSEquivalent() (string, bool) {
	switch s.Kind {
	case ByCSS:
		return s.Value, true
	case ByID:
		return fmt.Sprintf(`[id="%s"]`, escapeQuotes(s.Value)), true
	case ByName:
		return fmt.Sprintf(`[name="%s"]`, escapeQuotes(s.Value)), true
	case ByClass:
		return "." + s.Value, true
	default:
		return "", false
	}
}

// XPathEquivalent converts the selector to an XPath expression.
func (s Selector) XPathEquivalent() string {
	switch s.Kind {
	case ByXPath:
		return s.Value
	case ByID:
		return fmt.Sprintf(`//*[@id=%s]`, xpathLiteral(s.Value))
	case ByName:
		return fmt.Sprintf(`//*[@name=%s]`, xpathLiteral(s.Value))
	case ByClass:
		return fmt.Sprintf(`//*[contains(concat(' ', normalize-space(@class), ' '), %s)]`, xpathLiteral(" "+s.Value+" "))
	case ByLinkText:
		return fmt.Sprintf(`//a[normalize-space()=%s]`, xpathLiteral(s.Value))
	default:
		return ""
	}
}

func escapeQuotes(s string) string {
	var result []rune
	for _, c := range s {
		switch c {
		case '"':
			result = append(result, '\\', '"')
		case '\\':
			result = append(result, '\\', '\\')
		default:
			result = append(result, c)
		}
	}
	return string(result)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape syntax.
func xpathLiteral(s string) string {
	hasSingle, hasDouble := false, false
	for _, c := range s {
		if c == '\'' {
			hasSingle = true
		}
		if c == '"' {
			hasDouble = true
		}
	}
	switch {
	case !hasSingle:
		return "'" + s + "'"
	case !hasDouble:
		return `"` + s + `"`
	default:
		parts := "concat("
		cur := ""
		for _, c := range s {
			if c == '\'' {
				parts += "'" + cur + "', \"'\", "
				cur = ""
				continue
			}
			cur += string(c)
		}
		return parts + "'" + cur + "')"
	}
}

// WindowSize is a browser window dimension.
type WindowSize struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// String returns "WxH".
func (w WindowSize) String() string {
	return fmt.Sprintf("%dx%d", w.Width, w.Height)
}

// ParseWindowSize parses "1920x1080" or "1920,1080".
func ParseWindowSize(s string) (WindowSize, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		if _, err2 := fmt.Sscanf(s, "%d,%d", &w, &h); err2 != nil {
			return WindowSize{}, fmt.Errorf("invalid window size %q", s)
		}
	}
	if w <= 0 || h <= 0 {
		return WindowSize{}, fmt.Errorf("invalid window size %q", s)
	}
	return WindowSize{Width: w, Height: h}, nil
}

// LogEntry represents a single log message captured during a scenario
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`  // debug, info, warn, error
	Source    string    `json:"source"` // step, driver, capture
	Message   string    `json:"message"`
}
