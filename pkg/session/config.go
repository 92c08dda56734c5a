package session

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Config is the launch configuration for one browser session.
type Config struct {
	Headless        bool
	ImplicitWait    time.Duration // 0 disables the backend's implicit wait
	PageLoadTimeout time.Duration
	WindowSize      core.WindowSize
	UserAgent       string
	Maximize        bool
	BrowserBinary   string   // empty = backend default
	ExtraArgs       []string // appended to the browser command line
}

// Default launch values.
const (
	DefaultPageLoadTimeout = 30 * time.Second
	DefaultUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultConfig returns a headless desktop-sized configuration.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		PageLoadTimeout: DefaultPageLoadTimeout,
		WindowSize:      core.WindowSize{Width: 1920, Height: 1080},
		UserAgent:       DefaultUserAgent,
	}
}

// baseChromeArgs keep Chrome stable in containers and CI and hide the
// automation banner the storefront reacts to.
var baseChromeArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
	"--disable-extensions",
	"--remote-allow-origins=*",
}

// ChromeArgs returns the Chrome command line flags for c.
func (c Config) ChromeArgs() []string {
	args := append([]string{}, baseChromeArgs...)
	if c.Headless {
		args = append(args, "--headless=new")
	}
	if c.WindowSize.Width > 0 && c.WindowSize.Height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", c.WindowSize.Width, c.WindowSize.Height))
	}
	if c.UserAgent != "" {
		args = append(args, "--user-agent="+c.UserAgent)
	}
	return append(args, c.ExtraArgs...)
}

// BaseChromeArgs returns the fixed flags without headless, window size
// or user agent, for backends that set those through their own options.
func (c Config) BaseChromeArgs() []string {
	args := append([]string{}, baseChromeArgs...)
	return append(args, c.ExtraArgs...)
}
