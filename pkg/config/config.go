// Package config handles configuration for shopcheck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"gopkg.in/yaml.v3"
)

// Supported browser backends.
const (
	DriverWebDriver  = "webdriver"
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverMock       = "mock"
)

// Config represents the workspace configuration (shopcheck.yaml).
type Config struct {
	Site      SiteConfig          `yaml:"site"`
	Browser   BrowserConfig       `yaml:"browser"`
	Wait      WaitConfig          `yaml:"wait"`
	Artifacts core.ArtifactConfig `yaml:"artifacts"`
	Run       RunConfig           `yaml:"run"`
	Logging   LoggingConfig       `yaml:"logging"`
}

// SiteConfig selects the storefront under test.
type SiteConfig struct {
	BaseURL string `yaml:"baseURL"`
}

// BrowserConfig controls how sessions are launched.
type BrowserConfig struct {
	Driver            string   `yaml:"driver"` // webdriver, chromedp, playwright, mock
	Headless          *bool    `yaml:"headless"`
	WindowSize        string   `yaml:"windowSize"` // 1920x1080
	UserAgent         string   `yaml:"userAgent"`
	PageLoadTimeoutMs int      `yaml:"pageLoadTimeoutMs"`
	ImplicitWaitMs    int      `yaml:"implicitWaitMs"`
	Maximize          bool     `yaml:"maximize"`
	ChromedriverPath  string   `yaml:"chromedriverPath"`
	RemoteURL         string   `yaml:"remoteURL"` // existing WebDriver server, skips spawning chromedriver
	Binary            string   `yaml:"binary"`    // Chrome executable
	ExtraArgs         []string `yaml:"extraArgs"`
}

// WaitConfig is the default explicit wait applied to element lookups.
type WaitConfig struct {
	TimeoutMs      int `yaml:"timeoutMs"`
	PollIntervalMs int `yaml:"pollIntervalMs"`
}

// RunConfig selects scenarios and reports.
type RunConfig struct {
	Features      []string `yaml:"features"` // empty = embedded feature files
	Tags          string   `yaml:"tags"`
	Format        string   `yaml:"format"`
	ReportDir     string   `yaml:"reportDir"`
	Parallel      int      `yaml:"parallel"`
	StopOnFailure bool     `yaml:"stopOnFailure"`
	Strict        bool     `yaml:"strict"`
	Cleanup       *bool    `yaml:"cleanup"` // kill lingering browser processes after the run
}

// LoggingConfig controls the run log.
type LoggingConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	headless := true
	return &Config{
		Site: SiteConfig{BaseURL: "https://www.amazon.com"},
		Browser: BrowserConfig{
			Driver:            DriverWebDriver,
			Headless:          &headless,
			WindowSize:        "1920x1080",
			UserAgent:         DefaultUserAgent,
			PageLoadTimeoutMs: 30000,
			ChromedriverPath:  "chromedriver",
		},
		Wait: WaitConfig{
			TimeoutMs:      20000,
			PollIntervalMs: 250,
		},
		Artifacts: core.DefaultArtifactConfig(),
		Run: RunConfig{
			Format:    "pretty",
			ReportDir: filepath.Join("target", "cucumber-reports"),
			Parallel:  1,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load loads configuration from a file on top of Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir looks for shopcheck.yaml or shopcheck.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"shopcheck.yaml", "shopcheck.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found
	return Defaults(), nil
}

// IsHeadless reports the effective headless setting.
func (c *Config) IsHeadless() bool {
	return c.Browser.Headless == nil || *c.Browser.Headless
}

// CleanupEnabled reports whether lingering browser processes are killed after the run.
func (c *Config) CleanupEnabled() bool {
	return c.Run.Cleanup == nil || *c.Run.Cleanup
}

// PageLoadTimeout returns the page load timeout as a duration.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.Browser.PageLoadTimeoutMs) * time.Millisecond
}

// ImplicitWait returns the implicit wait as a duration.
func (c *Config) ImplicitWait() time.Duration {
	return time.Duration(c.Browser.ImplicitWaitMs) * time.Millisecond
}

// WaitTimeout returns the explicit wait budget per selector.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Wait.TimeoutMs) * time.Millisecond
}

// PollInterval returns the explicit wait poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Wait.PollIntervalMs) * time.Millisecond
}

// Validate checks the configuration and returns core.ErrInvalidConfig
// describing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.Site.BaseURL == "" {
		problems = append(problems, "site.baseURL is required")
	} else if !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		problems = append(problems, fmt.Sprintf("site.baseURL %q must be http(s)", c.Site.BaseURL))
	}

	switch c.Browser.Driver {
	case DriverWebDriver, DriverChromedp, DriverPlaywright, DriverMock:
	default:
		return core.ErrUnknownDriver.WithMessage(fmt.Sprintf("unknown browser driver %q", c.Browser.Driver))
	}

	if _, err := core.ParseWindowSize(c.Browser.WindowSize); err != nil {
		problems = append(problems, "browser.windowSize: "+err.Error())
	}
	if c.Browser.PageLoadTimeoutMs <= 0 {
		problems = append(problems, "browser.pageLoadTimeoutMs must be positive")
	}
	if c.Browser.ImplicitWaitMs < 0 {
		problems = append(problems, "browser.implicitWaitMs must not be negative")
	}
	if c.Wait.TimeoutMs <= 0 {
		problems = append(problems, "wait.timeoutMs must be positive")
	}
	if c.Wait.PollIntervalMs <= 0 || c.Wait.PollIntervalMs > c.Wait.TimeoutMs {
		problems = append(problems, "wait.pollIntervalMs must be positive and not exceed wait.timeoutMs")
	}
	if c.Run.Parallel < 1 {
		problems = append(problems, "run.parallel must be at least 1")
	}
	if c.Artifacts.CaptureOnFailure && c.Artifacts.ScreenshotDir == "" {
		problems = append(problems, "artifacts.screenshotDir is required when captureOnFailure is set")
	}

	if len(problems) > 0 {
		return core.ErrInvalidConfig.WithMessage("invalid configuration: " + strings.Join(problems, "; ")).
			WithDetails(map[string]interface{}{"problems": problems})
	}
	return nil
}
