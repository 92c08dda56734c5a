package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/driver/devtools"
	"github.com/devicelab-dev/shopcheck/pkg/driver/mock"
	pwdriver "github.com/devicelab-dev/shopcheck/pkg/driver/playwright"
	"github.com/devicelab-dev/shopcheck/pkg/driver/webdriver"
	"github.com/devicelab-dev/shopcheck/pkg/executor"
	"github.com/devicelab-dev/shopcheck/pkg/locator"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/devicelab-dev/shopcheck/pkg/site"
	"github.com/urfave/cli/v2"
)

var testCommand = &cli.Command{
	Name:      "test",
	Usage:     "Run the storefront scenarios",
	ArgsUsage: "[feature-file-or-folder]...",
	Description: `Run Gherkin scenarios in a fresh browser each. Without arguments the
built-in storefront features run.

Reports are written to the report directory:
  cucumber.json, junit.xml, report.json, report.html

Failure screenshots go to artifacts.screenshotDir (default target/screenshots).

Examples:
  shopcheck test
  shopcheck test --tags "@search && ~@slow"
  shopcheck test --driver playwright --install-playwright
  shopcheck test --remote-url http://selenium:4444 features/`,
	Flags: []cli.Flag{
		// Browser
		&cli.StringFlag{
			Name:    "driver",
			Aliases: []string{"d"},
			Usage:   "Browser backend (webdriver, chromedp, playwright, mock)",
			EnvVars: []string{"SHOPCHECK_DRIVER"},
		},
		&cli.BoolFlag{
			Name:    "headless",
			Usage:   "Run the browser headless (--headless=false for a visible window)",
			EnvVars: []string{"SHOPCHECK_HEADLESS"},
		},
		&cli.StringFlag{
			Name:  "window-size",
			Usage: "Browser window size, e.g. 1920x1080",
		},
		&cli.StringFlag{
			Name:    "chromedriver",
			Usage:   "Path to chromedriver (webdriver backend)",
			EnvVars: []string{"CHROMEDRIVER_PATH"},
		},
		&cli.StringFlag{
			Name:    "remote-url",
			Usage:   "Existing WebDriver server; skips spawning chromedriver",
			EnvVars: []string{"SHOPCHECK_REMOTE_URL"},
		},
		&cli.StringFlag{
			Name:    "chrome-binary",
			Usage:   "Chrome executable",
			EnvVars: []string{"CHROME_BIN"},
		},
		&cli.BoolFlag{
			Name:  "install-playwright",
			Usage: "Download the Playwright driver and Chromium before running",
		},

		// Site
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Storefront base URL",
			EnvVars: []string{"SHOPCHECK_BASE_URL"},
		},

		// Scenario selection
		&cli.StringFlag{
			Name:    "tags",
			Aliases: []string{"t"},
			Usage:   "Tag expression, e.g. \"@smoke\" or \"@search && ~@slow\"",
			EnvVars: []string{"SHOPCHECK_TAGS"},
		},

		// Execution
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Scenarios to run at once, each with its own browser",
		},
		&cli.IntFlag{
			Name:  "wait-timeout",
			Usage: "Explicit wait per selector in ms",
		},
		&cli.BoolFlag{
			Name:  "stop-on-failure",
			Usage: "Stop at the first failed scenario",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail on undefined or pending steps",
		},
		&cli.BoolFlag{
			Name:  "no-cleanup",
			Usage: "Do not kill lingering browser processes after the run",
		},

		// Output
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Console formatters (pretty, progress, cucumber, junit)",
		},
		&cli.StringFlag{
			Name:  "report-dir",
			Usage: "Report output directory",
		},
		&cli.StringFlag{
			Name:  "screenshot-dir",
			Usage: "Failure screenshot directory",
		},
		&cli.BoolFlag{
			Name:  "no-screenshots",
			Usage: "Disable failure screenshots",
		},
	},
	Action: runTest,
}

func runTest(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyTestFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), executor.StatusUsage)
	}
	if err := initLogger(c, cfg); err != nil {
		return err
	}
	defer logger.Close()

	launcher, err := newLauncher(cfg, c.Bool("install-playwright"))
	if err != nil {
		return cli.Exit(err.Error(), executor.StatusUsage)
	}

	runnerCfg, err := buildRunnerConfig(cfg)
	if err != nil {
		return cli.Exit(err.Error(), executor.StatusUsage)
	}
	if c.NArg() > 0 {
		runnerCfg.Paths = c.Args().Slice()
	}
	runnerCfg.NoColors = !colorsEnabled
	runnerCfg.OnScenarioEnd = onScenarioEnd

	ctx, stop := signal.NotifyContext(runContext(c), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printHeader(cfg, launcher.Name())
	result, err := executor.New(launcher, runnerCfg).Run(ctx)
	if err != nil {
		logger.Error("run failed: %v", err)
		if result == nil {
			return err
		}
	}
	printSummary(result)

	if result.Status != executor.StatusPassed {
		return cli.Exit("", result.Status)
	}
	return nil
}

// loadConfig loads --config, or shopcheck.yaml from the working directory.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyTestFlags overrides config values with flags that were set.
func applyTestFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("driver") {
		cfg.Browser.Driver = strings.ToLower(c.String("driver"))
	}
	if c.IsSet("headless") {
		headless := c.Bool("headless")
		cfg.Browser.Headless = &headless
	}
	if c.IsSet("window-size") {
		cfg.Browser.WindowSize = c.String("window-size")
	}
	if c.IsSet("chromedriver") {
		cfg.Browser.ChromedriverPath = c.String("chromedriver")
	}
	if c.IsSet("remote-url") {
		cfg.Browser.RemoteURL = c.String("remote-url")
	}
	if c.IsSet("chrome-binary") {
		cfg.Browser.Binary = c.String("chrome-binary")
	}
	if c.IsSet("base-url") {
		cfg.Site.BaseURL = c.String("base-url")
	}
	if c.IsSet("tags") {
		cfg.Run.Tags = c.String("tags")
	}
	if c.IsSet("parallel") {
		cfg.Run.Parallel = c.Int("parallel")
	}
	if c.IsSet("wait-timeout") {
		cfg.Wait.TimeoutMs = c.Int("wait-timeout")
	}
	if c.IsSet("stop-on-failure") {
		cfg.Run.StopOnFailure = c.Bool("stop-on-failure")
	}
	if c.IsSet("strict") {
		cfg.Run.Strict = c.Bool("strict")
	}
	if c.Bool("no-cleanup") {
		cleanup := false
		cfg.Run.Cleanup = &cleanup
	}
	if c.IsSet("format") {
		cfg.Run.Format = c.String("format")
	}
	if c.IsSet("report-dir") {
		cfg.Run.ReportDir = c.String("report-dir")
	}
	if c.IsSet("screenshot-dir") {
		cfg.Artifacts.ScreenshotDir = c.String("screenshot-dir")
	}
	if c.Bool("no-screenshots") {
		cfg.Artifacts.CaptureOnFailure = false
	}
}

// initLogger sets up logging from flags, falling back to the config file.
func initLogger(c *cli.Context, cfg *config.Config) error {
	path := cfg.Logging.File
	if c.IsSet("log-file") {
		path = c.String("log-file")
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	if err := logger.Init(path); err != nil {
		return err
	}
	level := cfg.Logging.Level
	if c.Bool("verbose") {
		level = "debug"
	}
	return logger.SetLevel(level)
}

// newLauncher returns the session launcher for the configured driver.
func newLauncher(cfg *config.Config, installPlaywright bool) (session.Launcher, error) {
	switch cfg.Browser.Driver {
	case config.DriverWebDriver:
		return &webdriver.Launcher{
			ChromedriverPath: chromedriverPath(cfg.Browser.ChromedriverPath),
			RemoteURL:        cfg.Browser.RemoteURL,
		}, nil
	case config.DriverChromedp:
		return &devtools.Launcher{}, nil
	case config.DriverPlaywright:
		return &pwdriver.Launcher{Install: installPlaywright}, nil
	case config.DriverMock:
		return &mock.Launcher{Config: mock.Config{Site: site.Amazon(cfg.Site.BaseURL)}}, nil
	}
	return nil, core.ErrUnknownDriver.WithMessage(fmt.Sprintf("unknown browser driver %q", cfg.Browser.Driver))
}

// chromedriverPath prefers a chromedriver bundled under <home>/drivers
// when the configured path is the bare default.
func chromedriverPath(configured string) string {
	if configured != "" && configured != "chromedriver" {
		return configured
	}
	bundled := filepath.Join(config.GetDriversDir(), "chromedriver")
	if info, err := os.Stat(bundled); err == nil && !info.IsDir() {
		return bundled
	}
	return "chromedriver"
}

// buildRunnerConfig maps the workspace config onto the runner.
func buildRunnerConfig(cfg *config.Config) (executor.RunnerConfig, error) {
	size, err := core.ParseWindowSize(cfg.Browser.WindowSize)
	if err != nil {
		return executor.RunnerConfig{}, err
	}

	artifacts := cfg.Artifacts
	artifacts.ScreenshotDir = config.ResolvePath(artifacts.ScreenshotDir)

	return executor.RunnerConfig{
		Name:          "shopcheck",
		Paths:         cfg.Run.Features,
		Tags:          cfg.Run.Tags,
		Concurrency:   cfg.Run.Parallel,
		StopOnFailure: cfg.Run.StopOnFailure,
		Strict:        cfg.Run.Strict,
		Format:        cfg.Run.Format,
		ReportDir:     config.ResolvePath(cfg.Run.ReportDir),
		Site:          site.Amazon(cfg.Site.BaseURL),
		Session: session.Config{
			Headless:        cfg.IsHeadless(),
			ImplicitWait:    cfg.ImplicitWait(),
			PageLoadTimeout: cfg.PageLoadTimeout(),
			WindowSize:      size,
			UserAgent:       cfg.Browser.UserAgent,
			Maximize:        cfg.Browser.Maximize,
			BrowserBinary:   cfg.Browser.Binary,
			ExtraArgs:       cfg.Browser.ExtraArgs,
		},
		Wait:      locator.WaitPolicy{Timeout: cfg.WaitTimeout(), Interval: cfg.PollInterval()},
		Artifacts: artifacts,
		Cleanup:   cfg.CleanupEnabled(),
	}, nil
}

// runContext returns c's context, or Background when run outside an app.
func runContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
