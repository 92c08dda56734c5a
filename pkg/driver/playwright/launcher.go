package playwright

import (
	"context"
	"fmt"
	"sync"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/playwright-community/playwright-go"
)

// Launcher starts one Chromium per session on a shared Playwright driver.
// Close stops the driver once the run is over.
type Launcher struct {
	// Install downloads the Playwright driver and Chromium before the first launch.
	Install bool

	once sync.Once
	pw   *playwright.Playwright
	err  error
}

// Name returns the backend name.
func (l *Launcher) Name() string { return "playwright" }

func (l *Launcher) start() (*playwright.Playwright, error) {
	l.once.Do(func() {
		if l.Install {
			logger.Info("installing playwright driver and chromium")
			if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
				l.err = fmt.Errorf("install playwright: %w", err)
				return
			}
		}
		l.pw, l.err = playwright.Run()
		if l.err != nil {
			l.err = fmt.Errorf("start playwright: %w", l.err)
		}
	})
	return l.pw, l.err
}

// Launch implements session.Launcher.
func (l *Launcher) Launch(ctx context.Context, cfg session.Config) (core.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := l.start()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.Launch(LaunchOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := browser.NewContext(ContextOptions(cfg))
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if cfg.PageLoadTimeout > 0 {
		bctx.SetDefaultNavigationTimeout(float64(cfg.PageLoadTimeout.Milliseconds()))
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	logger.Debug("playwright: chromium %s launched with %s", browser.Version(), describe(cfg.BaseChromeArgs()))

	return &Driver{browser: browser, page: page, pageLoad: cfg.PageLoadTimeout}, nil
}

// Close stops the Playwright driver process.
func (l *Launcher) Close() error {
	if l.pw == nil {
		return nil
	}
	return l.pw.Stop()
}

// LaunchOptions converts cfg into Chromium launch options.
func LaunchOptions(cfg session.Config) playwright.BrowserTypeLaunchOptions {
	args := cfg.BaseChromeArgs()
	if cfg.Maximize && !cfg.Headless {
		args = append(args, "--start-maximized")
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     args,
	}
	if cfg.BrowserBinary != "" {
		opts.ExecutablePath = playwright.String(cfg.BrowserBinary)
	}
	return opts
}

// ContextOptions converts cfg into browser context options.
func ContextOptions(cfg session.Config) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{}
	if cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(cfg.UserAgent)
	}
	if cfg.WindowSize.Width > 0 && cfg.WindowSize.Height > 0 {
		opts.Viewport = &playwright.Size{Width: cfg.WindowSize.Width, Height: cfg.WindowSize.Height}
	}
	return opts
}
