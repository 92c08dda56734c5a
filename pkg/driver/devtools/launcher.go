package devtools

import (
	"context"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/session"
)

// Launcher starts a dedicated Chrome process per session.
type Launcher struct{}

// Name returns the backend name.
func (l *Launcher) Name() string { return "chromedp" }

// Launch implements session.Launcher.
func (l *Launcher) Launch(ctx context.Context, cfg session.Config) (core.Driver, error) {
	// The browser outlives the launch ctx; Quit releases it.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(cfg)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debug), chromedp.WithErrorf(logger.Debug))

	d := &Driver{
		ctx:         tabCtx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
		pageLoad:    cfg.PageLoadTimeout,
	}
	// An empty Run starts the browser and opens the tab.
	if err := d.run(ctx); err != nil {
		_ = d.Quit()
		return nil, err
	}
	if cfg.ImplicitWait > 0 {
		logger.Debug("chromedp: implicit wait %v ignored, lookups never block", cfg.ImplicitWait)
	}
	return d, nil
}

// AllocatorOptions converts cfg into chromedp exec allocator options.
func AllocatorOptions(cfg session.Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.WindowSize.Width > 0 && cfg.WindowSize.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowSize.Width, cfg.WindowSize.Height))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Maximize && !cfg.Headless {
		opts = append(opts, chromedp.Flag("start-maximized", true))
	}
	if cfg.BrowserBinary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.BrowserBinary))
	}
	for name, value := range parseFlags(cfg.BaseChromeArgs()) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// parseFlags turns "--name=value" and "--name" into chromedp flag values.
func parseFlags(args []string) map[string]interface{} {
	flags := make(map[string]interface{}, len(args))
	for _, arg := range args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			flags[name] = value
			continue
		}
		flags[arg] = true
	}
	return flags
}
