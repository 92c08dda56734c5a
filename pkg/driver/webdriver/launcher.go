package webdriver

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/session"
)

// Launcher starts Chrome through chromedriver, one service per session,
// or connects to RemoteURL when set.
type Launcher struct {
	ChromedriverPath string // default "chromedriver"
	RemoteURL        string // e.g. http://selenium:4444; skips the local service
}

// Name returns the backend name.
func (l *Launcher) Name() string { return "webdriver" }

// Launch implements session.Launcher.
func (l *Launcher) Launch(ctx context.Context, cfg session.Config) (core.Driver, error) {
	var svc *Service
	serverURL := l.RemoteURL
	if serverURL == "" {
		path := l.ChromedriverPath
		if path == "" {
			path = "chromedriver"
		}
		svc = &Service{Path: path}
		if err := svc.Start(ctx); err != nil {
			return nil, err
		}
		serverURL = svc.URL()
	}

	client := NewClient(serverURL)
	if err := client.Connect(ctx, Capabilities(cfg)); err != nil {
		stopService(svc)
		return nil, err
	}
	d := NewDriver(client, svc)

	if err := configure(ctx, client, cfg); err != nil {
		_ = d.Quit()
		return nil, err
	}
	return d, nil
}

func configure(ctx context.Context, c *Client, cfg session.Config) error {
	if err := c.SetTimeouts(ctx, cfg.ImplicitWait, cfg.PageLoadTimeout); err != nil {
		return fmt.Errorf("set timeouts: %w", err)
	}
	// Headless Chrome ignores maximize; the window-size flag covers it.
	if cfg.Maximize && !cfg.Headless {
		if err := c.MaximizeWindow(ctx); err != nil {
			return fmt.Errorf("maximize window: %w", err)
		}
	}
	return nil
}

func stopService(svc *Service) {
	if svc != nil {
		_ = svc.Stop()
	}
}

// Capabilities builds the W3C capabilities for a Chrome session.
func Capabilities(cfg session.Config) map[string]interface{} {
	chromeOpts := map[string]interface{}{
		"args":            cfg.ChromeArgs(),
		"excludeSwitches": []string{"enable-automation"},
	}
	if cfg.BrowserBinary != "" {
		chromeOpts["binary"] = cfg.BrowserBinary
	}

	// Timeouts are set after the session starts, see configure.
	return map[string]interface{}{
		"browserName":             "chrome",
		"pageLoadStrategy":        "normal",
		"goog:chromeOptions":      chromeOpts,
		"unhandledPromptBehavior": "dismiss",
	}
}
