package session

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// Cleaner kills browser processes a crashed run may leave behind.
type Cleaner struct {
	// Platforms on which Clean does anything. Default: darwin.
	Platforms []string
	// Patterns passed to pkill -f.
	Patterns []string
	// Timeout bounds each pkill call.
	Timeout time.Duration

	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewCleaner returns a Cleaner for the current platform.
func NewCleaner() *Cleaner {
	return &Cleaner{
		Platforms: []string{"darwin"},
		Patterns:  []string{"chromedriver", "chrome.*--enable-automation"},
		Timeout:   5 * time.Second,
		goos:      runtime.GOOS,
		run:       runCommand,
	}
}

// Enabled reports whether Clean acts on this platform.
func (c *Cleaner) Enabled() bool {
	for _, p := range c.Platforms {
		if p == c.goos {
			return true
		}
	}
	return false
}

// Clean runs pkill for each pattern and returns the failures.
// "No process matched" is not a failure.
func (c *Cleaner) Clean(ctx context.Context) []error {
	if !c.Enabled() {
		return nil
	}
	var errs []error
	for _, pattern := range c.Patterns {
		pctx, cancel := context.WithTimeout(ctx, c.Timeout)
		err := c.run(pctx, "pkill", "-f", pattern)
		cancel()
		if err != nil && !noMatch(err) {
			errs = append(errs, fmt.Errorf("pkill -f %q: %w", pattern, err))
		}
	}
	return errs
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// pkill exits 1 when nothing matched.
func noMatch(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}
