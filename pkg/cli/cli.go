// Package cli provides the command-line interface for shopcheck.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to shopcheck.yaml (default: ./shopcheck.yaml if present)",
		EnvVars: []string{"SHOPCHECK_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"SHOPCHECK_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write the run log to a file instead of stderr",
		EnvVars: []string{"SHOPCHECK_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "no-ansi",
		Usage:   "Disable ANSI colors",
		EnvVars: []string{"NO_COLOR"},
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "shopcheck",
		Usage:   "Browser acceptance suite for the storefront",
		Version: Version,
		Description: `shopcheck runs the Gherkin storefront scenarios against a real browser
and writes cucumber JSON, JUnit XML and HTML reports.

Examples:
  shopcheck test
  shopcheck test --tags @smoke --driver chromedp
  shopcheck test features/ --parallel 2 --report-dir out/reports
  shopcheck steps
  shopcheck cleanup`,
		Flags: GlobalFlags,
		// Exit codes are handled by Execute so the app can run in tests.
		ExitErrHandler: func(*cli.Context, error) {},
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			testCommand,
			stepsCommand,
			cleanupCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
