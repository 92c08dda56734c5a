package cli

import (
	"fmt"
	"runtime"

	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/urfave/cli/v2"
)

var cleanupCommand = &cli.Command{
	Name:  "cleanup",
	Usage: "Kill chromedriver and automation Chrome processes left by a crashed run",
	Description: `Runs pkill for chromedriver and Chrome instances started with
--enable-automation. Only acts on macOS unless --force is given.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Run on any platform",
		},
	},
	Action: func(c *cli.Context) error {
		cleaner := session.NewCleaner()
		if c.Bool("force") {
			cleaner.Platforms = append(cleaner.Platforms, runtime.GOOS)
		}
		if !cleaner.Enabled() {
			fmt.Fprintf(c.App.Writer, "cleanup skipped on %s (use --force)\n", runtime.GOOS)
			return nil
		}
		errs := cleaner.Clean(runContext(c))
		for _, err := range errs {
			fmt.Fprintf(c.App.ErrWriter, "  %s✗%s %v\n", color(colorRed), color(colorReset), err)
		}
		if len(errs) > 0 {
			return cli.Exit(fmt.Sprintf("%d cleanup command(s) failed", len(errs)), 1)
		}
		fmt.Fprintf(c.App.Writer, "  %s✓%s browser processes cleaned up\n", color(colorGreen), color(colorReset))
		return nil
	},
}
