package cli

import (
	"fmt"

	"github.com/devicelab-dev/shopcheck/pkg/steps"
	"github.com/urfave/cli/v2"
)

var stepsCommand = &cli.Command{
	Name:  "steps",
	Usage: "List the step patterns scenarios can use",
	Action: func(c *cli.Context) error {
		w := c.App.Writer
		for _, def := range steps.Definitions() {
			fmt.Fprintf(w, "  %s%s%s\n", color(colorCyan), def.Pattern, color(colorReset))
			fmt.Fprintf(w, "      %s%s%s\n", color(colorGray), def.Doc, color(colorReset))
		}
		return nil
	},
}
