package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/executor"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func printHeader(cfg *config.Config, driver string) {
	fmt.Println()
	fmt.Printf("  %sshopcheck %s%s  %s%s%s\n", color(colorBold), Version, color(colorReset), color(colorGray), cfg.Site.BaseURL, color(colorReset))
	mode := "headless"
	if !cfg.IsHeadless() {
		mode = "headed"
	}
	fmt.Printf("  driver %s (%s), parallel %d", driver, mode, cfg.Run.Parallel)
	if cfg.Run.Tags != "" {
		fmt.Printf(", tags %s", cfg.Run.Tags)
	}
	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
}

// onScenarioEnd prints one line per finished scenario.
func onScenarioEnd(r core.ScenarioResult) {
	if r.Status.IsSuccess() {
		fmt.Printf("%s✓ %s%s %s%s%s\n",
			color(colorGreen), color(colorReset), r.Name, color(colorGray), formatDuration(r.Duration), color(colorReset))
		return
	}
	fmt.Printf("%s✗ %s%s %s%s%s\n",
		color(colorRed), color(colorReset), r.Name, color(colorGray), formatDuration(r.Duration), color(colorReset))
	if r.FailedStep != "" {
		fmt.Printf("    %s╰─%s %s: %s\n", color(colorGray), color(colorReset), r.FailedStep, r.Error)
	}
}

func printSummary(result *executor.RunResult) {
	s := result.Suite
	tableWidth := 80

	fmt.Println()
	fmt.Println(strings.Repeat("═", tableWidth))
	fmt.Printf("  %-52s %8s %16s\n", "Scenario", "Status", "Duration")
	fmt.Println(strings.Repeat("─", tableWidth))

	for _, sc := range s.Scenarios {
		status := "✓ PASS"
		statusColor := color(colorGreen)
		switch {
		case sc.Status == core.StatusSkipped:
			status = "- SKIP"
			statusColor = color(colorCyan)
		case !sc.Status.IsSuccess():
			status = "✗ FAIL"
			statusColor = color(colorRed)
		}

		name := sc.Name
		if len(name) > 52 {
			name = name[:49] + "..."
		}
		fmt.Printf("  %-52s %s%8s%s %16s\n", name, statusColor, status, color(colorReset), formatDuration(sc.Duration))
	}

	fmt.Println(strings.Repeat("─", tableWidth))
	statusColor := color(colorGreen)
	if s.FailedScenarios > 0 {
		statusColor = color(colorRed)
	}
	fmt.Printf("  %s%-52s%s %s%8s%s %16s\n",
		color(colorBold), "TOTAL", color(colorReset),
		statusColor, fmt.Sprintf("%d/%d", s.PassedScenarios, s.TotalScenarios), color(colorReset),
		formatDuration(s.Duration))
	fmt.Println(strings.Repeat("═", tableWidth))

	if s.Captures > 0 {
		fmt.Printf("  %s%d failure screenshot(s) captured%s\n", color(colorYellow), s.Captures, color(colorReset))
	}
	fmt.Printf("  Reports: %s\n", result.ReportDir)
	fmt.Println()
}

// formatDuration shows milliseconds below one second, seconds otherwise.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
