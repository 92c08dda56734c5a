// Package executor runs the feature files as a godog suite, wiring sessions,
// steps, failure capture and reports together.
package executor

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/devicelab-dev/shopcheck/features"
	"github.com/devicelab-dev/shopcheck/pkg/capture"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/locator"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/report"
	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/devicelab-dev/shopcheck/pkg/site"
	"github.com/devicelab-dev/shopcheck/pkg/steps"
	"github.com/google/uuid"
)

// Suite exit statuses, as returned by godog.
const (
	StatusPassed = 0
	StatusFailed = 1
	StatusUsage  = 2
)

// DefaultReportDir holds the run reports when none is configured.
const DefaultReportDir = "target/cucumber-reports"

// RunnerConfig configures the test runner.
type RunnerConfig struct {
	Name string

	// Scenario selection
	Paths []string // feature files or dirs; empty = embedded features
	FS    fs.FS    // overrides the embedded features when Paths is empty
	Tags  string

	// Execution
	Concurrency   int // scenarios in flight (each with its own browser)
	StopOnFailure bool
	Strict        bool

	// Reports
	Format    string    // godog formatters for Output, e.g. "pretty"
	ReportDir string    // default target/cucumber-reports; cucumber.json, junit.xml, report.json, report.html
	Output    io.Writer // default os.Stdout
	NoColors  bool

	// Browser and site
	Site      *site.Site
	Session   session.Config
	Wait      locator.WaitPolicy
	Artifacts core.ArtifactConfig
	Cleanup   bool // kill leftover browser processes after the run

	// Live progress callback
	OnScenarioEnd func(core.ScenarioResult)
}

// RunResult contains the outcome of a test run.
type RunResult struct {
	Status    int // godog exit status
	RunID     string
	Suite     core.SuiteResult
	Sessions  int // browsers launched
	ReportDir string
}

// Runner orchestrates the suite.
type Runner struct {
	config   RunnerConfig
	launcher session.Launcher
}

// New creates a new Runner launching browsers through launcher.
func New(launcher session.Launcher, cfg RunnerConfig) *Runner {
	if cfg.Name == "" {
		cfg.Name = "shopcheck"
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Format == "" {
		cfg.Format = "pretty"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = DefaultReportDir
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Site == nil {
		cfg.Site = site.Amazon("")
	}
	if cfg.Wait.Timeout <= 0 {
		cfg.Wait = locator.DefaultWaitPolicy()
	}
	return &Runner{config: cfg, launcher: launcher}
}

// Run executes every selected scenario and writes the reports.
// The returned error covers setup and report failures; scenario failures
// are reported through RunResult.Status.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	cfg := r.config
	runID := uuid.NewString()

	if c, ok := r.launcher.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("close %s launcher: %v", r.launcher.Name(), err)
			}
		}()
	}

	if err := os.MkdirAll(cfg.ReportDir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	var capturer *capture.Capturer
	if cfg.Artifacts.CaptureOnFailure {
		capturer = capture.New(cfg.Artifacts.ScreenshotDir)
	}

	var managerOpts []session.Option
	if cfg.Cleanup {
		managerOpts = append(managerOpts, session.WithCleaner(session.NewCleaner()))
	}
	manager := session.NewManager(r.launcher, managerOpts...)

	writer := report.NewWriter(cfg.ReportDir, cfg.Name, runID)
	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("start report: %w", err)
	}

	hooks := steps.Hooks{
		Manager:  manager,
		Session:  cfg.Session,
		Site:     cfg.Site,
		Wait:     cfg.Wait,
		Capturer: capturer,
		OnScenarioEnd: func(res core.ScenarioResult) {
			if err := writer.Add(res); err != nil {
				logger.Warn("update report: %v", err)
			}
			if cfg.OnScenarioEnd != nil {
				cfg.OnScenarioEnd(res)
			}
		},
	}

	opts := r.godogOptions(ctx)
	logger.Info("run %s: %s driver, format %q, tags %q, concurrency %d", runID, r.launcher.Name(), opts.Format, opts.Tags, opts.Concurrency)

	start := time.Now()
	status := godog.TestSuite{
		Name: cfg.Name,
		TestSuiteInitializer: func(ts *godog.TestSuiteContext) {
			ts.AfterSuite(func() {
				manager.Shutdown(context.WithoutCancel(ctx))
			})
		},
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			steps.Register(sc, hooks)
		},
		Options: opts,
	}.Run()

	captures := 0
	if capturer != nil {
		captures = capturer.Invocations()
	}
	suite, err := writer.End(captures)
	logger.Info("run %s finished in %v: status %d, %d/%d scenarios passed, %d captures",
		runID, time.Since(start).Round(time.Millisecond), status, suite.PassedScenarios, suite.TotalScenarios, captures)

	res := &RunResult{
		Status:    status,
		RunID:     runID,
		Suite:     suite,
		Sessions:  manager.Opened(),
		ReportDir: cfg.ReportDir,
	}
	if err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}
	return res, nil
}

func (r *Runner) godogOptions(ctx context.Context) *godog.Options {
	cfg := r.config
	opts := &godog.Options{
		Format:         BuildFormat(cfg.Format, cfg.ReportDir),
		Tags:           cfg.Tags,
		Concurrency:    cfg.Concurrency,
		StopOnFailure:  cfg.StopOnFailure,
		Strict:         cfg.Strict,
		Output:         cfg.Output,
		NoColors:       cfg.NoColors,
		DefaultContext: ctx,
	}
	if len(cfg.Paths) > 0 {
		opts.Paths = cfg.Paths
		return opts
	}
	opts.FS = cfg.FS
	if opts.FS == nil {
		opts.FS = features.FS
	}
	opts.Paths = []string{"."}
	return opts
}

// BuildFormat appends the file formatters for reportDir to the console
// formats: cucumber JSON and JUnit XML.
func BuildFormat(console, reportDir string) string {
	formats := []string{}
	for _, f := range strings.Split(console, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		formats = append(formats, "pretty")
	}
	if reportDir != "" {
		formats = append(formats,
			"cucumber:"+filepath.Join(reportDir, "cucumber.json"),
			"junit:"+filepath.Join(reportDir, "junit.xml"),
		)
	}
	return strings.Join(formats, ",")
}
