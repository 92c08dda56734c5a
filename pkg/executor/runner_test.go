package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/driver/mock"
	"github.com/devicelab-dev/shopcheck/pkg/locator"
	"github.com/devicelab-dev/shopcheck/pkg/report"
	"github.com/devicelab-dev/shopcheck/pkg/session"
)

func testConfig(t *testing.T) RunnerConfig {
	t.Helper()
	dir := t.TempDir()
	return RunnerConfig{
		Name:      "storefront",
		Format:    "progress",
		ReportDir: filepath.Join(dir, "reports"),
		Output:    &bytes.Buffer{},
		NoColors:  true,
		Session:   session.DefaultConfig(),
		Wait:      locator.WaitPolicy{Timeout: 100 * time.Millisecond, Interval: 5 * time.Millisecond},
		Artifacts: core.ArtifactConfig{
			CaptureOnFailure: true,
			ScreenshotDir:    filepath.Join(dir, "screenshots"),
		},
	}
}

func TestRunner_Run_AllPassed(t *testing.T) {
	cfg := testConfig(t)
	launcher := &mock.Launcher{}

	result, err := New(launcher, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusPassed {
		t.Errorf("Status = %d, want %d\n%s", result.Status, StatusPassed, cfg.Output.(*bytes.Buffer))
	}
	if result.Suite.TotalScenarios != 4 {
		t.Errorf("TotalScenarios = %d, want 4", result.Suite.TotalScenarios)
	}
	if result.Suite.PassedScenarios != 4 {
		t.Errorf("PassedScenarios = %d, want 4", result.Suite.PassedScenarios)
	}
	if result.Suite.Captures != 0 {
		t.Errorf("Captures = %d, want 0", result.Suite.Captures)
	}
	if result.Sessions != 4 {
		t.Errorf("Sessions = %d, want one per scenario", result.Sessions)
	}
	if result.RunID == "" {
		t.Error("RunID should be set")
	}

	for _, name := range []string{"cucumber.json", "junit.xml", "report.json", "report.html"} {
		if _, err := os.Stat(filepath.Join(cfg.ReportDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	for i, d := range launcher.Drivers() {
		if d.Quits() != 1 {
			t.Errorf("driver %d quit %d times, want 1", i, d.Quits())
		}
	}

	onDisk, err := report.ReadReport(cfg.ReportDir)
	if err != nil {
		t.Fatalf("ReadReport() error = %v", err)
	}
	if onDisk.RunID != result.RunID {
		t.Errorf("report.json RunID = %q, want %q", onDisk.RunID, result.RunID)
	}
}

func TestRunner_Run_FailureCaptured(t *testing.T) {
	cfg := testConfig(t)
	launcher := &mock.Launcher{Config: mock.Config{CartBroken: true}}

	result, err := New(launcher, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusFailed {
		t.Errorf("Status = %d, want %d", result.Status, StatusFailed)
	}
	if result.Suite.FailedScenarios != 1 {
		t.Errorf("FailedScenarios = %d, want 1", result.Suite.FailedScenarios)
	}
	if result.Suite.Captures != result.Suite.FailedScenarios {
		t.Errorf("Captures = %d, want one per failed scenario (%d)", result.Suite.Captures, result.Suite.FailedScenarios)
	}

	shots, err := filepath.Glob(filepath.Join(cfg.Artifacts.ScreenshotDir, "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 1 {
		t.Fatalf("screenshots = %v, want 1", shots)
	}
	if !strings.HasPrefix(filepath.Base(shots[0]), "Add_the_first_result_to_the_cart_") {
		t.Errorf("screenshot name = %s", filepath.Base(shots[0]))
	}

	for _, sc := range result.Suite.Scenarios {
		if sc.Status != core.StatusPassed && sc.FailedStep != `the cart count should be "1"` {
			t.Errorf("FailedStep = %q", sc.FailedStep)
		}
	}
}

func TestRunner_Run_CaptureDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Artifacts.CaptureOnFailure = false
	launcher := &mock.Launcher{Config: mock.Config{NoHamburger: true}}

	result, err := New(launcher, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %d, want %d", result.Status, StatusFailed)
	}
	if result.Suite.Captures != 0 {
		t.Errorf("Captures = %d, want 0", result.Suite.Captures)
	}
	if _, err := os.Stat(cfg.Artifacts.ScreenshotDir); !os.IsNotExist(err) {
		t.Errorf("screenshot dir should not be created, stat err = %v", err)
	}
}

func TestRunner_Run_TagsAndConcurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tags = "@search"
	cfg.Concurrency = 2

	var mu sync.Mutex
	var seen []string
	cfg.OnScenarioEnd = func(r core.ScenarioResult) {
		mu.Lock()
		seen = append(seen, r.Name)
		mu.Unlock()
	}

	result, err := New(&mock.Launcher{}, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != StatusPassed {
		t.Errorf("Status = %d, want %d", result.Status, StatusPassed)
	}
	if result.Suite.TotalScenarios != 2 {
		t.Errorf("TotalScenarios = %d, want 2 tagged @search", result.Suite.TotalScenarios)
	}
	if len(seen) != 2 {
		t.Errorf("OnScenarioEnd called %d times, want 2", len(seen))
	}
	if result.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", result.Sessions)
	}
}

func TestRunner_Run_ExplicitPaths(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	feature := `Feature: Smoke
  Scenario: Home page loads
    Given I am on the home page
`
	if err := os.WriteFile(filepath.Join(dir, "smoke.feature"), []byte(feature), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Paths = []string{dir}

	result, err := New(&mock.Launcher{}, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Suite.TotalScenarios != 1 || result.Status != StatusPassed {
		t.Errorf("got %d scenarios, status %d; want 1 passed", result.Suite.TotalScenarios, result.Status)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(&mock.Launcher{}, RunnerConfig{})

	if r.config.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", r.config.Concurrency)
	}
	if r.config.ReportDir != DefaultReportDir {
		t.Errorf("ReportDir = %q", r.config.ReportDir)
	}
	if r.config.Site == nil || r.config.Output == nil {
		t.Error("Site and Output should be defaulted")
	}
	if r.config.Wait != locator.DefaultWaitPolicy() {
		t.Errorf("Wait = %+v", r.config.Wait)
	}
}

func TestBuildFormat(t *testing.T) {
	tests := []struct {
		console, dir, want string
	}{
		{"pretty", "", "pretty"},
		{"", "", "pretty"},
		{"progress, pretty", "", "progress,pretty"},
		{"pretty", "out", "pretty,cucumber:" + filepath.Join("out", "cucumber.json") + ",junit:" + filepath.Join("out", "junit.xml")},
	}
	for _, tt := range tests {
		if got := BuildFormat(tt.console, tt.dir); got != tt.want {
			t.Errorf("BuildFormat(%q, %q) = %q, want %q", tt.console, tt.dir, got, tt.want)
		}
	}
}
