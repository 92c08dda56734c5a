package report

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

func TestWriter_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "storefront", "run-1")

	if err := w.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.json")); err != nil {
		t.Fatalf("report.json not written on start: %v", err)
	}

	start := time.Now()
	_ = w.Add(core.ScenarioResult{Name: "Search for laptop", Status: core.StatusPassed, StartTime: start})
	_ = w.Add(core.ScenarioResult{
		Name:       "Add product to cart",
		Status:     core.StatusFailed,
		StartTime:  start.Add(time.Second),
		FailedStep: `the cart count should be "1"`,
		Error:      `cart count: expected "1", got "0"`,
		Attachments: []core.Attachment{
			core.NewScreenshotAttachment("Add_product_to_cart.png", []byte("\x89PNG fake")),
			core.NewTextAttachment(core.AttachmentScenarioLog, "Failed to perform search: no results"),
		},
	})

	res, err := w.End(1)
	if err != nil {
		t.Fatalf("End() = %v", err)
	}
	if res.TotalScenarios != 2 || res.PassedScenarios != 1 || res.FailedScenarios != 1 || res.Captures != 1 {
		t.Errorf("summary = %+v", res)
	}

	back, err := ReadReport(dir)
	if err != nil {
		t.Fatalf("ReadReport() = %v", err)
	}
	if back.RunID != "run-1" || len(back.Scenarios) != 2 {
		t.Errorf("report.json = %+v", back)
	}
	if back.Scenarios[1].Attachments[0].Path != "Add_product_to_cart.png" {
		t.Error("attachment path not persisted")
	}
	if got := back.Scenarios[1].Attachments[1].Text; got != "Failed to perform search: no results" {
		t.Errorf("scenario log in report.json = %q", got)
	}

	html, err := os.ReadFile(filepath.Join(dir, "report.html"))
	if err != nil {
		t.Fatalf("report.html not written: %v", err)
	}
	for _, want := range []string{"storefront", "Add product to cart", "data:image/png;base64,", "Failed to perform search: no results", "50% pass rate"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("report.html missing %q", want)
		}
	}
}

func TestWriter_ConcurrentAdd(t *testing.T) {
	w := NewWriter(t.TempDir(), "parallel", "run-2")
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Add(core.ScenarioResult{Status: core.StatusPassed, StartTime: time.Now()})
		}()
	}
	wg.Wait()

	if got := w.Result(); len(got.Scenarios) != 8 {
		t.Errorf("scenarios = %d, want 8", len(got.Scenarios))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{95 * time.Second, "1m 35s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestLoadAsBase64_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	uri := loadAsBase64(core.Attachment{Path: path, ContentType: core.ContentTypePNG})
	if uri != "data:image/png;base64,cG5n" {
		t.Errorf("loadAsBase64() = %q", uri)
	}
	if loadAsBase64(core.Attachment{Path: "/missing.png"}) != "" {
		t.Error("missing file should give empty URI")
	}
}
