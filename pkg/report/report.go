// Package report writes the suite summary: report.json plus a static
// report.html with failure screenshots embedded.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Writer collects scenario results and keeps report.json current.
// Safe for concurrent use by parallel scenarios.
type Writer struct {
	mu     sync.Mutex
	dir    string
	result core.SuiteResult
}

// NewWriter creates a Writer for a run.
func NewWriter(dir, name, runID string) *Writer {
	return &Writer{
		dir: dir,
		result: core.SuiteResult{
			Name:  name,
			RunID: runID,
		},
	}
}

// Start marks the run as started and writes the empty index.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.result.StartTime = time.Now()
	return w.flushLocked()
}

// Add records a finished scenario and rewrites the index.
func (w *Writer) Add(r core.ScenarioResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.result.Scenarios = append(w.result.Scenarios, r)
	return w.flushLocked()
}

// End finalizes the run, writes report.json and report.html, and returns
// the summary.
func (w *Writer) End(captures int) (core.SuiteResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.result.Duration = time.Since(w.result.StartTime)
	w.result.Captures = captures
	sort.SliceStable(w.result.Scenarios, func(i, j int) bool {
		return w.result.Scenarios[i].StartTime.Before(w.result.Scenarios[j].StartTime)
	})

	if err := w.flushLocked(); err != nil {
		return w.result, err
	}
	if err := GenerateHTML(w.dir, w.result); err != nil {
		return w.result, err
	}
	return w.result, nil
}

// Result returns a snapshot of the summary.
func (w *Writer) Result() core.SuiteResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.result
	r.Scenarios = append([]core.ScenarioResult(nil), w.result.Scenarios...)
	return r
}

func (w *Writer) flushLocked() error {
	w.result.ComputeSummary()
	return atomicWriteJSON(filepath.Join(w.dir, "report.json"), &w.result)
}

// ReadReport loads report.json from dir.
func ReadReport(dir string) (*core.SuiteResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		return nil, err
	}
	var r core.SuiteResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report.json: %w", err)
	}
	return &r, nil
}

func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
