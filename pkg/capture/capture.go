// Package capture saves a screenshot when a scenario fails.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/scenario"
)

// TimestampFormat is the capture time suffix of screenshot file names.
const TimestampFormat = "20060102150405"

// Capturer writes failure screenshots under Dir.
type Capturer struct {
	Dir string
	Now func() time.Time

	invocations atomic.Int64
	saved       atomic.Int64
}

// New creates a Capturer writing to dir.
func New(dir string) *Capturer {
	return &Capturer{Dir: dir, Now: time.Now}
}

// OnFailure screenshots the browser when sc is failed and attaches the
// image to sc. It runs at most once per scenario. Errors are logged and
// swallowed; the return value is nil when nothing was attached.
func (c *Capturer) OnFailure(ctx context.Context, sc *scenario.Context, d core.Driver) *core.Attachment {
	if sc == nil || !sc.IsFailed() {
		return nil
	}
	if !sc.MarkCaptured() {
		return nil
	}
	c.invocations.Add(1)

	att, err := c.capture(ctx, sc, d)
	if err != nil {
		logger.With(logger.Fields{"scenario": sc.Name}).Warn("%v", err)
		return nil
	}
	c.saved.Add(1)
	sc.Attach(*att)
	logger.With(logger.Fields{"scenario": sc.Name}).Info("failure screenshot saved to %s", att.Path)
	return att
}

func (c *Capturer) capture(ctx context.Context, sc *scenario.Context, d core.Driver) (*core.Attachment, error) {
	if d == nil {
		return nil, &core.CaptureError{Scenario: sc.Name, Cause: core.ErrSessionNotReady}
	}

	data, err := d.Screenshot(ctx)
	if err != nil {
		return nil, &core.CaptureError{Scenario: sc.Name, Cause: err}
	}
	if len(data) == 0 {
		return nil, &core.CaptureError{Scenario: sc.Name, Cause: errors.New("empty screenshot")}
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	path := filepath.Join(c.Dir, FileName(sc.Name, now()))
	if err := writeFileAtomic(path, data); err != nil {
		return nil, &core.CaptureError{Scenario: sc.Name, Path: path, Cause: err}
	}

	att := core.NewScreenshotAttachment(path, data)
	return &att, nil
}

// Invocations returns how many failed scenarios triggered a capture.
func (c *Capturer) Invocations() int {
	return int(c.invocations.Load())
}

// Saved returns how many screenshots were written.
func (c *Capturer) Saved() int {
	return int(c.saved.Load())
}

// FileName returns <name>_<yyyyMMddHHmmss>.png with spaces replaced by
// underscores and path or shell-hostile characters removed.
func FileName(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s.png", sanitize(name), t.Format(TimestampFormat))
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ' || r == '\t':
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 0x20:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "scenario"
	}
	return b.String()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".capture-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
