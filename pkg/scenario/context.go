// Package scenario holds per-scenario state threaded through step calls.
package scenario

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// Context is the identity, failure flag and attachments of one scenario.
// Safe for concurrent use.
type Context struct {
	ID        string
	Name      string
	URI       string
	Tags      []string
	StartTime time.Time

	mu          sync.Mutex
	failed      bool
	err         error
	failedStep  string
	attachments []core.Attachment
	logs        []core.LogEntry
	captured    bool
	logsSaved   bool
}

// New creates a scenario context.
func New(id, name string) *Context {
	return &Context{ID: id, Name: name, StartTime: time.Now()}
}

// Fail sets the failure flag. Only the first failure is kept.
func (c *Context) Fail(step string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return
	}
	c.failed = true
	c.err = err
	c.failedStep = step
}

// IsFailed reports whether a step has failed.
func (c *Context) IsFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Err returns the first failure, if any.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// FailedStep returns the text of the first failing step.
func (c *Context) FailedStep() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failedStep
}

// Attach adds an artifact to the scenario's report record.
func (c *Context) Attach(a core.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments = append(c.attachments, a)
}

// Attachments returns a copy of the attachment list.
func (c *Context) Attachments() []core.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Attachment(nil), c.attachments...)
}

// Log records a scenario log line and mirrors it to the run log.
func (c *Context) Log(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	c.mu.Lock()
	c.logs = append(c.logs, core.LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Source:    "step",
		Message:   msg,
	})
	c.mu.Unlock()
	logger.With(logger.Fields{"scenario": c.Name}).Info("%s", msg)
}

// Logs returns the recorded log lines.
func (c *Context) Logs() []core.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.LogEntry(nil), c.logs...)
}

// LogText joins the log lines for a text attachment.
func (c *Context) LogText() string {
	logs := c.Logs()
	lines := make([]string, len(logs))
	for i, l := range logs {
		lines[i] = l.Timestamp.Format("15:04:05.000") + " " + l.Message
	}
	return strings.Join(lines, "\n")
}

// AttachLogs adds the scenario log as a text attachment. It returns false
// when there is nothing to attach or the log was already attached.
func (c *Context) AttachLogs() (core.Attachment, bool) {
	text := c.LogText()
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" || c.logsSaved {
		return core.Attachment{}, false
	}
	c.logsSaved = true
	att := core.NewTextAttachment(core.AttachmentScenarioLog, text)
	c.attachments = append(c.attachments, att)
	return att, true
}

// MarkCaptured returns true the first time it is called.
func (c *Context) MarkCaptured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.captured {
		return false
	}
	c.captured = true
	return true
}

// Result builds the report record for the scenario.
func (c *Context) Result() core.ScenarioResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := core.ScenarioResult{
		ID:          c.ID,
		Name:        c.Name,
		URI:         c.URI,
		Tags:        c.Tags,
		Status:      core.StatusFromError(c.err),
		Category:    core.CategoryOf(c.err),
		StartTime:   c.StartTime,
		Duration:    time.Since(c.StartTime),
		FailedStep:  c.failedStep,
		Attachments: append([]core.Attachment(nil), c.attachments...),
	}
	if c.failed && c.err == nil {
		r.Status = core.StatusFailed
	}
	if c.err != nil {
		r.Error = c.err.Error()
	}
	return r
}

type ctxKey struct{}

// With returns a context carrying sc.
func With(ctx context.Context, sc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// From returns the scenario context carried by ctx, or nil.
func From(ctx context.Context) *Context {
	sc, _ := ctx.Value(ctxKey{}).(*Context)
	return sc
}
