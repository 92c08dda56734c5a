package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/google/uuid"
)

// Manager opens and closes sessions. It keeps no pool: every Open
// launches a fresh browser.
type Manager struct {
	launcher Launcher
	cleaner  *Cleaner

	active atomic.Int32
	opened atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithCleaner runs c on Shutdown once no session is active.
func WithCleaner(c *Cleaner) Option {
	return func(m *Manager) { m.cleaner = c }
}

// NewManager creates a Manager launching browsers through l.
func NewManager(l Launcher, opts ...Option) *Manager {
	m := &Manager{launcher: l}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open launches a browser configured by cfg. Any failure is returned as
// *core.SessionInitError and is not retried.
func (m *Manager) Open(ctx context.Context, cfg Config) (*Session, error) {
	s := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		backend: m.launcher.Name(),
		state:   StateUninitialized,
	}
	log := logger.With(logger.Fields{"session": s.ID, "driver": s.backend})

	start := time.Now()
	d, err := m.launcher.Launch(ctx, cfg)
	if err == nil && d == nil {
		err = errors.New("launcher returned no driver")
	}
	if err != nil {
		log.Error("session start failed: %v", err)
		var initErr *core.SessionInitError
		if errors.As(err, &initErr) {
			return nil, initErr
		}
		return nil, &core.SessionInitError{Driver: s.backend, Cause: err}
	}

	s.mu.Lock()
	s.driver = d
	s.state = StateReady
	s.mu.Unlock()

	m.active.Add(1)
	m.opened.Add(1)
	s.onClose = func() { m.active.Add(-1) }

	log.Info("session ready in %v (headless=%v, window=%s)", time.Since(start).Round(time.Millisecond), cfg.Headless, cfg.WindowSize)
	return s, nil
}

// Close ends s. It is nil-safe and idempotent; teardown errors are
// logged, never returned.
func (m *Manager) Close(s *Session) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.With(logger.Fields{"session": s.ID}).Warn("session teardown: %v", err)
		return
	}
	logger.With(logger.Fields{"session": s.ID}).Debug("session closed")
}

// Active returns the number of sessions currently open.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Opened returns the number of sessions opened so far.
func (m *Manager) Opened() int {
	return int(m.opened.Load())
}

// Shutdown runs the process cleaner when no session is active.
// Cleanup failures are logged only.
func (m *Manager) Shutdown(ctx context.Context) {
	if m.cleaner == nil {
		return
	}
	if n := m.Active(); n > 0 {
		logger.Warn("skipping browser cleanup: %d session(s) still active", n)
		return
	}
	for _, err := range m.cleaner.Clean(ctx) {
		logger.Warn("browser cleanup: %v", err)
	}
}

// String describes the manager for logs.
func (m *Manager) String() string {
	return fmt.Sprintf("session.Manager(%s, active=%d)", m.launcher.Name(), m.Active())
}
