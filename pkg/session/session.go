// Package session owns browser sessions: one per scenario, opened before
// the first step and always closed when the scenario ends.
package session

import (
	"context"
	"sync"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Launcher starts a browser and returns a driver bound to it.
// Implemented by each backend (webdriver, chromedp, playwright, mock).
type Launcher interface {
	Name() string
	Launch(ctx context.Context, cfg Config) (core.Driver, error)
}

// Session is one live browser bound to one scenario.
type Session struct {
	ID string

	cfg     Config
	backend string

	mu      sync.Mutex
	state   State
	driver  core.Driver
	once    sync.Once
	err     error
	onClose func()
}

// Driver returns the session's driver. It returns nil once closed.
func (s *Session) Driver() core.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil
	}
	return s.driver
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns the configuration the session was launched with.
func (s *Session) Config() Config {
	return s.cfg
}

// Backend returns the launcher name.
func (s *Session) Backend() string {
	return s.backend
}

// Close quits the browser. Safe to call more than once and on nil;
// later calls return the first call's result.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.mu.Lock()
		d := s.driver
		s.state = StateClosed
		s.mu.Unlock()

		if d != nil {
			s.err = d.Quit()
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.err
}
