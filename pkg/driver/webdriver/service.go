package webdriver

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// Service defaults
const (
	DefaultStartTimeout = 20 * time.Second
	statusPollInterval  = 200 * time.Millisecond
)

// Service is a chromedriver process owned by one session.
type Service struct {
	Path    string        // chromedriver binary
	Port    int           // 0 = pick a free port
	Timeout time.Duration // startup timeout
	LogPath string        // chromedriver --log-path, optional

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// URL returns the service base URL.
func (s *Service) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.Port)
}

// Start launches chromedriver and waits until /status reports ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("chromedriver already started")
	}
	if s.Port == 0 {
		port, err := freePort()
		if err != nil {
			return err
		}
		s.Port = port
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultStartTimeout
	}

	args := []string{"--port=" + strconv.Itoa(s.Port)}
	if s.LogPath != "" {
		args = append(args, "--log-path="+s.LogPath)
	}
	cmd := exec.Command(s.Path, args...)
	cmd.Stdout = logger.GetWriter()
	cmd.Stderr = logger.GetWriter()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.Path, err)
	}
	s.cmd = cmd
	s.done = make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()

	logger.Debug("chromedriver pid %d listening on port %d", cmd.Process.Pid, s.Port)

	if err := s.waitReady(ctx); err != nil {
		s.stopLocked()
		return err
	}
	return nil
}

func (s *Service) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	client := NewClient(s.URL())
	probe := func() error {
		select {
		case <-s.done:
			return backoff.Permanent(fmt.Errorf("chromedriver exited during startup"))
		default:
		}
		ready, err := client.Status(ctx)
		if err != nil {
			return err
		}
		if !ready {
			return fmt.Errorf("chromedriver not ready")
		}
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(statusPollInterval), ctx)
	if err := backoff.Retry(probe, b); err != nil {
		if ctx.Err() != nil {
			return core.ErrServerUnreachable.WithMessage(fmt.Sprintf("chromedriver not ready after %v", s.Timeout))
		}
		return err
	}
	return nil
}

// Stop kills the chromedriver process. Safe to call more than once.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Service) stopLocked() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	select {
	case <-s.done:
	default:
		if err := s.cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
			return fmt.Errorf("kill chromedriver: %w", err)
		}
		<-s.done
	}
	s.cmd = nil
	return nil
}

// freePort asks the kernel for an unused local TCP port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("no free port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
