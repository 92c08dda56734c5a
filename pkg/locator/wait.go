package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Default explicit wait values.
const (
	DefaultTimeout  = 20 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

// WaitPolicy bounds a single poll: check every Interval until Timeout.
type WaitPolicy struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultWaitPolicy returns the default explicit wait.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

func (p WaitPolicy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

func (p WaitPolicy) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

// Poll calls check until it returns nil or the policy's timeout expires.
// The check is called at least once. A check error wrapped with
// backoff.Permanent stops polling and is returned as is.
// On timeout the result matches core.ErrWaitTimeout and carries the last
// check error as its cause.
func (p WaitPolicy) Poll(ctx context.Context, check func(ctx context.Context) error) error {
	pollCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	var last error
	op := func() error {
		err := check(pollCtx)
		if err != nil {
			last = err
		}
		return err
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(p.interval()), pollCtx)
	err := backoff.Retry(op, b)
	if err == nil {
		return nil
	}

	// Caller cancelled: not a timeout of this poll.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) && pollCtx.Err() != nil {
		return core.ErrWaitTimeout.
			WithMessage(fmt.Sprintf("timed out after %v", p.timeout())).
			WithCause(last)
	}
	return err
}

// Until polls cond until it reports true. desc names the awaited state in
// the timeout error.
func (p WaitPolicy) Until(ctx context.Context, desc string, cond func(ctx context.Context) (bool, error)) error {
	err := p.Poll(ctx, func(ctx context.Context) error {
		ok, err := cond(ctx)
		if err != nil {
			if errors.Is(err, core.ErrSessionClosed) {
				return backoff.Permanent(err)
			}
			return err
		}
		if !ok {
			return core.ErrConditionNotMet.WithMessage(desc + " not yet true")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", desc, err)
	}
	return nil
}
