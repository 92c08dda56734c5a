// Package locator finds elements through ordered fallback selector chains.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// Chain is the ordered list of selectors for one logical element.
type Chain struct {
	Name      string
	Selectors []core.Selector
}

// NewChain creates a chain. Order is the attempt order.
func NewChain(name string, selectors ...core.Selector) Chain {
	return Chain{Name: name, Selectors: selectors}
}

// String returns a description like search box[id="a", css="b"].
func (c Chain) String() string {
	parts := make([]string, len(c.Selectors))
	for i, s := range c.Selectors {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%s[%s]", c.Name, strings.Join(parts, ", "))
}

// Match is the result of a successful locate.
type Match struct {
	Selector core.Selector  // the selector that succeeded
	Elements []core.Element // elements satisfying the condition
}

// First returns the first matching element.
func (m *Match) First() core.Element {
	if m == nil || len(m.Elements) == 0 {
		return nil
	}
	return m.Elements[0]
}

// Count returns the number of matching elements.
func (m *Match) Count() int {
	if m == nil {
		return 0
	}
	return len(m.Elements)
}

// Locator resolves chains against a driver.
type Locator struct {
	driver core.Driver
	policy WaitPolicy
}

// New creates a Locator using policy for every selector attempt.
func New(driver core.Driver, policy WaitPolicy) *Locator {
	return &Locator{driver: driver, policy: policy}
}

// Policy returns the locator's default wait policy.
func (l *Locator) Policy() WaitPolicy {
	return l.policy
}

// Locate tries each selector of chain in order, each with a full wait window,
// and returns the first one whose elements satisfy cond.
func (l *Locator) Locate(ctx context.Context, chain Chain, cond Condition) (*Match, error) {
	return l.LocateWithin(ctx, chain, cond, l.policy)
}

// LocateWithin is Locate with an explicit wait policy.
//
// When every selector is exhausted the error is a *core.ElementNotFoundError
// listing exactly the selectors attempted, in order.
func (l *Locator) LocateWithin(ctx context.Context, chain Chain, cond Condition, policy WaitPolicy) (*Match, error) {
	attempted := make([]core.Selector, 0, len(chain.Selectors))
	var last error

	for _, sel := range chain.Selectors {
		if sel.IsEmpty() {
			continue
		}
		attempted = append(attempted, sel)

		m, err := l.try(ctx, sel, cond, policy)
		if err == nil {
			if len(attempted) > 1 {
				logger.Debug("locate %s: fell back to %s after %d attempts", chain.Name, sel, len(attempted))
			}
			return m, nil
		}
		last = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("locate %s: %w", chain.Name, ctx.Err())
		}
		if isSessionGone(err) {
			break
		}
		logger.Debug("locate %s: %s not %s: %v", chain.Name, sel, cond.Name, err)
	}

	return nil, &core.ElementNotFoundError{
		Element:   chain.Name,
		Condition: cond.Name,
		Attempted: attempted,
		Cause:     last,
	}
}

func (l *Locator) try(ctx context.Context, sel core.Selector, cond Condition, policy WaitPolicy) (*Match, error) {
	var match *Match
	err := policy.Poll(ctx, func(ctx context.Context) error {
		els, err := l.driver.FindElements(ctx, sel)
		if err != nil {
			if isSessionGone(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		got, err := cond.Filter(ctx, els)
		if err != nil {
			if isSessionGone(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(got) == 0 {
			return core.ErrConditionNotMet.WithMessage(fmt.Sprintf("%d found, none %s", len(els), cond.Name))
		}
		match = &Match{Selector: sel, Elements: got}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func isSessionGone(err error) bool {
	return errors.Is(err, core.ErrSessionClosed) || errors.Is(err, core.ErrSessionNotReady)
}
