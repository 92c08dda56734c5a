package locator

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// fakeElement is a minimal core.Element.
type fakeElement struct {
	shown   bool
	enabled bool
	err     error
}

func (e *fakeElement) Click(context.Context) error { return nil }
func (e *fakeElement) Clear(context.Context) error { return nil }
func (e *fakeElement) SendKeys(context.Context, string) error { return nil }
func (e *fakeElement) Text(context.Context) (string, error) { return "", nil }
func (e *fakeElement) Displayed(context.Context) (bool, error) { return e.shown, e.err }
func (e *fakeElement) Enabled(context.Context) (bool, error) { return e.enabled, e.err }
func (e *fakeElement) Hover(context.Context) error { return nil }

// fakeDriver answers FindElements from a per-selector function.
type fakeDriver struct {
	mu    sync.Mutex
	find  func(sel core.Selector, call int) ([]core.Element, error)
	calls map[core.Selector]int
	order []core.Selector
}

func newFakeDriver(find func(sel core.Selector, call int) ([]core.Element, error)) *fakeDriver {
	return &fakeDriver{find: find, calls: make(map[core.Selector]int)}
}

func (d *fakeDriver) FindElements(_ context.Context, sel core.Selector) ([]core.Element, error) {
	d.mu.Lock()
	d.calls[sel]++
	n := d.calls[sel]
	if n == 1 {
		d.order = append(d.order, sel)
	}
	d.mu.Unlock()
	return d.find(sel, n)
}

func (d *fakeDriver) Navigate(context.Context, string) error { return nil }
func (d *fakeDriver) Title(context.Context) (string, error) { return "", nil }
func (d *fakeDriver) CurrentURL(context.Context) (string, error) { return "", nil }
func (d *fakeDriver) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (d *fakeDriver) Quit() error { return nil }
func (d *fakeDriver) ExecuteScript(context.Context, string, ...interface{}) (interface{}, error) {
	return nil, nil
}

var fastPolicy = WaitPolicy{Timeout: 60 * time.Millisecond, Interval: 5 * time.Millisecond}

func visible() []core.Element {
	return []core.Element{&fakeElement{shown: true, enabled: true}}
}

func TestLocate_FallbackSucceedsRegardlessOfFailingPrefix(t *testing.T) {
	good := core.CSS("input#twotabsearchtextbox")
	bad := []core.Selector{core.ID("gone-1"), core.Name("gone-2"), core.XPath("//gone")}

	prefixes := [][]core.Selector{
		{},
		{bad[0]},
		{bad[1], bad[0]},
		{bad[2], bad[0], bad[1]},
	}
	for _, prefix := range prefixes {
		chain := NewChain("search box", append(append([]core.Selector{}, prefix...), good)...)
		d := newFakeDriver(func(sel core.Selector, _ int) ([]core.Element, error) {
			if sel == good {
				return visible(), nil
			}
			return nil, nil
		})

		m, err := New(d, fastPolicy).Locate(context.Background(), chain, Clickable())
		if err != nil {
			t.Fatalf("chain %s: unexpected error: %v", chain, err)
		}
		if m.Selector != good {
			t.Errorf("chain %s: matched %s, want %s", chain, m.Selector, good)
		}
		if m.Count() != 1 || m.First() == nil {
			t.Errorf("chain %s: match = %+v", chain, m)
		}
	}
}

func TestLocate_FirstSuccessWins(t *testing.T) {
	first, second := core.ID("nav-cart-count"), core.CSS("span.nav-cart-count")
	d := newFakeDriver(func(core.Selector, int) ([]core.Element, error) {
		return visible(), nil
	})

	m, err := New(d, fastPolicy).Locate(context.Background(), NewChain("cart", first, second), Present())
	if err != nil {
		t.Fatal(err)
	}
	if m.Selector != first {
		t.Errorf("matched %s, want %s", m.Selector, first)
	}
	if d.calls[second] != 0 {
		t.Error("second selector should not be checked after the first matched")
	}
}

func TestLocate_ExhaustedListsAttemptsInOrder(t *testing.T) {
	chain := NewChain("hamburger menu",
		core.ID("nav-hamburger-menu"),
		core.CSS("a[aria-label='Open All Categories Menu']"),
		core.XPath("//a[@data-csa-c-slot-id='HamburgerMenuDesktop']"),
	)
	d := newFakeDriver(func(core.Selector, int) ([]core.Element, error) { return nil, nil })

	_, err := New(d, fastPolicy).Locate(context.Background(), chain, Clickable())

	var notFound *core.ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *core.ElementNotFoundError", err)
	}
	if !reflect.DeepEqual(notFound.Attempted, chain.Selectors) {
		t.Errorf("Attempted = %v, want %v", notFound.Attempted, chain.Selectors)
	}
	if !reflect.DeepEqual(d.order, chain.Selectors) {
		t.Errorf("check order = %v, want %v", d.order, chain.Selectors)
	}
	if notFound.Element != "hamburger menu" || notFound.Condition != "clickable" {
		t.Errorf("unexpected error fields: %+v", notFound)
	}
	if !errors.Is(notFound.Cause, core.ErrWaitTimeout) {
		t.Errorf("Cause = %v, want wait timeout", notFound.Cause)
	}
}

func TestLocate_EachSelectorGetsItsOwnWindow(t *testing.T) {
	slow := core.CSS("#slow")
	d := newFakeDriver(func(sel core.Selector, call int) ([]core.Element, error) {
		if sel == slow && call >= 3 {
			return visible(), nil
		}
		return nil, nil
	})

	chain := NewChain("results", core.ID("missing"), slow)
	m, err := New(d, fastPolicy).Locate(context.Background(), chain, Present())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Selector != slow {
		t.Errorf("matched %s, want %s", m.Selector, slow)
	}
	if d.calls[core.ID("missing")] < 2 {
		t.Errorf("first selector checked %d times, want polling", d.calls[core.ID("missing")])
	}
}

func TestLocate_SkipsHiddenAndDisabled(t *testing.T) {
	sel := core.ID("add-to-cart-button")
	d := newFakeDriver(func(core.Selector, int) ([]core.Element, error) {
		return []core.Element{
			&fakeElement{shown: false, enabled: true},
			&fakeElement{shown: true, enabled: false},
			&fakeElement{shown: true, err: errors.New("stale element reference")},
		}, nil
	})

	_, err := New(d, fastPolicy).Locate(context.Background(), NewChain("add to cart", sel), Clickable())
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Fatalf("error = %v, want element not found", err)
	}

	m, err := New(d, fastPolicy).Locate(context.Background(), NewChain("add to cart", sel), Present())
	if err != nil || m.Count() != 3 {
		t.Fatalf("Present: m=%v err=%v", m, err)
	}
}

func TestLocate_SessionGoneStopsChain(t *testing.T) {
	chain := NewChain("search box", core.ID("a"), core.ID("b"))
	d := newFakeDriver(func(core.Selector, int) ([]core.Element, error) {
		return nil, core.ErrSessionClosed
	})

	start := time.Now()
	_, err := New(d, WaitPolicy{Timeout: time.Second, Interval: 10 * time.Millisecond}).
		Locate(context.Background(), chain, Present())

	var notFound *core.ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v", err)
	}
	if len(notFound.Attempted) != 1 {
		t.Errorf("Attempted = %v, want only the first selector", notFound.Attempted)
	}
	if !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("error should wrap ErrSessionClosed: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("session loss should abort without waiting out the timeout")
	}
}

func TestLocate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newFakeDriver(func(core.Selector, int) ([]core.Element, error) { return nil, nil })
	_, err := New(d, fastPolicy).Locate(ctx, NewChain("x", core.ID("a"), core.ID("b")), Present())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if d.calls[core.ID("b")] != 0 {
		t.Error("second selector should not be tried after cancellation")
	}
}

func TestCountAbove(t *testing.T) {
	d := newFakeDriver(func(_ core.Selector, call int) ([]core.Element, error) {
		els := make([]core.Element, call)
		for i := range els {
			els[i] = &fakeElement{shown: true}
		}
		return els, nil
	})

	m, err := New(d, fastPolicy).Locate(context.Background(), NewChain("menu items", core.Class("hmenu-item")), CountAbove(2))
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}
}

func TestMatch_NilSafe(t *testing.T) {
	var m *Match
	if m.First() != nil || m.Count() != 0 {
		t.Error("nil Match should be empty")
	}
}
