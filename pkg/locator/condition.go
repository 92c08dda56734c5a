package locator

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Condition decides which found elements satisfy a wait. An empty result
// means "not yet".
type Condition struct {
	Name   string
	Filter func(ctx context.Context, els []core.Element) ([]core.Element, error)
}

// Present is satisfied by any matching element.
func Present() Condition {
	return Condition{
		Name: "present",
		Filter: func(_ context.Context, els []core.Element) ([]core.Element, error) {
			return els, nil
		},
	}
}

// Visible keeps displayed elements.
func Visible() Condition {
	return Condition{
		Name: "visible",
		Filter: func(ctx context.Context, els []core.Element) ([]core.Element, error) {
			return filter(ctx, els, func(ctx context.Context, el core.Element) (bool, error) {
				return el.Displayed(ctx)
			})
		},
	}
}

// Clickable keeps elements that are displayed and enabled.
func Clickable() Condition {
	return Condition{
		Name: "clickable",
		Filter: func(ctx context.Context, els []core.Element) ([]core.Element, error) {
			return filter(ctx, els, func(ctx context.Context, el core.Element) (bool, error) {
				shown, err := el.Displayed(ctx)
				if err != nil || !shown {
					return false, err
				}
				return el.Enabled(ctx)
			})
		},
	}
}

// CountAbove is satisfied once more than n elements match.
func CountAbove(n int) Condition {
	return Condition{
		Name: fmt.Sprintf("count > %d", n),
		Filter: func(_ context.Context, els []core.Element) ([]core.Element, error) {
			if len(els) > n {
				return els, nil
			}
			return nil, nil
		},
	}
}

// filter keeps elements for which keep is true. Per-element errors (stale
// handles while the page re-renders) drop the element instead of failing
// the check, unless the session itself is gone.
func filter(ctx context.Context, els []core.Element, keep func(context.Context, core.Element) (bool, error)) ([]core.Element, error) {
	var out []core.Element
	for _, el := range els {
		ok, err := keep(ctx, el)
		if err != nil {
			if isSessionGone(err) {
				return nil, err
			}
			continue
		}
		if ok {
			out = append(out, el)
		}
	}
	return out, nil
}
