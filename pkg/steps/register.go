package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"github.com/devicelab-dev/shopcheck/pkg/capture"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/locator"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/scenario"
	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/devicelab-dev/shopcheck/pkg/site"
)

// Hooks is what the scenario lifecycle needs from the run.
type Hooks struct {
	Manager  *session.Manager
	Session  session.Config
	Site     *site.Site
	Wait     locator.WaitPolicy
	Capturer *capture.Capturer // nil disables failure capture

	// OnScenarioEnd receives every finished scenario's record.
	OnScenarioEnd func(core.ScenarioResult)
}

// captureTimeout bounds the failure screenshot independent of the step's context.
const captureTimeout = 15 * time.Second

// Definition describes one step pattern.
type Definition struct {
	Pattern string
	Doc     string
	step    interface{} // func(*Executor, context.Context[, string]) error
}

// Definitions lists every step the suite understands.
func Definitions() []Definition {
	return []Definition{
		{`^I am on the (?:Amazon homepage|home page)$`, "Open the storefront and wait for the search box", (*Executor).OpenHomePage},
		{`^I search for "([^"]*)"$`, "Search for a term", (*Executor).SearchFor},
		{`^I should see search results$`, "Assert at least one result is listed", (*Executor).ShouldSeeSearchResults},
		{`^the page title should contain "([^"]*)"$`, "Assert the title contains text, ignoring case", (*Executor).TitleShouldContain},
		{`^I click on the first product$`, "Open the first search result", (*Executor).ClickFirstProduct},
		{`^I add the product to cart$`, "Click add to cart on the product page", (*Executor).AddProductToCart},
		{`^the cart count should be "([^"]*)"$`, "Assert the cart badge text", (*Executor).CartCountShouldBe},
		{`^I hover over the "([^"]*)" menu$`, "Hover the navigation menu trigger", (*Executor).HoverOverMenu},
		{`^I should see the main navigation categories$`, "Open the menu and assert it lists categories", (*Executor).ShouldSeeNavigationCategories},
	}
}

// world is the per-scenario state carried in the godog context.
type world struct {
	sc   *scenario.Context
	sess *session.Session
	exec *Executor
}

type worldKey struct{}

func worldFrom(ctx context.Context) *world {
	w, _ := ctx.Value(worldKey{}).(*world)
	return w
}

// Register binds the step patterns and lifecycle hooks to sc.
func Register(sc *godog.ScenarioContext, h Hooks) {
	if h.Site == nil {
		h.Site = site.Amazon("")
	}

	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		scx := scenario.New(s.Id, s.Name)
		scx.URI = s.Uri
		for _, tag := range s.Tags {
			scx.Tags = append(scx.Tags, tag.Name)
		}
		w := &world{sc: scx}
		ctx = scenario.With(ctx, scx)
		ctx = context.WithValue(ctx, worldKey{}, w)

		sess, err := h.Manager.Open(ctx, h.Session)
		if err != nil {
			scx.Fail("open session", err)
			return ctx, err
		}
		w.sess = sess
		w.exec = NewExecutor(sess.Driver(), h.Site, h.Wait, scx)
		return ctx, nil
	})

	sc.StepContext().After(func(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
		if status != godog.StepFailed {
			return ctx, err
		}
		w := worldFrom(ctx)
		if w == nil {
			return ctx, err
		}
		w.sc.Fail(st.Text, err)
		return captureInto(ctx, w, h), err
	})

	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		w := worldFrom(ctx)
		if w == nil {
			return ctx, err
		}
		if err != nil {
			w.sc.Fail("", err)
		}
		// Steps that never ran (session start failure) still get one capture attempt.
		ctx = captureInto(ctx, w, h)

		h.Manager.Close(w.sess)

		res := w.sc.Result()
		logger.With(logger.Fields{"scenario": s.Name}).Info("scenario %s in %v", res.Status, res.Duration.Round(time.Millisecond))
		if h.OnScenarioEnd != nil {
			h.OnScenarioEnd(res)
		}
		return ctx, err
	})

	for _, def := range Definitions() {
		def := def
		sc.Step(def.Pattern, bind(def))
	}
}

func captureInto(ctx context.Context, w *world, h Hooks) context.Context {
	if !w.sc.IsFailed() {
		return ctx
	}
	if logs, ok := w.sc.AttachLogs(); ok {
		ctx = godog.Attach(ctx, godog.Attachment{
			Body:      logs.Body,
			FileName:  logs.Name,
			MediaType: logs.ContentType,
		})
	}
	if h.Capturer == nil {
		return ctx
	}
	var d core.Driver
	if w.sess != nil {
		d = w.sess.Driver()
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
	defer cancel()

	att := h.Capturer.OnFailure(cctx, w.sc, d)
	if att == nil {
		return ctx
	}
	return godog.Attach(ctx, godog.Attachment{
		Body:      att.Body,
		FileName:  att.Name,
		MediaType: att.ContentType,
	})
}

// bind adapts an Executor method to a godog step function that resolves
// the executor from the scenario context at call time.
func bind(def Definition) interface{} {
	switch fn := def.step.(type) {
	case func(*Executor, context.Context) error:
		return func(ctx context.Context) error {
			e, err := executorFrom(ctx)
			if err != nil {
				return err
			}
			return fn(e, ctx)
		}
	case func(*Executor, context.Context, string) error:
		return func(ctx context.Context, arg string) error {
			e, err := executorFrom(ctx)
			if err != nil {
				return err
			}
			return fn(e, ctx, arg)
		}
	default:
		panic(fmt.Sprintf("steps: unsupported step signature %T for %s", def.step, def.Pattern))
	}
}

func executorFrom(ctx context.Context) (*Executor, error) {
	w := worldFrom(ctx)
	if w == nil || w.exec == nil {
		return nil, core.ErrSessionNotReady
	}
	return w.exec, nil
}
