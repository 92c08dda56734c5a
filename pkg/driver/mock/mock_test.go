package mock

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/session"
	"github.com/devicelab-dev/shopcheck/pkg/site"
)

func first(t *testing.T, d *Driver, sel core.Selector) core.Element {
	t.Helper()
	els, err := d.FindElements(context.Background(), sel)
	if err != nil {
		t.Fatalf("FindElements(%s) error = %v", sel, err)
	}
	if len(els) == 0 {
		t.Fatalf("FindElements(%s) found nothing", sel)
	}
	return els[0]
}

func TestStorefront_SearchAndCart(t *testing.T) {
	ctx := context.Background()
	s := site.Amazon("")
	d := New(Config{Site: s})

	if els, _ := d.FindElements(ctx, s.SearchBox.Selectors[0]); len(els) != 0 {
		t.Error("blank page should render nothing")
	}
	if err := d.Navigate(ctx, s.HomeURL()); err != nil {
		t.Fatal(err)
	}

	box := first(t, d, s.SearchBox.Selectors[0])
	if err := box.SendKeys(ctx, "laptop"); err != nil {
		t.Fatal(err)
	}
	if err := first(t, d, s.SearchSubmit.Selectors[0]).Click(ctx); err != nil {
		t.Fatal(err)
	}

	results, _ := d.FindElements(ctx, s.SearchResults.Selectors[0])
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	title, _ := d.Title(ctx)
	if title != "Amazon.com : laptop" {
		t.Errorf("Title() = %q", title)
	}

	if err := first(t, d, s.FirstProduct.Selectors[0]).Click(ctx); err != nil {
		t.Fatal(err)
	}
	if err := first(t, d, s.AddToCart.Selectors[0]).Click(ctx); err != nil {
		t.Fatal(err)
	}
	text, _ := first(t, d, s.CartCount.Selectors[0]).Text(ctx)
	if text != "1" {
		t.Errorf("cart text = %q, want 1", text)
	}
}

func TestStorefront_PrimaryGone(t *testing.T) {
	ctx := context.Background()
	s := site.Amazon("")
	d := New(Config{Site: s, PrimaryGone: true})
	_ = d.Navigate(ctx, s.HomeURL())

	if els, _ := d.FindElements(ctx, s.SearchBox.Selectors[0]); len(els) != 0 {
		t.Error("primary selector should not match")
	}
	first(t, d, s.SearchBox.Selectors[1])
}

func TestStorefront_MenuNeedsHamburger(t *testing.T) {
	ctx := context.Background()
	s := site.Amazon("")
	d := New(Config{Site: s})
	_ = d.Navigate(ctx, s.HomeURL())

	if els, _ := d.FindElements(ctx, s.MenuItems.Selectors[0]); len(els) != 0 {
		t.Error("menu items should render only after opening the menu")
	}
	burger := first(t, d, s.Hamburger.Selectors[0])
	_ = burger.Hover(ctx)
	if d.Hovered() != keyHamburger {
		t.Errorf("Hovered() = %q", d.Hovered())
	}
	_ = burger.Click(ctx)
	items, _ := d.FindElements(ctx, s.MenuItems.Selectors[0])
	if len(items) != len(menuLabels) {
		t.Errorf("menu items = %d, want %d", len(items), len(menuLabels))
	}

	d = New(Config{Site: s, NoHamburger: true})
	_ = d.Navigate(ctx, s.HomeURL())
	for _, sel := range s.Hamburger.Selectors {
		if els, _ := d.FindElements(ctx, sel); len(els) != 0 {
			t.Errorf("%s should not match with NoHamburger", sel)
		}
	}
}

func TestStorefront_ClosedSession(t *testing.T) {
	ctx := context.Background()
	d := New(Config{QuitErr: errors.New("already gone")})

	if err := d.Quit(); err == nil {
		t.Error("Quit() should return QuitErr")
	}
	if _, err := d.FindElements(ctx, core.ID("x")); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("FindElements() after Quit = %v, want ErrSessionClosed", err)
	}
	if _, err := d.Screenshot(ctx); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Screenshot() after Quit = %v", err)
	}
}

func TestStorefront_Screenshot(t *testing.T) {
	d := New(Config{})
	data, err := d.Screenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Screenshot() should return PNG data")
	}
	if d.Screenshots() != 1 {
		t.Errorf("Screenshots() = %d", d.Screenshots())
	}
}

func TestLauncher(t *testing.T) {
	l := &Launcher{}
	drv, err := l.Launch(context.Background(), session.DefaultConfig())
	if err != nil || drv == nil {
		t.Fatalf("Launch() = %v, %v", drv, err)
	}
	if len(l.Drivers()) != 1 {
		t.Errorf("Drivers() = %d", len(l.Drivers()))
	}

	l.Err = errors.New("boom")
	if _, err := l.Launch(context.Background(), session.DefaultConfig()); err == nil {
		t.Error("expected launch error")
	}
}
