package devtools

import (
	"reflect"
	"strings"
	"testing"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/session"
)

func TestQueryFor(t *testing.T) {
	tests := []struct {
		sel    core.Selector
		query  string
		search bool
	}{
		{core.ID("add-to-cart-button"), `[id="add-to-cart-button"]`, false},
		{core.CSS("h2 a"), "h2 a", false},
		{core.Class("hmenu-item"), ".hmenu-item", false},
		{core.XPath("//span[@id='nav-cart-count']"), "//span[@id='nav-cart-count']", true},
		{core.LinkText("All"), "//a[normalize-space()='All']", true},
	}
	for _, tt := range tests {
		query, _ := queryFor(tt.sel)
		if query != tt.query {
			t.Errorf("queryFor(%s) = %q, want %q", tt.sel, query, tt.query)
		}
	}
}

func TestWrapScript(t *testing.T) {
	expr, err := wrapScript("return document.readyState", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(expr, "(function(){return document.readyState}).apply(null, [])") {
		t.Errorf("expr = %s", expr)
	}

	expr, err = wrapScript("return arguments[0] + arguments[1]", []interface{}{"a", 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(expr, `.apply(null, ["a",2])`) {
		t.Errorf("expr = %s", expr)
	}

	if _, err := wrapScript("return 1", []interface{}{&Element{}}); err == nil {
		t.Error("element arguments should be rejected")
	}
}

func TestParseFlags(t *testing.T) {
	got := parseFlags([]string{"--no-sandbox", "--disable-blink-features=AutomationControlled", "", "--"})
	want := map[string]interface{}{
		"no-sandbox":             true,
		"disable-blink-features": "AutomationControlled",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseFlags() = %v, want %v", got, want)
	}
}

func TestAllocatorOptions(t *testing.T) {
	headless := session.DefaultConfig()
	headed := session.DefaultConfig()
	headed.Headless = false
	headed.Maximize = true
	headed.BrowserBinary = "/usr/bin/chromium"

	if n, m := len(AllocatorOptions(headless)), len(AllocatorOptions(headed)); m != n+2 {
		t.Errorf("headed options = %d, want headless (%d) + maximize + exec path", m, n)
	}
}

func TestLauncher_Name(t *testing.T) {
	if got := (&Launcher{}).Name(); got != "chromedp" {
		t.Errorf("Name() = %q", got)
	}
}
