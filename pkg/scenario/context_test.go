package scenario

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

func TestContext_FirstFailureWins(t *testing.T) {
	sc := New("1", "Add product to cart")
	if sc.IsFailed() {
		t.Fatal("new context should not be failed")
	}

	first := &core.StepAssertionError{Step: "cart count", Expected: `"1"`, Actual: `"0"`}
	sc.Fail(`the cart count should be "1"`, first)
	sc.Fail("later step", errors.New("second"))

	if !sc.IsFailed() {
		t.Error("IsFailed() = false after Fail")
	}
	if sc.Err() != first {
		t.Errorf("Err() = %v, want first failure", sc.Err())
	}
	if sc.FailedStep() != `the cart count should be "1"` {
		t.Errorf("FailedStep() = %q", sc.FailedStep())
	}
}

func TestContext_Result(t *testing.T) {
	sc := New("2", "Search for laptop")
	sc.Tags = []string{"@smoke"}

	r := sc.Result()
	if r.Status != core.StatusPassed || r.Error != "" {
		t.Errorf("passing result = %+v", r)
	}

	sc.Fail("I add the product to cart", &core.ElementNotFoundError{Element: "add to cart button"})
	sc.Attach(core.NewScreenshotAttachment("x.png", []byte("png")))

	r = sc.Result()
	if r.Status != core.StatusFailed {
		t.Errorf("Status = %s, want failed", r.Status)
	}
	if r.Category != core.ErrCategoryAssertion {
		t.Errorf("Category = %s", r.Category)
	}
	if len(r.Attachments) != 1 || !strings.Contains(r.Error, "add to cart button") {
		t.Errorf("result = %+v", r)
	}
}

func TestContext_MarkCapturedOnce(t *testing.T) {
	sc := New("3", "x")
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sc.MarkCaptured() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("MarkCaptured() won %d times, want 1", wins)
	}
}

func TestContext_Log(t *testing.T) {
	sc := New("4", "x")
	sc.Log("Failed to perform search: %s", "timeout")

	if len(sc.Logs()) != 1 {
		t.Fatalf("Logs() = %v", sc.Logs())
	}
	if !strings.Contains(sc.LogText(), "Failed to perform search: timeout") {
		t.Errorf("LogText() = %q", sc.LogText())
	}
}

func TestContext_AttachLogs(t *testing.T) {
	sc := New("6", "x")
	if _, ok := sc.AttachLogs(); ok {
		t.Error("AttachLogs() with no log lines should attach nothing")
	}

	sc.Log("Failed to perform search: %s", "no results")
	att, ok := sc.AttachLogs()
	if !ok {
		t.Fatal("AttachLogs() = false, want true")
	}
	if att.Name != core.AttachmentScenarioLog || att.ContentType != core.ContentTypeText {
		t.Errorf("attachment = %s/%s", att.Name, att.ContentType)
	}
	if !strings.Contains(string(att.Body), "Failed to perform search: no results") {
		t.Errorf("Body = %q", att.Body)
	}
	if _, ok := sc.AttachLogs(); ok {
		t.Error("second AttachLogs() should attach nothing")
	}
	if got := sc.Result().Attachments; len(got) != 1 {
		t.Errorf("Result().Attachments = %d, want 1", len(got))
	}
}

func TestWithFrom(t *testing.T) {
	if From(context.Background()) != nil {
		t.Error("From() on empty context should be nil")
	}
	sc := New("5", "x")
	if From(With(context.Background(), sc)) != sc {
		t.Error("From(With(sc)) should return sc")
	}
}
