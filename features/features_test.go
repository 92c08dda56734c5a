package features

import (
	"io/fs"
	"strings"
	"testing"
)

func TestFS_ContainsStorefront(t *testing.T) {
	matches, err := fs.Glob(FS, "*.feature")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("no feature files embedded")
	}

	data, err := fs.ReadFile(FS, "storefront.feature")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "Scenario:"); got != 4 {
		t.Errorf("storefront.feature has %d scenarios, want 4", got)
	}
}
