package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("SHOPCHECK_HOME", "/custom/path")

	got := GetHome()
	if got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackNotEmpty(t *testing.T) {
	ResetHome()
	t.Setenv("SHOPCHECK_HOME", "")

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("SHOPCHECK_HOME", "/first")

	first := GetHome()

	// Change env; cached value should not change
	t.Setenv("SHOPCHECK_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestGetDriversDir(t *testing.T) {
	ResetHome()
	t.Setenv("SHOPCHECK_HOME", "/test/home")

	got := GetDriversDir()
	want := filepath.Join("/test/home", "drivers")
	if got != want {
		t.Errorf("GetDriversDir() = %q, want %q", got, want)
	}
}

func TestResolvePath(t *testing.T) {
	ResetHome()
	t.Setenv("SHOPCHECK_HOME", "/test/home")
	defer ResetHome()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/shots", "/abs/shots"},
		{filepath.Join("target", "screenshots"), filepath.Join("/test/home", "target", "screenshots")},
	}
	for _, tt := range tests {
		if got := ResolvePath(tt.in); got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInstallRoot_OnlyForBinDir(t *testing.T) {
	// Test binaries are built outside any bin directory.
	if got := installRoot(); got != "" {
		t.Errorf("installRoot() = %q, want empty outside <root>/bin", got)
	}
}

func TestFindHome_PrefersEnv(t *testing.T) {
	t.Setenv("SHOPCHECK_HOME", "/from/env")
	if got := findHome(); got != "/from/env" {
		t.Errorf("findHome() = %q, want /from/env", got)
	}

	t.Setenv("SHOPCHECK_HOME", "")
	wd, _ := os.Getwd()
	if got := findHome(); got != wd {
		t.Errorf("findHome() = %q, want working dir %q", got, wd)
	}
}
