package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "SHOPCHECK_HOME"

var home struct {
	once sync.Once
	dir  string
}

// GetHome returns the directory that relative report, screenshot and driver
// paths resolve against: $SHOPCHECK_HOME, else the install root when the
// binary sits in <root>/bin, else the working directory. The result is cached.
func GetHome() string {
	home.once.Do(func() {
		home.dir = findHome()
	})
	return home.dir
}

// GetDriversDir returns <home>/drivers, where a bundled chromedriver may live.
func GetDriversDir() string {
	return filepath.Join(GetHome(), "drivers")
}

// ResolvePath makes a relative artifact or report path absolute against home.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GetHome(), p)
}

func findHome() string {
	for _, lookup := range []func() string{envHomeDir, installRoot, workingDir} {
		if dir := lookup(); dir != "" {
			return dir
		}
	}
	return "."
}

func envHomeDir() string {
	return os.Getenv(envHome)
}

func installRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	if bin := filepath.Dir(exe); filepath.Base(bin) == "bin" {
		return filepath.Dir(bin)
	}
	return ""
}

func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}

// ResetHome drops the cached home directory so tests can change $SHOPCHECK_HOME.
func ResetHome() {
	home.once = sync.Once{}
	home.dir = ""
}
