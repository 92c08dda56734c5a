// Package features embeds the storefront feature files.
package features

import "embed"

// FS holds every *.feature file in this directory.
//
//go:embed *.feature
var FS embed.FS
