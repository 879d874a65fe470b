// Command docexport renders a locally served API documentation page to a
// PDF file with a headless browser.
//
// Usage:
//
//	docexport [export] [flags]
//	docexport inspect [--format text|json] [--pages RANGE] <file.pdf>
//	docexport doctor [--json] [flags]
//	docexport version
package main

import (
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS, where the runtime
	// default applies anyway.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	os.Exit(runMain(os.Args[1:], DefaultEnv()))
}
