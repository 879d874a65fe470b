package main

import (
	"errors"
	"os"

	docexport "github.com/porticus-lab/go-docexport"
	"github.com/porticus-lab/go-docexport/internal/config"
)

// Exit codes for the docexport CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // PDF written
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags or configuration
	ExitIO         = 3 // Output cannot be written, input cannot be read
	ExitBrowser    = 4 // Browser could not start, open a page or print
	ExitNavigation = 5 // Target unreachable or never settled
)

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage error")

// exitCodeFor returns the exit code for an error. Step errors are checked
// before configuration errors because a step may wrap both.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, docexport.ErrNavigation):
		return ExitNavigation
	case errors.Is(err, docexport.ErrLaunch),
		errors.Is(err, docexport.ErrResource),
		errors.Is(err, docexport.ErrRender),
		errors.Is(err, docexport.ErrInvalidPDF):
		return ExitBrowser
	case errors.Is(err, docexport.ErrFilesystem),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, os.ErrPermission):
		return ExitIO
	case errors.Is(err, errUsage),
		errors.Is(err, docexport.ErrInvalidConfig),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, config.ErrConfigParse):
		return ExitUsage
	}
	return ExitGeneral
}
