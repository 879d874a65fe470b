package docexport

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by the library. Every failure of an export step
// wraps exactly one of the step sentinels together with its cause, so both
// can be matched with [errors.Is].
var (
	// ErrLaunch is returned when the browser process cannot be started.
	ErrLaunch = errors.New("browser launch failed")

	// ErrResource is returned when a page cannot be created in the browser.
	ErrResource = errors.New("browser resource unavailable")

	// ErrNavigation is returned when the target cannot be loaded or the
	// network does not settle before the deadline.
	ErrNavigation = errors.New("navigation failed")

	// ErrRender is returned when the page cannot be printed to PDF.
	ErrRender = errors.New("render failed")

	// ErrFilesystem is returned when the PDF cannot be written to disk.
	ErrFilesystem = errors.New("filesystem error")

	// ErrInvalidConfig is returned for options that cannot be honored.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPDF is returned when the rendered output fails verification.
	ErrInvalidPDF = errors.New("invalid PDF")

	// ErrClosed is returned when using a released [Session] or closed [Page].
	ErrClosed = errors.New("docexport: session is released")
)

// IsTimeout reports whether err was caused by a deadline expiring.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func stepError(step string, kind, cause error) error {
	return fmt.Errorf("docexport: %s: %w: %w", step, kind, cause)
}
