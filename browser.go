package docexport

import (
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

var errNoBrowser = errors.New("no Chrome or Chromium executable found; install one, set a browser path, or enable auto-download")

// resolveBrowser returns the browser executable to launch: the configured
// path, then an installed Chrome or Chromium, then (if allowed) a
// downloaded Chromium cached in ~/.cache/rod/browser.
func resolveBrowser(cfg *exporterConfig) (string, error) {
	if cfg.chromePath != "" {
		return cfg.chromePath, nil
	}
	if path, found := launcher.LookPath(); found {
		return path, nil
	}
	if !cfg.autoDownload {
		return "", errNoBrowser
	}
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("downloading browser: %w", err)
	}
	return path, nil
}

// LookupBrowser reports the Chrome or Chromium executable that would be
// launched without an explicit path.
func LookupBrowser() (string, bool) {
	return launcher.LookPath()
}
