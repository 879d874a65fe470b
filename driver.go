package docexport

import (
	"context"
	"fmt"
	"strings"

	"github.com/porticus-lab/go-docexport/internal/netidle"
)

// Backend names a browser automation library.
type Backend string

const (
	// BackendChromedp drives Chrome over the DevTools protocol with chromedp.
	BackendChromedp Backend = "chromedp"
	// BackendRod drives Chrome with go-rod.
	BackendRod Backend = "rod"
	// BackendPlaywright drives Chromium through the Playwright driver.
	BackendPlaywright Backend = "playwright"
)

// Backends lists the supported backends.
func Backends() []Backend {
	return []Backend{BackendChromedp, BackendRod, BackendPlaywright}
}

func backendList() string {
	names := make([]string, 0, len(Backends()))
	for _, b := range Backends() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

// ParseBackend resolves a backend name. The empty string selects chromedp.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendChromedp, nil
	case BackendChromedp, BackendRod, BackendPlaywright:
		return b, nil
	}
	return "", fmt.Errorf("docexport: %w: unknown backend %q (want one of %s)", ErrInvalidConfig, s, backendList())
}

// driver starts browsers for one backend.
type driver interface {
	launch(ctx context.Context, cfg *exporterConfig) (browserHandle, error)
}

// browserHandle is one running browser process.
type browserHandle interface {
	newPage(ctx context.Context) (pageHandle, error)
	// close shuts the browser down. It is called at most once.
	close() error
	// pid of the browser process, or 0 when the backend does not expose it.
	pid() int
}

// pageHandle is one tab. Timeouts are carried by ctx.
type pageHandle interface {
	navigate(ctx context.Context, url string, policy IdlePolicy) error
	pdf(ctx context.Context, pc PageConfig) ([]byte, error)
	close() error
}

func newDriver(cfg *exporterConfig) driver {
	if cfg.drv != nil {
		return cfg.drv
	}
	switch cfg.backend {
	case BackendRod:
		return rodDriver{}
	case BackendPlaywright:
		return playwrightDriver{}
	}
	return chromedpDriver{}
}

// waitIdle blocks until t reports idle. On failure the error says how many
// requests were still outstanding.
func waitIdle(ctx context.Context, t *netidle.Tracker) error {
	if err := t.Wait(ctx); err != nil {
		return fmt.Errorf("network not idle, %d requests in flight: %w", t.Inflight(), err)
	}
	return nil
}
