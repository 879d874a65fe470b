package docexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

type playwrightDriver struct{}

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

type playwrightPage struct {
	page playwright.Page
}

func (playwrightDriver) launch(ctx context.Context, cfg *exporterConfig) (browserHandle, error) {
	// Prefer an installed Chrome; Playwright falls back to its own
	// Chromium build when no executable is given.
	bin, err := resolveBrowser(&exporterConfig{chromePath: cfg.chromePath})
	if err != nil && !cfg.autoDownload {
		return nil, err
	}

	runOpts := &playwright.RunOptions{
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
		SkipInstallBrowsers: bin != "",
		Browsers:            []string{"chromium"},
	}

	type launched struct {
		b   *playwrightBrowser
		err error
	}
	done := make(chan launched, 1)
	go func() {
		if cfg.autoDownload {
			if err := playwright.Install(runOpts); err != nil {
				done <- launched{err: fmt.Errorf("installing playwright: %w", err)}
				return
			}
		}
		pw, err := playwright.Run(runOpts)
		if err != nil {
			done <- launched{err: fmt.Errorf("starting playwright: %w", err)}
			return
		}
		opts := playwright.BrowserTypeLaunchOptions{
			Headless:        playwright.Bool(cfg.headless),
			ChromiumSandbox: playwright.Bool(!cfg.noSandbox),
		}
		if bin != "" {
			opts.ExecutablePath = playwright.String(bin)
		}
		browser, err := pw.Chromium.Launch(opts)
		if err != nil {
			_ = pw.Stop()
			done <- launched{err: fmt.Errorf("starting browser: %w", err)}
			return
		}
		done <- launched{b: &playwrightBrowser{pw: pw, browser: browser}}
	}()

	select {
	case r := <-done:
		return r.b, r.err
	case <-ctx.Done():
		// Reap whatever the launch goroutine produces.
		go func() {
			if r := <-done; r.b != nil {
				_ = r.b.close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (b *playwrightBrowser) newPage(ctx context.Context) (pageHandle, error) {
	var pg playwright.Page
	err := await(ctx, func() (err error) {
		pg, err = b.browser.NewPage()
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return &playwrightPage{page: pg}, nil
}

func (b *playwrightBrowser) close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

// pid is unknown: the browser is a child of the Playwright driver, which
// terminates it on Stop.
func (b *playwrightBrowser) pid() int { return 0 }

func (p *playwrightPage) navigate(ctx context.Context, url string, policy IdlePolicy) error {
	if policy != NetworkIdle0 {
		return fmt.Errorf("%w: the playwright backend only supports %s", ErrInvalidConfig, NetworkIdle0)
	}
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}
	// Playwright reads a zero timeout as unlimited.
	timeout := float64(0)
	if dl, ok := ctx.Deadline(); ok {
		timeout = max(float64(time.Until(dl).Milliseconds()), 1)
	}
	opts.Timeout = playwright.Float(timeout)

	return await(ctx, func() error {
		_, err := p.page.Goto(url, opts)
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	}, p.abort)
}

func (p *playwrightPage) pdf(ctx context.Context, pc PageConfig) ([]byte, error) {
	width, height := pc.sheetDimensions()
	marginTop, marginRight, marginBottom, marginLeft := pc.marginInches()

	opts := playwright.PagePdfOptions{
		Width:  playwright.String(inches(width)),
		Height: playwright.String(inches(height)),
		Margin: &playwright.Margin{
			Top:    playwright.String(inches(marginTop)),
			Right:  playwright.String(inches(marginRight)),
			Bottom: playwright.String(inches(marginBottom)),
			Left:   playwright.String(inches(marginLeft)),
		},
		Scale:               playwright.Float(pc.Scale),
		PrintBackground:     playwright.Bool(pc.PrintBackground),
		Landscape:           playwright.Bool(pc.Orientation == Landscape),
		PreferCSSPageSize:   playwright.Bool(pc.PreferCSSPageSize),
		DisplayHeaderFooter: playwright.Bool(pc.DisplayHeaderFooter),
	}
	if pc.HeaderTemplate != "" {
		opts.HeaderTemplate = playwright.String(pc.HeaderTemplate)
	}
	if pc.FooterTemplate != "" {
		opts.FooterTemplate = playwright.String(pc.FooterTemplate)
	}

	var buf []byte
	err := await(ctx, func() (err error) {
		buf, err = p.page.PDF(opts)
		return err
	}, p.abort)
	return buf, err
}

func (p *playwrightPage) close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

func (p *playwrightPage) abort() { _ = p.page.Close() }

func inches(v float64) string {
	return fmt.Sprintf("%.4fin", v)
}

// await runs fn, which cannot observe ctx, and returns early with ctx's
// error if ctx ends first. onCancel, if set, is called to unblock fn.
func await(ctx context.Context, fn func() error, onCancel func()) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		return ctx.Err()
	}
}
