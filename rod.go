package docexport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/porticus-lab/go-docexport/internal/netidle"
	"github.com/porticus-lab/go-docexport/internal/process"
)

// rodCleanupWait bounds how long close waits for the profile directory to
// be removed after the browser exits.
const rodCleanupWait = 5 * time.Second

type rodDriver struct{}

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

type rodPage struct {
	page *rod.Page
}

func (rodDriver) launch(ctx context.Context, cfg *exporterConfig) (browserHandle, error) {
	bin, err := resolveBrowser(cfg)
	if err != nil {
		return nil, err
	}

	// Leakless is off so PID reports the browser itself.
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Leakless(false).
		NoSandbox(cfg.noSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("no-first-run")
	if cfg.headless {
		l = l.HeadlessNew(true)
	} else {
		l = l.Headless(false)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillProcessGroup(l.PID())
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return &rodBrowser{launcher: l, browser: browser}, nil
}

func (b *rodBrowser) newPage(ctx context.Context) (pageHandle, error) {
	pg, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	// Detach from ctx; each operation supplies its own.
	return &rodPage{page: pg.Context(context.Background())}, nil
}

func (b *rodBrowser) close() error {
	err := b.browser.Close()
	process.KillProcessGroup(b.launcher.PID())

	done := make(chan struct{})
	go func() {
		b.launcher.Cleanup()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(rodCleanupWait):
	}
	return err
}

func (b *rodBrowser) pid() int { return b.launcher.PID() }

func (p *rodPage) navigate(ctx context.Context, url string, policy IdlePolicy) error {
	tracker := netidle.New(policy.Window, policy.MaxInflight)
	defer tracker.Stop()

	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	// EachEvent subscribes and enables the Network domain before returning.
	wait := p.page.Context(listenCtx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			tracker.Started(string(e.RequestID))
		},
		func(e *proto.NetworkLoadingFinished) {
			tracker.Finished(string(e.RequestID))
		},
		func(e *proto.NetworkLoadingFailed) {
			tracker.Finished(string(e.RequestID))
		},
	)
	go wait()

	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	if err := pg.WaitLoad(); err != nil {
		return err
	}
	return waitIdle(ctx, tracker)
}

func (p *rodPage) pdf(ctx context.Context, pc PageConfig) ([]byte, error) {
	width, height := pc.sheetDimensions()
	marginTop, marginRight, marginBottom, marginLeft := pc.marginInches()

	req := &proto.PagePrintToPDF{
		PaperWidth:          &width,
		PaperHeight:         &height,
		MarginTop:           &marginTop,
		MarginRight:         &marginRight,
		MarginBottom:        &marginBottom,
		MarginLeft:          &marginLeft,
		Scale:               &pc.Scale,
		PrintBackground:     pc.PrintBackground,
		Landscape:           pc.Orientation == Landscape,
		PreferCSSPageSize:   pc.PreferCSSPageSize,
		DisplayHeaderFooter: pc.DisplayHeaderFooter,
		HeaderTemplate:      pc.HeaderTemplate,
		FooterTemplate:      pc.FooterTemplate,
	}

	reader, err := p.page.Context(ctx).PDF(req)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return buf, nil
}

func (p *rodPage) close() error {
	return p.page.Close()
}
