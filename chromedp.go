package docexport

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/porticus-lab/go-docexport/internal/netidle"
	"github.com/porticus-lab/go-docexport/internal/process"
)

type chromedpDriver struct{}

type chromedpBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	procID        int
}

type chromedpPage struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
}

func (chromedpDriver) launch(ctx context.Context, cfg *exporterConfig) (browserHandle, error) {
	bin, err := resolveBrowser(cfg)
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(bin),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.ModifyCmdFunc(process.NewGroup),
	)
	if cfg.headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	// The browser must outlive ctx, so it hangs off Background and ctx
	// only bounds startup.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err = <-started:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	b := &chromedpBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
	if proc := chromedp.FromContext(browserCtx).Browser.Process(); proc != nil {
		b.procID = proc.Pid
	}
	return b, nil
}

func (b *chromedpBrowser) newPage(ctx context.Context) (pageHandle, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	opCtx, cancel := bind(tabCtx, ctx)
	defer cancel()

	// The first Run on a tab context creates the target.
	if err := chromedp.Run(opCtx); err != nil {
		tabCancel()
		return nil, err
	}
	return &chromedpPage{tabCtx: tabCtx, tabCancel: tabCancel}, nil
}

func (b *chromedpBrowser) close() error {
	err := chromedp.Cancel(b.browserCtx)
	b.browserCancel()
	b.allocCancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (b *chromedpBrowser) pid() int { return b.procID }

func (p *chromedpPage) navigate(ctx context.Context, url string, policy IdlePolicy) error {
	opCtx, cancel := bind(p.tabCtx, ctx)
	defer cancel()

	tracker := netidle.New(policy.Window, policy.MaxInflight)
	defer tracker.Stop()

	chromedp.ListenTarget(opCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			tracker.Started(string(e.RequestID))
		case *network.EventLoadingFinished:
			tracker.Finished(string(e.RequestID))
		case *network.EventLoadingFailed:
			tracker.Finished(string(e.RequestID))
		}
	})

	if err := chromedp.Run(opCtx,
		network.Enable(),
		chromedp.Navigate(url),
	); err != nil {
		return err
	}
	return waitIdle(opCtx, tracker)
}

func (p *chromedpPage) pdf(ctx context.Context, pc PageConfig) ([]byte, error) {
	opCtx, cancel := bind(p.tabCtx, ctx)
	defer cancel()

	width, height := pc.sheetDimensions()
	marginTop, marginRight, marginBottom, marginLeft := pc.marginInches()

	var buf []byte
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.PrintToPDF().
			WithPaperWidth(width).
			WithPaperHeight(height).
			WithMarginTop(marginTop).
			WithMarginRight(marginRight).
			WithMarginBottom(marginBottom).
			WithMarginLeft(marginLeft).
			WithScale(pc.Scale).
			WithPrintBackground(pc.PrintBackground).
			WithLandscape(pc.Orientation == Landscape).
			WithPreferCSSPageSize(pc.PreferCSSPageSize).
			WithDisplayHeaderFooter(pc.DisplayHeaderFooter)

		if pc.HeaderTemplate != "" {
			params = params.WithHeaderTemplate(pc.HeaderTemplate)
		}
		if pc.FooterTemplate != "" {
			params = params.WithFooterTemplate(pc.FooterTemplate)
		}

		var err error
		buf, _, err = params.Do(ctx)
		return err
	}))
	return buf, err
}

func (p *chromedpPage) close() error {
	p.tabCancel()
	return nil
}

// bind derives a context from the chromedp context target that is also
// cancelled with ctx. Cancelling the result does not close the target.
func bind(target, ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(target)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, dl)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}
