package docexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/porticus-lab/go-docexport/internal/fileutil"
	"github.com/porticus-lab/go-docexport/internal/process"
)

// Session is one running browser process. It is created by
// [Exporter.AcquireSession] and must be released with [Session.Release].
type Session struct {
	id      string
	exp     *Exporter
	browser browserHandle
	procID  int
	log     *slog.Logger

	mu       sync.Mutex
	pages    []*Page
	released bool
}

// ID returns the identifier attached to this session's logs and spans.
func (s *Session) ID() string {
	return s.id
}

// OpenPage creates a new page in the browser. It fails with [ErrResource]
// if the session was released or the browser is no longer responding.
func (s *Session) OpenPage(ctx context.Context) (_ *Page, err error) {
	ctx, span := s.exp.tracer.Start(ctx, "docexport.OpenPage",
		trace.WithAttributes(attrRunID.String(s.id)))
	defer func() { endSpan(span, err) }()

	if s.isReleased() {
		return nil, stepError("open page", ErrResource, ErrClosed)
	}

	h, err := s.browser.newPage(ctx)
	if err != nil {
		return nil, stepError("open page", ErrResource, causeOf(ctx, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		_ = h.close()
		return nil, stepError("open page", ErrResource, ErrClosed)
	}
	p := &Page{session: s, h: h}
	s.pages = append(s.pages, p)
	s.log.Debug("page opened")
	return p, nil
}

// Release closes every page, shuts the browser down and kills anything
// left in its process group. It is safe to call more than once and after
// any failure; only the first call does work. Errors wrap [ErrResource].
func (s *Session) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	pages := s.pages
	s.pages = nil
	s.mu.Unlock()

	var errs []error
	for _, p := range pages {
		if err := p.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.browser.close(); err != nil {
		errs = append(errs, err)
	}
	process.KillProcessGroup(s.procID)

	if err := errors.Join(errs...); err != nil {
		s.log.Warn("browser release incomplete", "error", err)
		return stepError("release", ErrResource, err)
	}
	s.log.Debug("browser released")
	return nil
}

func (s *Session) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Page is a browsing context owned by a [Session].
type Page struct {
	session *Session
	h       pageHandle

	mu     sync.Mutex
	closed bool
}

// Navigate loads rawURL and waits until the load event has fired and the
// network has been quiet according to policy. The wait is bounded by the
// exporter's navigation timeout. Failures wrap [ErrNavigation]; a missed
// deadline also matches [context.DeadlineExceeded].
func (p *Page) Navigate(ctx context.Context, rawURL string, policy IdlePolicy) (err error) {
	s := p.session
	ctx, span := s.exp.tracer.Start(ctx, "docexport.Navigate",
		trace.WithAttributes(attrRunID.String(s.id), attrURL.String(rawURL),
			attribute.String("docexport.idle_policy", policy.String())))
	defer func() { endSpan(span, err) }()

	if p.isClosed() {
		return stepError("navigate", ErrNavigation, ErrClosed)
	}
	if err := validateURL(rawURL); err != nil {
		return stepError("navigate", ErrNavigation, err)
	}
	if err := policy.validate(); err != nil {
		return stepError("navigate", ErrNavigation, err)
	}

	if d := s.exp.cfg.timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	if err := p.h.navigate(ctx, rawURL, policy); err != nil {
		return stepError("navigate", ErrNavigation, causeOf(ctx, err))
	}
	s.log.Debug("page settled", "url", rawURL, "policy", policy.String(), "elapsed", time.Since(start))
	return nil
}

// ExportPDF prints the page and writes the PDF to path. A nil pc uses
// [DefaultPageConfig]. Printing failures wrap [ErrRender] and write
// failures wrap [ErrFilesystem]. On failure nothing is left at path; on
// success path holds the complete document, replacing any earlier file.
func (p *Page) ExportPDF(ctx context.Context, path string, pc *PageConfig) (_ *Result, err error) {
	s := p.session
	ctx, span := s.exp.tracer.Start(ctx, "docexport.ExportPDF",
		trace.WithAttributes(attrRunID.String(s.id), attrPath.String(path)))
	defer func() { endSpan(span, err) }()

	if path == "" {
		return nil, stepError("write", ErrFilesystem, fileutil.ErrEmptyPath)
	}
	if p.isClosed() {
		return nil, stepError("render", ErrRender, ErrClosed)
	}
	if err := pc.Validate(); err != nil {
		return nil, stepError("render", ErrRender, err)
	}
	resolved := pc.resolved()

	renderCtx := ctx
	if d := s.exp.cfg.renderTimeout; d > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	data, err := p.h.pdf(renderCtx, resolved)
	if err != nil {
		return nil, stepError("render", ErrRender, causeOf(renderCtx, err))
	}

	var info *Info
	if s.exp.cfg.verify {
		if info, err = Verify(data, resolved, s.exp.cfg.strictVerify); err != nil {
			return nil, stepError("verify", ErrRender, err)
		}
	}

	if err := fileutil.WriteFileAtomic(path, data, s.exp.cfg.fileMode); err != nil {
		return nil, stepError("write", ErrFilesystem, err)
	}

	span.SetAttributes(attrBytes.Int(len(data)), attrPages.Int(info.PageCount()))
	s.log.Info("pdf written", "path", path, "bytes", len(data), "pages", info.PageCount())
	return &Result{data: data, path: path, info: info}, nil
}

// Close closes the page. Closing is also done by [Session.Release].
func (p *Page) Close() error {
	p.session.mu.Lock()
	for i, q := range p.session.pages {
		if q == p {
			p.session.pages = append(p.session.pages[:i], p.session.pages[i+1:]...)
			break
		}
	}
	p.session.mu.Unlock()
	return p.close()
}

func (p *Page) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.h.close()
}

func (p *Page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.session.isReleased()
}

func validateURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("invalid URL %q: missing host", rawURL)
		}
	case "file", "about", "data":
	default:
		return fmt.Errorf("invalid URL %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	return nil
}

// causeOf prefers ctx's error when ctx ended, so timeouts stay matchable
// with errors.Is even when a driver reports them in its own words.
func causeOf(ctx context.Context, err error) error {
	cerr := ctx.Err()
	if cerr == nil || errors.Is(err, cerr) {
		return err
	}
	return fmt.Errorf("%w: %v", cerr, err)
}
