package docexport

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultURL is the documentation page exported when no URL is given.
	DefaultURL = "http://localhost:8000/redoc/"

	// DefaultOutput is the file written when no path is given.
	DefaultOutput = "api-docs.pdf"

	// DefaultTimeout bounds each of browser startup, navigation and
	// rendering unless overridden.
	DefaultTimeout = 30 * time.Second
)

// Exporter renders web pages to PDF files with a headless browser.
//
// Each call to [Exporter.Export] starts its own browser and releases it
// before returning, so an Exporter holds no processes between calls and
// needs no Close. For finer control drive the steps yourself with
// [Exporter.AcquireSession], [Session.OpenPage], [Page.Navigate] and
// [Page.ExportPDF].
type Exporter struct {
	cfg    exporterConfig
	drv    driver
	tracer trace.Tracer
}

// NewExporter creates an Exporter with the given options. It fails with
// [ErrInvalidConfig] if the options cannot be honored. No browser is
// started until a session is acquired.
func NewExporter(opts ...Option) (*Exporter, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.backend == "" {
		cfg.backend = BackendChromedp
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tp := cfg.tracerProv
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Exporter{
		cfg:    cfg,
		drv:    newDriver(&cfg),
		tracer: tp.Tracer(tracerName),
	}, nil
}

// AcquireSession starts an isolated browser process. Startup is bounded
// by the launch timeout. Failures wrap [ErrLaunch].
func (e *Exporter) AcquireSession(ctx context.Context) (_ *Session, err error) {
	id := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "docexport.AcquireSession",
		trace.WithAttributes(attrRunID.String(id), attrBackend.String(string(e.cfg.backend))))
	defer func() { endSpan(span, err) }()

	log := e.cfg.logger.With("run_id", id, "backend", string(e.cfg.backend))

	if d := e.cfg.launchTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	b, err := e.drv.launch(ctx, &e.cfg)
	if err != nil {
		return nil, stepError("launch", ErrLaunch, causeOf(ctx, err))
	}

	s := &Session{
		id:      id,
		exp:     e,
		browser: b,
		procID:  b.pid(),
		log:     log,
	}
	log.Debug("browser launched", "pid", s.procID, "elapsed", time.Since(start))
	return s, nil
}

// Export runs the whole flow: start a browser, open a page, navigate to
// rawURL, wait for the network to settle, and write the PDF to path. The
// browser is released on every return path.
//
// If everything succeeds but the browser cannot be released cleanly, the
// Result is returned together with an error wrapping [ErrResource].
func (e *Exporter) Export(ctx context.Context, rawURL, path string) (res *Result, err error) {
	ctx, span := e.tracer.Start(ctx, "docexport.Export",
		trace.WithAttributes(attrURL.String(rawURL), attrPath.String(path),
			attrBackend.String(string(e.cfg.backend))))
	defer func() { endSpan(span, err) }()

	s, err := e.AcquireSession(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attrRunID.String(s.id))
	defer func() {
		rerr := s.Release()
		if rerr == nil {
			return
		}
		if err == nil {
			err = rerr
			return
		}
		s.log.Warn("release after failed export", "error", rerr)
	}()

	p, err := s.OpenPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Navigate(ctx, rawURL, e.cfg.idle); err != nil {
		return nil, err
	}
	pc := e.cfg.page
	return p.ExportPDF(ctx, path, &pc)
}

// Export renders rawURL to path with a temporary [Exporter].
func Export(ctx context.Context, rawURL, path string, opts ...Option) (*Result, error) {
	e, err := NewExporter(opts...)
	if err != nil {
		return nil, err
	}
	return e.Export(ctx, rawURL, path)
}
