package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	docexport "github.com/porticus-lab/go-docexport"
	"github.com/porticus-lab/go-docexport/internal/config"
)

// newLogger builds the stderr logger for cfg's level and format.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.JSONLogs() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func loggerOption(l *slog.Logger) docexport.Option {
	return docexport.WithLogger(l.With("component", "docexport"))
}

// newTracerProvider writes spans as JSON to w. The returned shutdown
// flushes pending spans and must be called before exit.
func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "docexport"),
		attribute.String("service.version", Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp, tp.Shutdown, nil
}

func tracerOption(tp *sdktrace.TracerProvider) docexport.Option {
	return docexport.WithTracerProvider(tp)
}
