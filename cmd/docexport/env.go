package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	docexport "github.com/porticus-lab/go-docexport"
)

// exportResult is the part of [docexport.Result] the CLI reports.
type exportResult interface {
	Path() string
	PageCount() int
	Len() int
}

// exportFunc runs one export; docexport.Export in production.
type exportFunc func(ctx context.Context, rawURL, path string, opts ...docexport.Option) (exportResult, error)

func libraryExport(ctx context.Context, rawURL, path string, opts ...docexport.Option) (exportResult, error) {
	res, err := docexport.Export(ctx, rawURL, path, opts...)
	if res == nil {
		return nil, err
	}
	return res, err
}

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(key string) (string, bool)
	Environ   func() []string
	Export    exportFunc

	// LookupBrowser finds an installed browser for doctor.
	LookupBrowser func() (string, bool)
	HTTPClient    *http.Client
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		LookupEnv:     os.LookupEnv,
		Environ:       os.Environ,
		Export:        libraryExport,
		LookupBrowser: docexport.LookupBrowser,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
	}
}
