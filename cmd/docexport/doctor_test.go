package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChrome writes an executable that answers --version like Chrome.
func fakeChrome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script browser stub needs a Unix shell")
	}
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho 'Chromium 140.0.7339.80'\n"), 0o700))
	return path
}

func docsServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/redoc/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>docs</body></html>"))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func runDoctorJSON(t *testing.T, te *testEnv, args ...string) (int, doctorResult) {
	t.Helper()
	code := runMain(append([]string{"doctor", "--json"}, args...), te.Environment)
	var res doctorResult
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &res), te.stdout.String())
	return code, res
}

func TestDoctor_Ready(t *testing.T) {
	srv := docsServer(t)
	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	code, res := runDoctorJSON(t, te,
		"--url", srv.URL+"/redoc/",
		"--output", filepath.Join(t.TempDir(), "api-docs.pdf"),
		"--no-sandbox")

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "ready", res.Status, "warnings=%v errors=%v", res.Warnings, res.Errors)
	assert.True(t, res.Chrome.Found)
	assert.Equal(t, "Chromium 140.0.7339.80", res.Chrome.Version)
	assert.False(t, res.Chrome.Sandbox)
	assert.True(t, res.Target.Reachable)
	assert.Equal(t, http.StatusOK, res.Target.Status)
	assert.True(t, res.Output.Writable)
}

func TestDoctor_ServerDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	code, res := runDoctorJSON(t, te, "--url", "http://"+addr+"/redoc/", "--output", filepath.Join(t.TempDir(), "x.pdf"))

	assert.Equal(t, ExitGeneral, code)
	assert.Equal(t, "errors", res.Status)
	assert.False(t, res.Target.Reachable)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "is the documentation server running?")
}

func TestDoctor_NotFound(t *testing.T) {
	srv := docsServer(t)
	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	_, res := runDoctorJSON(t, te, "--url", srv.URL+"/docs/", "--output", filepath.Join(t.TempDir(), "x.pdf"))

	assert.Equal(t, "errors", res.Status)
	assert.Equal(t, http.StatusNotFound, res.Target.Status)
}

func TestDoctor_NoBrowser(t *testing.T) {
	srv := docsServer(t)
	out := filepath.Join(t.TempDir(), "x.pdf")

	t.Run("error", func(t *testing.T) {
		te := newTestEnv(nil, nil)
		code, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", out)
		assert.Equal(t, ExitGeneral, code)
		assert.False(t, res.Chrome.Found)
		assert.Contains(t, res.Errors, "Chrome/Chromium not found. Install Chrome, set --browser or ROD_BROWSER_BIN, or pass --auto-download")
	})

	t.Run("auto download", func(t *testing.T) {
		te := newTestEnv(nil, nil)
		code, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", out, "--auto-download", "--no-sandbox")
		assert.Equal(t, ExitSuccess, code)
		assert.Equal(t, "warnings", res.Status)
	})

	t.Run("configured path missing", func(t *testing.T) {
		te := newTestEnv(map[string]string{"ROD_BROWSER_BIN": "/nonexistent/chrome"}, nil)
		_, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", out)
		assert.Contains(t, res.Errors, "Chrome not found at /nonexistent/chrome")
	})
}

func TestDoctor_EnvironmentWarnings(t *testing.T) {
	srv := docsServer(t)
	te := newTestEnv(map[string]string{
		"CI":               "true",
		"DOCEXPORT_BACKEN": "rod",
	}, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	code, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", filepath.Join(t.TempDir(), "x.pdf"))

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "warnings", res.Status)
	assert.True(t, res.Env.CI)
	assert.Contains(t, res.Warnings, "Unknown environment variable DOCEXPORT_BACKEN")
}

func TestDoctor_UnwritableOutput(t *testing.T) {
	srv := docsServer(t)
	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	_, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", filepath.Join(t.TempDir(), "missing", "x.pdf"))

	assert.False(t, res.Output.Writable)
	assert.Equal(t, "errors", res.Status)
}

func TestDoctor_TextReport(t *testing.T) {
	srv := docsServer(t)
	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	code := runMain([]string{"doctor", "--url", srv.URL + "/redoc/", "--output", filepath.Join(t.TempDir(), "x.pdf"), "--no-sandbox"}, te.Environment)

	assert.Equal(t, ExitSuccess, code)
	out := te.stdout.String()
	assert.Contains(t, out, "docexport doctor")
	assert.Contains(t, out, "[OK] Version: Chromium 140.0.7339.80")
	assert.Contains(t, out, "Status: ready")
}

func TestDoctor_InvalidConfig(t *testing.T) {
	srv := docsServer(t)
	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	code, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", filepath.Join(t.TempDir(), "x.pdf"),
		"--backend", "selenium")

	assert.Equal(t, ExitGeneral, code)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "Invalid configuration")
	assert.Contains(t, res.Errors[0], "chromedp, rod, playwright")
}

func TestDoctor_ExistingOutput(t *testing.T) {
	srv := docsServer(t)
	out := filepath.Join(t.TempDir(), "api-docs.pdf")
	require.NoError(t, os.WriteFile(out, []byte("%PDF-1.4\n"), 0o600))
	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	code := runMain([]string{"doctor", "--url", srv.URL + "/redoc/", "--output", out, "--no-sandbox"}, te.Environment)

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, te.stdout.String(), out+" exists and will be replaced")
}

func TestDoctor_TargetTimeout(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/redoc/", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	te := newTestEnv(nil, nil)
	te.LookupBrowser = func() (string, bool) { return fakeChrome(t), true }

	start := time.Now()
	code, res := runDoctorJSON(t, te, "--url", srv.URL+"/redoc/", "--output", filepath.Join(t.TempDir(), "x.pdf"),
		"--timeout", "200ms")

	assert.Equal(t, ExitGeneral, code)
	assert.False(t, res.Target.Reachable)
	assert.Less(t, time.Since(start), 2*time.Second, "the navigation timeout bounds the check")
}
