package docexport_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	docexport "github.com/porticus-lab/go-docexport"
)

func skipIfNoChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := docexport.LookupBrowser(); !ok {
		t.Skip("skipping: Chrome/Chromium not found")
	}
}

// isPDF checks whether data starts with the PDF magic number.
func isPDF(data []byte) bool {
	return len(data) > 4 && string(data[:5]) == "%PDF-"
}

const redocPage = `<!DOCTYPE html>
<html>
<head><title>API docs</title></head>
<body>
  <h1>Petstore API</h1>
  <div id="api">loading...</div>
  <script>
    fetch('/openapi.json')
      .then(r => r.json())
      .then(s => { document.getElementById('api').textContent = s.info.title; });
  </script>
</body>
</html>`

const pollingPage = `<!DOCTYPE html>
<html><body>
  <p>live</p>
  <script>setInterval(() => fetch('/ping'), 100);</script>
</body></html>`

// docsServer serves a page whose content arrives through a delayed fetch.
// apiServed is set once the delayed response has been written.
func docsServer(t *testing.T, delay time.Duration) (srv *httptest.Server, apiServed *atomic.Bool) {
	t.Helper()
	apiServed = new(atomic.Bool)

	r := chi.NewRouter()
	r.Get("/redoc/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(redocPage))
	})
	r.Get("/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi":"3.0.0","info":{"title":"Petstore","version":"1.0"}}`))
		apiServed.Store(true)
	})
	r.Get("/live/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(pollingPage))
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv = httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, apiServed
}

// unusedAddr returns an address nothing listens on.
func unusedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func backends(t *testing.T) []docexport.Backend {
	bs := []docexport.Backend{docexport.BackendChromedp, docexport.BackendRod}
	if os.Getenv("DOCEXPORT_TEST_PLAYWRIGHT") != "" {
		bs = append(bs, docexport.BackendPlaywright)
	}
	return bs
}

func TestExport_RedocPage(t *testing.T) {
	skipIfNoChrome(t)
	srv, apiServed := docsServer(t, 300*time.Millisecond)

	for _, b := range backends(t) {
		t.Run(string(b), func(t *testing.T) {
			apiServed.Store(false)
			path := filepath.Join(t.TempDir(), docexport.DefaultOutput)

			res, err := docexport.Export(context.Background(), srv.URL+"/redoc/", path,
				docexport.WithBackend(b), docexport.WithNoSandbox())
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if !apiServed.Load() {
				t.Error("export finished before the delayed request completed")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !isPDF(data) {
				t.Fatal("output is not a valid PDF")
			}
			info := res.Info()
			if info.PageCount() < 1 {
				t.Fatal("PDF has no pages")
			}
			if p := info.Pages[0]; p.Width < 593 || p.Width > 598 || p.Height < 840 || p.Height > 844 {
				t.Errorf("first page is %.2fx%.2f pt, want A4", p.Width, p.Height)
			}
		})
	}
}

func TestExport_Landscape(t *testing.T) {
	skipIfNoChrome(t)
	srv, _ := docsServer(t, 0)

	res, err := docexport.Export(context.Background(), srv.URL+"/redoc/",
		filepath.Join(t.TempDir(), "out.pdf"),
		docexport.WithNoSandbox(),
		docexport.WithPageConfig(docexport.PageConfig{
			Size:            docexport.Letter,
			Orientation:     docexport.Landscape,
			Margin:          docexport.UniformMargin(1.5),
			PrintBackground: true,
		}))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if p := res.Info().Pages[0]; p.Width <= p.Height {
		t.Errorf("page is %.2fx%.2f pt, want landscape", p.Width, p.Height)
	}
}

func TestExport_StrictVerify(t *testing.T) {
	skipIfNoChrome(t)
	srv, _ := docsServer(t, 0)

	_, err := docexport.Export(context.Background(), srv.URL+"/redoc/",
		filepath.Join(t.TempDir(), "out.pdf"),
		docexport.WithNoSandbox(), docexport.WithStrictVerify())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
}

func TestExport_NeverIdleTimesOut(t *testing.T) {
	skipIfNoChrome(t)
	srv, _ := docsServer(t, 0)
	path := filepath.Join(t.TempDir(), "out.pdf")

	_, err := docexport.Export(context.Background(), srv.URL+"/live/", path,
		docexport.WithNoSandbox(), docexport.WithTimeout(2*time.Second))
	if !errors.Is(err, docexport.ErrNavigation) {
		t.Fatalf("error = %v, want ErrNavigation", err)
	}
	if !docexport.IsTimeout(err) {
		t.Errorf("error = %v, want a timeout", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("output written for a page that never settled")
	}
}

func TestExport_NetworkIdle2ToleratesPolling(t *testing.T) {
	skipIfNoChrome(t)
	srv, _ := docsServer(t, 0)

	_, err := docexport.Export(context.Background(), srv.URL+"/live/",
		filepath.Join(t.TempDir(), "out.pdf"),
		docexport.WithNoSandbox(),
		docexport.WithIdlePolicy(docexport.NetworkIdle2),
		docexport.WithTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
}

func TestExport_ServerDown(t *testing.T) {
	skipIfNoChrome(t)
	path := filepath.Join(t.TempDir(), "out.pdf")

	for _, b := range backends(t) {
		t.Run(string(b), func(t *testing.T) {
			_, err := docexport.Export(context.Background(), "http://"+unusedAddr(t)+"/redoc/", path,
				docexport.WithBackend(b), docexport.WithNoSandbox(), docexport.WithTimeout(10*time.Second))
			if !errors.Is(err, docexport.ErrNavigation) {
				t.Fatalf("error = %v, want ErrNavigation", err)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Error("output written although the server was unreachable")
			}
		})
	}
}

func TestExport_UnwritableDestination(t *testing.T) {
	skipIfNoChrome(t)
	srv, _ := docsServer(t, 0)

	_, err := docexport.Export(context.Background(), srv.URL+"/redoc/",
		filepath.Join(t.TempDir(), "no", "such", "dir", "out.pdf"),
		docexport.WithNoSandbox())
	if !errors.Is(err, docexport.ErrFilesystem) {
		t.Fatalf("error = %v, want ErrFilesystem", err)
	}
}

func TestExport_MissingBrowser(t *testing.T) {
	_, err := docexport.Export(context.Background(), docexport.DefaultURL,
		filepath.Join(t.TempDir(), "out.pdf"),
		docexport.WithChromePath(filepath.Join(t.TempDir(), "no-such-chrome")),
		docexport.WithLaunchTimeout(5*time.Second))
	if !errors.Is(err, docexport.ErrLaunch) {
		t.Fatalf("error = %v, want ErrLaunch", err)
	}
}

func TestSession_SeveralPages(t *testing.T) {
	skipIfNoChrome(t)
	srv, _ := docsServer(t, 0)
	ctx := context.Background()

	e, err := docexport.NewExporter(docexport.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	s, err := e.AcquireSession(ctx)
	if err != nil {
		t.Fatalf("AcquireSession: %v", err)
	}
	defer s.Release()

	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf"} {
		p, err := s.OpenPage(ctx)
		if err != nil {
			t.Fatalf("OpenPage: %v", err)
		}
		if err := p.Navigate(ctx, srv.URL+"/redoc/", docexport.NetworkIdle0); err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		res, err := p.ExportPDF(ctx, filepath.Join(dir, name), nil)
		if err != nil {
			t.Fatalf("ExportPDF: %v", err)
		}
		if !isPDF(res.Bytes()) {
			t.Fatal("output is not a valid PDF")
		}
		if err := p.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}

	if err := s.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := s.OpenPage(ctx); !errors.Is(err, docexport.ErrClosed) {
		t.Errorf("OpenPage after release = %v, want ErrClosed", err)
	}
}
