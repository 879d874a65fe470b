package docexport

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

var samplePDF = []byte("%PDF-1.4 fake content for testing")

func newResult() *Result {
	return &Result{data: samplePDF, path: "api-docs.pdf"}
}

func TestResult_Bytes(t *testing.T) {
	r := newResult()
	if !bytes.Equal(r.Bytes(), samplePDF) {
		t.Error("Bytes() did not return original data")
	}
}

func TestResult_Base64(t *testing.T) {
	r := newResult()
	got := r.Base64()
	want := base64.StdEncoding.EncodeToString(samplePDF)
	if got != want {
		t.Errorf("Base64() = %q, want %q", got, want)
	}
	// base64 of %PDF- starts with JVBER
	if got[:5] != "JVBER" {
		t.Errorf("Base64() prefix = %s, want JVBER", got[:5])
	}
}

func TestResult_Reader(t *testing.T) {
	r := newResult()
	reader := r.Reader()
	if reader.Len() != len(samplePDF) {
		t.Errorf("Reader().Len() = %d, want %d", reader.Len(), len(samplePDF))
	}
	buf := make([]byte, len(samplePDF))
	n, err := reader.Read(buf)
	if err != nil {
		t.Fatalf("Reader().Read: %v", err)
	}
	if !bytes.Equal(buf[:n], samplePDF) {
		t.Error("Reader() produced different content")
	}
}

func TestResult_WriteTo(t *testing.T) {
	r := newResult()
	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(len(samplePDF)) {
		t.Errorf("WriteTo wrote %d bytes, want %d", n, len(samplePDF))
	}
	if !bytes.Equal(buf.Bytes(), samplePDF) {
		t.Error("WriteTo produced different content")
	}
}

func TestResult_WriteToFile(t *testing.T) {
	r := newResult()
	path := filepath.Join(t.TempDir(), "copy.pdf")
	if err := r.WriteToFile(path, 0o644); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !bytes.Equal(data, samplePDF) {
		t.Error("WriteToFile produced different content")
	}
}

func TestResult_Accessors(t *testing.T) {
	r := newResult()
	if r.Len() != len(samplePDF) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(samplePDF))
	}
	if r.Path() != "api-docs.pdf" {
		t.Errorf("Path() = %q", r.Path())
	}
	if r.Info() != nil || r.PageCount() != 0 {
		t.Error("unverified result should report no info")
	}

	r.info = &Info{Pages: []PageInfo{{Width: 595, Height: 842}}}
	if r.PageCount() != 1 {
		t.Errorf("PageCount() = %d, want 1", r.PageCount())
	}
}

func TestResult_WriteToFileReplaces(t *testing.T) {
	r := newResult()
	path := filepath.Join(t.TempDir(), "api-docs.pdf")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteToFile(path, 0o600); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, samplePDF) {
		t.Error("existing file not replaced")
	}

	if err := r.WriteToFile(filepath.Join(t.TempDir(), "gone", "x.pdf"), 0o644); err == nil {
		t.Error("expected error for missing directory")
	}
}
