package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePDF writes a minimal PDF with one page per size and a title.
func writePDF(t *testing.T, title string, sizes ...[2]float64) string {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	var kids bytes.Buffer
	for i := range sizes {
		fmt.Fprintf(&kids, "%d 0 R ", i+4)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(sizes)))
	obj(fmt.Sprintf("<< /Title (%s) /Producer (Skia/PDF) >>", title))
	for _, s := range sizes {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] >>", s[0], s[1]))
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

var (
	a4     = [2]float64{594.96, 841.92}
	letter = [2]float64{612, 792}
)

func TestInspect_Text(t *testing.T) {
	path := writePDF(t, "Petstore API", a4, a4, letter)
	te := newTestEnv(nil, nil)

	code := runMain([]string{"inspect", path}, te.Environment)

	require.Equal(t, ExitSuccess, code, te.stderr.String())
	out := te.stdout.String()
	assert.Contains(t, out, "Version: PDF-1.4")
	assert.Contains(t, out, "Pages:   3")
	assert.Contains(t, out, "Title: Petstore API")
	assert.Contains(t, out, "Page 1: 595 x 842 pt")
	assert.Contains(t, out, "Page 3: 612 x 792 pt")
}

func TestInspect_JSONWithRange(t *testing.T) {
	path := writePDF(t, "Docs", a4, a4, letter)
	te := newTestEnv(nil, nil)

	code := runMain([]string{"inspect", "--format", "json", "--pages", "2-3", path}, te.Environment)
	require.Equal(t, ExitSuccess, code, te.stderr.String())

	var rep inspectReport
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &rep))
	assert.Equal(t, 3, rep.Pages)
	require.Len(t, rep.Sizes, 2)
	assert.Equal(t, 2, rep.Sizes[0].Page)
	assert.InDelta(t, 612, rep.Sizes[1].Width, 0.01)
	assert.Equal(t, "Docs", rep.Metadata["Title"])
}

func TestInspect_Errors(t *testing.T) {
	notPDF := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(notPDF, []byte("<html></html>"), 0o600))
	good := writePDF(t, "x", a4)

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"no file", []string{"inspect"}, ExitUsage},
		{"two files", []string{"inspect", good, good}, ExitUsage},
		{"bad format", []string{"inspect", "-f", "xml", good}, ExitUsage},
		{"bad range", []string{"inspect", "-p", "2-9", good}, ExitUsage},
		{"missing file", []string{"inspect", filepath.Join(t.TempDir(), "none.pdf")}, ExitIO},
		{"not a pdf", []string{"inspect", notPDF}, ExitBrowser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(nil, nil)
			assert.Equal(t, tt.wantCode, runMain(tt.args, te.Environment))
			assert.NotEmpty(t, te.stderr.String())
		})
	}
}

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		spec    string
		total   int
		want    []int
		wantErr bool
	}{
		{"", 3, []int{0, 1, 2}, false},
		{"2", 3, []int{1}, false},
		{"1-3", 5, []int{0, 1, 2}, false},
		{"1,3,5", 5, []int{0, 2, 4}, false},
		{"1-2, 2-3", 3, []int{0, 1, 2}, false},
		{"0", 3, nil, true},
		{"4", 3, nil, true},
		{"3-1", 3, nil, true},
		{"a", 3, nil, true},
		{"1-b", 3, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parsePageRange(tt.spec, tt.total)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
