package docexport

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"

	"github.com/porticus-lab/go-docexport/internal/fileutil"
)

// Result holds a generated PDF together with where it was written.
// Its methods may be called any number of times; the data is never modified.
type Result struct {
	data []byte
	path string
	info *Info
}

// Bytes returns the raw PDF content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Base64 returns the PDF encoded as a standard base64 string (RFC 4648).
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// Reader returns an [*bytes.Reader] over the PDF content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PDF content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes a copy of the PDF to path. The file is replaced
// atomically, so it is never observed half-written.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return fileutil.WriteFileAtomic(path, r.data, perm)
}

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// Path returns the file the PDF was exported to.
func (r *Result) Path() string {
	return r.path
}

// Info returns the verified document summary, or nil when verification
// was disabled.
func (r *Result) Info() *Info {
	return r.info
}

// PageCount returns the number of verified pages, or 0 when verification
// was disabled.
func (r *Result) PageCount() int {
	return r.info.PageCount()
}
