package docexport

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/porticus-lab/go-docexport/internal/pdf"
)

// sizeTolerance is how far, in points, a page may differ from the
// requested paper size. Chrome rounds page boxes to its own units.
const sizeTolerance = 2.0

// PageInfo describes one page as displayed, in points (1/72 inch).
type PageInfo struct {
	Width    float64
	Height   float64
	Rotation int
}

// Info summarizes a PDF document.
type Info struct {
	Version  string
	Pages    []PageInfo
	Metadata map[string]string
}

// PageCount returns the number of pages.
func (i *Info) PageCount() int {
	if i == nil {
		return 0
	}
	return len(i.Pages)
}

// Inspect parses data and reports its version, page sizes and document
// information. It fails with [ErrInvalidPDF] if data is not a readable PDF.
func Inspect(data []byte) (*Info, error) {
	doc, err := pdf.Load(data)
	if err != nil {
		return nil, fmt.Errorf("docexport: %w: %w", ErrInvalidPDF, err)
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("docexport: %w: %w", ErrInvalidPDF, err)
	}

	info := &Info{
		Version:  doc.Version(),
		Pages:    make([]PageInfo, 0, len(pages)),
		Metadata: doc.Info(),
	}
	for _, p := range pages {
		w, h := p.Width(), p.Height()
		if p.Rotate%180 != 0 {
			w, h = h, w
		}
		info.Pages = append(info.Pages, PageInfo{Width: w, Height: h, Rotation: p.Rotate})
	}
	return info, nil
}

// Verify checks that data is a PDF with at least one page and, unless the
// document's CSS page size was preferred, that the first page has the
// paper size pc asks for. With strict set the document is also run through
// a full validator.
func Verify(data []byte, pc PageConfig, strict bool) (*Info, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	if len(info.Pages) == 0 {
		return nil, fmt.Errorf("docexport: %w: document has no pages", ErrInvalidPDF)
	}

	if !pc.PreferCSSPageSize {
		wantW, wantH := pc.paperPoints()
		got := info.Pages[0]
		if math.Abs(got.Width-wantW) > sizeTolerance || math.Abs(got.Height-wantH) > sizeTolerance {
			return nil, fmt.Errorf("docexport: %w: page is %.1fx%.1fpt, want %.1fx%.1fpt",
				ErrInvalidPDF, got.Width, got.Height, wantW, wantH)
		}
	}

	if strict {
		if err := validateStrict(data); err != nil {
			return nil, fmt.Errorf("docexport: %w: %w", ErrInvalidPDF, err)
		}
	}
	return info, nil
}

var disableConfigDir sync.Once

func validateStrict(data []byte) error {
	// pdfcpu would otherwise create a config directory under the user's home.
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationStrict
	return api.Validate(bytes.NewReader(data), conf)
}
