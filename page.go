package docexport

import (
	"fmt"
	"strings"
)

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes, matching the named formats browsers accept for
// printing.
var (
	A0      = PageSize{Width: 84.1, Height: 118.9}
	A1      = PageSize{Width: 59.4, Height: 84.1}
	A2      = PageSize{Width: 42.0, Height: 59.4}
	A3      = PageSize{Width: 29.7, Height: 42.0}
	A4      = PageSize{Width: 21.0, Height: 29.7}
	A5      = PageSize{Width: 14.8, Height: 21.0}
	A6      = PageSize{Width: 10.5, Height: 14.8}
	Letter  = PageSize{Width: 21.59, Height: 27.94}
	Legal   = PageSize{Width: 21.59, Height: 35.56}
	Tabloid = PageSize{Width: 27.94, Height: 43.18}
	Ledger  = PageSize{Width: 43.18, Height: 27.94}
)

var pageSizes = map[string]PageSize{
	"a0":      A0,
	"a1":      A1,
	"a2":      A2,
	"a3":      A3,
	"a4":      A4,
	"a5":      A5,
	"a6":      A6,
	"letter":  Letter,
	"legal":   Legal,
	"tabloid": Tabloid,
	"ledger":  Ledger,
}

// ParsePageSize looks up a named paper format, case-insensitively.
func ParsePageSize(name string) (PageSize, error) {
	if s, ok := pageSizes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return PageSize{}, fmt.Errorf("docexport: %w: unknown paper format %q", ErrInvalidConfig, name)
}

// Orientation represents the page orientation.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// ParseOrientation accepts "portrait" or "landscape".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Portrait, fmt.Errorf("docexport: %w: unknown orientation %q", ErrInvalidConfig, s)
}

// Margin represents page margins in centimeters.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargin returns a Margin with the same value on all sides.
func UniformMargin(cm float64) Margin {
	return Margin{Top: cm, Right: cm, Bottom: cm, Left: cm}
}

// PageConfig controls the PDF output parameters.
//
// A nil PageConfig or zero-value fields resolve to the defaults browsers
// use when printing: A4 paper, portrait, no margins, scale 1.0 and no
// background graphics.
type PageConfig struct {
	// Size specifies the paper size. Defaults to A4.
	Size PageSize

	// Orientation specifies portrait or landscape. Defaults to Portrait.
	Orientation Orientation

	// Margin specifies page margins in centimeters. Defaults to none.
	Margin Margin

	// Scale of the webpage rendering. Must be between 0.1 and 2.0. Defaults to 1.0.
	Scale float64

	// PrintBackground enables printing of background colors and images.
	PrintBackground bool

	// DisplayHeaderFooter enables the header and footer templates.
	DisplayHeaderFooter bool

	// HeaderTemplate is an HTML template for the print header, supporting
	// the classes date, title, url, pageNumber and totalPages.
	HeaderTemplate string

	// FooterTemplate is an HTML template for the print footer.
	FooterTemplate string

	// PreferCSSPageSize gives precedence to any CSS @page size declared
	// in the document over the Size field.
	PreferCSSPageSize bool
}

// DefaultPageConfig returns the configuration used when none is given.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:        A4,
		Orientation: Portrait,
		Scale:       1.0,
	}
}

// resolved returns a PageConfig with all zero values replaced by defaults.
func (p *PageConfig) resolved() PageConfig {
	d := DefaultPageConfig()
	if p == nil {
		return d
	}
	r := *p
	if r.Size == (PageSize{}) {
		r.Size = d.Size
	}
	if r.Scale <= 0 {
		r.Scale = d.Scale
	}
	return r
}

// Validate reports settings no browser can print with.
func (p *PageConfig) Validate() error {
	r := p.resolved()
	switch {
	case r.Size.Width <= 0 || r.Size.Height <= 0:
		return fmt.Errorf("docexport: %w: paper size must be positive, got %vx%v cm", ErrInvalidConfig, r.Size.Width, r.Size.Height)
	case r.Scale < 0.1 || r.Scale > 2.0:
		return fmt.Errorf("docexport: %w: scale must be between 0.1 and 2.0, got %v", ErrInvalidConfig, r.Scale)
	case r.Margin.Top < 0 || r.Margin.Right < 0 || r.Margin.Bottom < 0 || r.Margin.Left < 0:
		return fmt.Errorf("docexport: %w: margins must not be negative", ErrInvalidConfig)
	}
	w, h := r.Size.Width, r.Size.Height
	if r.Orientation == Landscape {
		w, h = h, w
	}
	if r.Margin.Left+r.Margin.Right >= w || r.Margin.Top+r.Margin.Bottom >= h {
		return fmt.Errorf("docexport: %w: margins leave no printable area", ErrInvalidConfig)
	}
	return nil
}

// cmToInches converts centimeters to inches.
func cmToInches(cm float64) float64 {
	return cm / 2.54
}

// paperDimensions returns the paper width and height in inches,
// accounting for orientation.
func (p *PageConfig) paperDimensions() (width, height float64) {
	r := p.resolved()
	w := cmToInches(r.Size.Width)
	h := cmToInches(r.Size.Height)
	if r.Orientation == Landscape {
		return h, w
	}
	return w, h
}

// sheetDimensions returns the unrotated paper size in inches. Browsers
// rotate the sheet themselves when printing in landscape.
func (p *PageConfig) sheetDimensions() (width, height float64) {
	r := p.resolved()
	return cmToInches(r.Size.Width), cmToInches(r.Size.Height)
}

// paperPoints is paperDimensions in points.
func (p *PageConfig) paperPoints() (width, height float64) {
	w, h := p.paperDimensions()
	return w * 72, h * 72
}

// marginInches returns margins converted to inches.
func (p *PageConfig) marginInches() (top, right, bottom, left float64) {
	r := p.resolved()
	return cmToInches(r.Margin.Top),
		cmToInches(r.Margin.Right),
		cmToInches(r.Margin.Bottom),
		cmToInches(r.Margin.Left)
}
