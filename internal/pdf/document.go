// Package pdf is a small, dependency-free PDF reader. It understands enough of
// the file structure (cross-reference tables and streams, object streams and
// the page tree) to check that a rendered document is well formed and to
// report its page geometry.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by Load.
var (
	ErrNotPDF   = errors.New("pdf: missing %PDF- header")
	ErrNoXRef   = errors.New("pdf: cross-reference section not found")
	ErrNoPages  = errors.New("pdf: document has no page tree")
	ErrTruncate = errors.New("pdf: missing %%EOF marker")
)

type xrefEntry struct {
	offset int64
	inUse  bool
	// set for objects stored inside an object stream
	container int
	index     int
	packed    bool
}

// Document is a parsed PDF file held in memory.
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	cache   map[int]*Object
}

// Load parses a PDF held in memory.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	tail := data[max(0, len(data)-1024):]
	if !bytes.Contains(tail, []byte("%%EOF")) {
		return nil, ErrTruncate
	}
	doc := &Document{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]*Object),
	}
	start, err := doc.startXRef()
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	for off := start; off > 0 && !seen[off]; {
		seen[off] = true
		if off, err = doc.readSection(off); err != nil {
			return nil, err
		}
	}
	if doc.trailer == nil {
		return nil, ErrNoXRef
	}
	return doc, nil
}

// Version returns the header version, e.g. "1.4".
func (doc *Document) Version() string {
	line := doc.data[5:min(len(doc.data), 16)]
	if i := bytes.IndexAny(line, "\r\n %"); i >= 0 {
		line = line[:i]
	}
	return string(line)
}

func (doc *Document) startXRef() (int64, error) {
	from := max(0, len(doc.data)-1024)
	i := bytes.LastIndex(doc.data[from:], []byte("startxref"))
	if i < 0 {
		return 0, ErrNoXRef
	}
	l := newLexer(doc.data, from+i+len("startxref"))
	l.skipSpace()
	off, err := strconv.ParseInt(l.token(), 10, 64)
	if err != nil || off <= 0 || off >= int64(len(doc.data)) {
		return 0, fmt.Errorf("%w: bad startxref offset", ErrNoXRef)
	}
	return off, nil
}

// readSection parses one cross-reference section and returns the /Prev
// offset, or 0 when the chain ends. Entries already known win: later
// sections (read first) override earlier ones.
func (doc *Document) readSection(off int64) (int64, error) {
	if off < 0 || off >= int64(len(doc.data)) {
		return 0, fmt.Errorf("%w: offset %d out of range", ErrNoXRef, off)
	}
	l := newLexer(doc.data, int(off))
	l.skipSpace()

	var trailer Dict
	if l.keyword("xref") {
		if err := doc.readTable(l); err != nil {
			return 0, err
		}
		t, err := l.next()
		if err != nil {
			return 0, err
		}
		if t.Kind != KindDict {
			return 0, fmt.Errorf("%w: trailer is not a dictionary", ErrNoXRef)
		}
		trailer = t.Dict
	} else {
		if !l.objHeader() {
			return 0, fmt.Errorf("%w: no xref table or stream at %d", ErrNoXRef, off)
		}
		s, err := l.next()
		if err != nil {
			return 0, err
		}
		if s.Kind != KindStream {
			return 0, fmt.Errorf("%w: xref object at %d is not a stream", ErrNoXRef, off)
		}
		if err := doc.readStream(s); err != nil {
			return 0, err
		}
		trailer = s.Dict
	}

	if doc.trailer == nil {
		doc.trailer = trailer
	}
	prev, _ := trailer.Int("Prev")
	return prev, nil
}

func (doc *Document) readTable(l *lexer) error {
	for {
		l.skipSpace()
		if l.keyword("trailer") {
			return nil
		}
		first, err1 := strconv.Atoi(l.token())
		l.skipSpace()
		count, err2 := strconv.Atoi(l.token())
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: malformed subsection header", ErrNoXRef)
		}
		for i := 0; i < count; i++ {
			l.skipSpace()
			offTok := l.token()
			l.skipSpace()
			l.token() // generation
			l.skipSpace()
			flag := l.token()
			off, err := strconv.ParseInt(offTok, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed entry for object %d", ErrNoXRef, first+i)
			}
			if _, known := doc.xref[first+i]; !known {
				doc.xref[first+i] = xrefEntry{offset: off, inUse: flag == "n"}
			}
		}
	}
}

func (doc *Document) readStream(s *Object) error {
	data, err := decodeStream(s)
	if err != nil {
		return err
	}
	w, _ := s.Dict.Array("W")
	if len(w) < 3 {
		return fmt.Errorf("%w: xref stream without /W", ErrNoXRef)
	}
	var widths [3]int
	for i := range widths {
		if w[i].Kind != KindInt || w[i].Int < 0 || w[i].Int > 8 {
			return fmt.Errorf("%w: bad /W", ErrNoXRef)
		}
		widths[i] = int(w[i].Int)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return fmt.Errorf("%w: xref stream with empty /W", ErrNoXRef)
	}

	size, _ := s.Dict.Int("Size")
	ranges := []int{0, int(size)}
	if idx, ok := s.Dict.Array("Index"); ok {
		ranges = ranges[:0]
		for _, o := range idx {
			ranges = append(ranges, int(o.Int))
		}
	}

	pos := 0
	for r := 0; r+1 < len(ranges); r += 2 {
		for id := ranges[r]; id < ranges[r]+ranges[r+1] && pos+rowLen <= len(data); id++ {
			row := data[pos : pos+rowLen]
			pos += rowLen
			typ := 1
			if widths[0] > 0 {
				typ = beInt(row[:widths[0]])
			}
			f2 := beInt(row[widths[0] : widths[0]+widths[1]])
			f3 := beInt(row[widths[0]+widths[1]:])
			if _, known := doc.xref[id]; known {
				continue
			}
			switch typ {
			case 1:
				doc.xref[id] = xrefEntry{offset: int64(f2), inUse: true}
			case 2:
				doc.xref[id] = xrefEntry{inUse: true, packed: true, container: f2, index: f3}
			default:
				doc.xref[id] = xrefEntry{}
			}
		}
	}
	return nil
}

func beInt(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// Resolve follows o if it is a reference. Missing or unreadable objects
// resolve to null, as the format requires.
func (doc *Document) Resolve(o *Object) *Object {
	if o == nil {
		return null
	}
	if o.Kind != KindRef {
		return o
	}
	return doc.object(o.Ref.Num)
}

func (doc *Document) object(num int) *Object {
	if o, ok := doc.cache[num]; ok {
		return o
	}
	// Guard against reference cycles while the object is being read.
	doc.cache[num] = null

	e, ok := doc.xref[num]
	var o *Object
	switch {
	case !ok || !e.inUse:
		o = null
	case e.packed:
		o = doc.packedObject(e)
	default:
		o = doc.objectAt(e.offset)
	}
	doc.cache[num] = o
	return o
}

func (doc *Document) objectAt(off int64) *Object {
	if off <= 0 || off >= int64(len(doc.data)) {
		return null
	}
	l := newLexer(doc.data, int(off))
	if !l.objHeader() {
		return null
	}
	start := l.pos
	o, err := l.next()
	if err != nil {
		return null
	}
	// An indirect /Length must be resolved before the stream can be sliced.
	if o.Kind == KindStream {
		if ref, ok := o.Dict["Length"]; ok && ref.Kind == KindRef {
			if n, ok := doc.Resolve(ref).Number(); ok {
				o.Dict["Length"] = &Object{Kind: KindInt, Int: int64(n)}
				l = newLexer(doc.data, start)
				if o, err = l.next(); err != nil {
					return null
				}
			}
		}
	}
	return o
}

func (doc *Document) packedObject(e xrefEntry) *Object {
	container := doc.object(e.container)
	if container.Kind != KindStream {
		return null
	}
	data, err := decodeStream(container)
	if err != nil {
		return null
	}
	n, _ := container.Dict.Int("N")
	first, _ := container.Dict.Int("First")
	if e.index < 0 || int64(e.index) >= n {
		return null
	}

	l := newLexer(data, 0)
	off := -1
	for i := 0; i <= e.index; i++ {
		l.skipSpace()
		l.token()
		l.skipSpace()
		v, err := strconv.Atoi(l.token())
		if err != nil {
			return null
		}
		off = v
	}
	pos := int(first) + off
	if pos < 0 || pos >= len(data) {
		return null
	}
	o, err := newLexer(data, pos).next()
	if err != nil {
		return null
	}
	return o
}

// Catalog returns the document catalog (/Root).
func (doc *Document) Catalog() (Dict, error) {
	root := doc.Resolve(doc.trailer["Root"])
	if root.Kind != KindDict {
		return nil, fmt.Errorf("%w: /Root is not a dictionary", ErrNoPages)
	}
	return root.Dict, nil
}

// Page is a leaf of the page tree with inheritable attributes applied.
type Page struct {
	Dict     Dict
	MediaBox [4]float64
	Rotate   int
}

// Width returns the MediaBox width in points.
func (p Page) Width() float64 { return p.MediaBox[2] - p.MediaBox[0] }

// Height returns the MediaBox height in points.
func (p Page) Height() float64 { return p.MediaBox[3] - p.MediaBox[1] }

// Pages walks the page tree in document order.
func (doc *Document) Pages() ([]Page, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	root := doc.Resolve(cat["Pages"])
	if root.Kind != KindDict {
		return nil, ErrNoPages
	}
	var pages []Page
	doc.walk(root.Dict, Page{}, make(map[*Object]bool), &pages)
	return pages, nil
}

func (doc *Document) walk(node Dict, inherited Page, seen map[*Object]bool, out *[]Page) {
	if box, ok := doc.rect(node["MediaBox"]); ok {
		inherited.MediaBox = box
	}
	if rot, ok := doc.Resolve(node["Rotate"]).Number(); ok {
		inherited.Rotate = int(rot)
	}

	if typ, _ := node.Name("Type"); typ == "Page" {
		inherited.Dict = node
		*out = append(*out, inherited)
		return
	}
	kids := doc.Resolve(node["Kids"])
	if kids.Kind != KindArray {
		return
	}
	for _, ref := range kids.Array {
		kid := doc.Resolve(ref)
		if seen[kid] || (kid.Kind != KindDict && kid.Kind != KindStream) {
			continue
		}
		seen[kid] = true
		doc.walk(kid.Dict, inherited, seen, out)
	}
}

func (doc *Document) rect(o *Object) ([4]float64, bool) {
	var r [4]float64
	arr := doc.Resolve(o)
	if arr.Kind != KindArray || len(arr.Array) < 4 {
		return r, false
	}
	for i := range r {
		v, ok := doc.Resolve(arr.Array[i]).Number()
		if !ok {
			return r, false
		}
		r[i] = v
	}
	return r, true
}

// Info returns the document information dictionary as text values.
func (doc *Document) Info() map[string]string {
	info := doc.Resolve(doc.trailer["Info"])
	if info.Kind != KindDict {
		return nil
	}
	out := make(map[string]string, len(info.Dict))
	for k, v := range info.Dict {
		if v = doc.Resolve(v); v.Kind == KindString {
			out[k] = textString(v.Str)
		}
	}
	return out
}

// textString decodes a PDF text string: UTF-16BE with BOM, otherwise bytes
// are taken as Latin-1.
func textString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		var sb strings.Builder
		for i := 2; i+1 < len(b); i += 2 {
			r := rune(b[i])<<8 | rune(b[i+1])
			if r >= 0xD800 && r < 0xDC00 && i+3 < len(b) {
				lo := rune(b[i+2])<<8 | rune(b[i+3])
				r = (r-0xD800)<<10 + (lo - 0xDC00) + 0x10000
				i += 2
			}
			sb.WriteRune(r)
		}
		return sb.String()
	}
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}
