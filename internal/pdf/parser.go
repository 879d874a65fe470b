package pdf

import (
	"bytes"
	"errors"
	"strconv"
)

// Kind identifies the type of a PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

// Ref is an indirect object reference ("N G R").
type Ref struct {
	Num int
	Gen int
}

// Object is a parsed PDF value. Only the field matching Kind is meaningful,
// except for streams which carry both Dict and Stream.
type Object struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte
	Ref    Ref
}

var null = &Object{Kind: KindNull}

// Number returns the numeric value of an int or real object.
func (o *Object) Number() (float64, bool) {
	if o == nil {
		return 0, false
	}
	switch o.Kind {
	case KindInt:
		return float64(o.Int), true
	case KindReal:
		return o.Real, true
	}
	return 0, false
}

// Dict is a PDF dictionary keyed by name without the leading slash.
type Dict map[string]*Object

// Int returns an integer entry. Reals are truncated.
func (d Dict) Int(key string) (int64, bool) {
	o, ok := d[key]
	if !ok {
		return 0, false
	}
	switch o.Kind {
	case KindInt:
		return o.Int, true
	case KindReal:
		return int64(o.Real), true
	}
	return 0, false
}

// Name returns a name entry.
func (d Dict) Name(key string) (string, bool) {
	o, ok := d[key]
	if !ok || o.Kind != KindName {
		return "", false
	}
	return o.Name, true
}

// Array returns an array entry. A scalar is returned as a one-element array.
func (d Dict) Array(key string) ([]*Object, bool) {
	o, ok := d[key]
	if !ok {
		return nil, false
	}
	if o.Kind == KindArray {
		return o.Array, true
	}
	return []*Object{o}, true
}

var errTooDeep = errors.New("pdf: object nesting too deep")

const maxDepth = 100

// lexer is a recursive-descent reader over raw PDF bytes.
type lexer struct {
	buf   []byte
	pos   int
	depth int
}

func newLexer(buf []byte, pos int) *lexer {
	return &lexer{buf: buf, pos: pos}
}

func (l *lexer) eof() bool { return l.pos >= len(l.buf) }

func (l *lexer) skipSpace() {
	for !l.eof() {
		switch c := l.buf[l.pos]; {
		case c == '%':
			for !l.eof() && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
		case isSpace(c):
			l.pos++
		default:
			return
		}
	}
}

// keyword consumes kw if the input continues with it.
func (l *lexer) keyword(kw string) bool {
	if bytes.HasPrefix(l.buf[l.pos:], []byte(kw)) {
		l.pos += len(kw)
		return true
	}
	return false
}

// token reads a run of regular (non-space, non-delimiter) characters.
func (l *lexer) token() string {
	start := l.pos
	for !l.eof() && !isSpace(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
	return string(l.buf[start:l.pos])
}

// objHeader consumes "N G obj" and reports whether it was present.
func (l *lexer) objHeader() bool {
	l.skipSpace()
	if _, err := strconv.Atoi(l.token()); err != nil {
		return false
	}
	l.skipSpace()
	if _, err := strconv.Atoi(l.token()); err != nil {
		return false
	}
	l.skipSpace()
	return l.keyword("obj")
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// next parses one object. Unknown tokens yield null so a damaged file
// degrades instead of aborting the walk.
func (l *lexer) next() (*Object, error) {
	if l.depth >= maxDepth {
		return nil, errTooDeep
	}
	l.depth++
	defer func() { l.depth-- }()

	l.skipSpace()
	if l.eof() {
		return null, nil
	}
	switch c := l.buf[l.pos]; {
	case l.keyword("null"):
		return null, nil
	case l.keyword("true"):
		return &Object{Kind: KindBool, Bool: true}, nil
	case l.keyword("false"):
		return &Object{Kind: KindBool}, nil
	case c == '(':
		return l.literal(), nil
	case c == '<' && bytes.HasPrefix(l.buf[l.pos:], []byte("<<")):
		return l.dict()
	case c == '<':
		return l.hex(), nil
	case c == '/':
		return &Object{Kind: KindName, Name: l.name()}, nil
	case c == '[':
		return l.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.number(), nil
	default:
		l.pos++
		return null, nil
	}
}

func (l *lexer) literal() *Object {
	l.pos++
	var out bytes.Buffer
	for depth := 1; !l.eof(); {
		c := l.buf[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Object{Kind: KindString, Str: out.Bytes()}
			}
		case '\\':
			if l.eof() {
				continue
			}
			c = l.buf[l.pos]
			l.pos++
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				if !l.eof() && l.buf[l.pos] == '\n' {
					l.pos++
				}
				continue
			case '\n':
				continue
			default:
				if c >= '0' && c <= '7' {
					v := int(c - '0')
					for i := 0; i < 2 && !l.eof() && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '7'; i++ {
						v = v*8 + int(l.buf[l.pos]-'0')
						l.pos++
					}
					c = byte(v)
				}
			}
		}
		out.WriteByte(c)
	}
	return &Object{Kind: KindString, Str: out.Bytes()}
}

func (l *lexer) hex() *Object {
	l.pos++
	var digits []byte
	for !l.eof() && l.buf[l.pos] != '>' {
		if c := l.buf[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	if !l.eof() {
		l.pos++
	}
	return &Object{Kind: KindString, Str: decodeHexDigits(digits)}
}

// decodeHexDigits pairs nibbles; an odd trailing digit is padded with 0.
func decodeHexDigits(digits []byte) []byte {
	out := make([]byte, 0, (len(digits)+1)/2)
	for i := 0; i < len(digits); i += 2 {
		hi := nibble(digits[i])
		var lo byte
		if i+1 < len(digits) {
			lo = nibble(digits[i+1])
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

func (l *lexer) name() string {
	l.pos++
	raw := l.token()
	if !bytes.ContainsRune([]byte(raw), '#') {
		return raw
	}
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			out = append(out, nibble(raw[i+1])<<4|nibble(raw[i+2]))
			i += 2
			continue
		}
		out = append(out, raw[i])
	}
	return string(out)
}

func (l *lexer) array() (*Object, error) {
	l.pos++
	arr := &Object{Kind: KindArray}
	for {
		l.skipSpace()
		if l.eof() {
			return arr, nil
		}
		if l.buf[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		o, err := l.next()
		if err != nil {
			return nil, err
		}
		arr.Array = append(arr.Array, o)
	}
}

func (l *lexer) dict() (*Object, error) {
	l.pos += 2
	d := make(Dict)
	for {
		l.skipSpace()
		if l.eof() {
			break
		}
		if l.keyword(">>") {
			break
		}
		if l.buf[l.pos] != '/' {
			l.pos++
			continue
		}
		key := l.name()
		val, err := l.next()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}

	save := l.pos
	l.skipSpace()
	if !l.keyword("stream") {
		l.pos = save
		return &Object{Kind: KindDict, Dict: d}, nil
	}
	// A single EOL after the keyword is not stream data.
	_ = l.keyword("\r\n") || l.keyword("\n") || l.keyword("\r")
	start := l.pos
	end := -1
	if n, ok := d.Int("Length"); ok && n >= 0 && start+int(n) <= len(l.buf) {
		end = start + int(n)
	} else if i := bytes.Index(l.buf[start:], []byte("endstream")); i >= 0 {
		end = start + i
	} else {
		end = len(l.buf)
	}
	l.pos = end
	l.skipSpace()
	l.keyword("endstream")
	return &Object{Kind: KindStream, Dict: d, Stream: l.buf[start:end]}, nil
}

// number parses an int, a real, or an "N G R" reference.
func (l *lexer) number() *Object {
	tok := l.token()
	n, intErr := strconv.ParseInt(tok, 10, 64)
	if intErr != nil {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return null
		}
		return &Object{Kind: KindReal, Real: f}
	}

	after := l.pos
	l.skipSpace()
	if g, err := strconv.Atoi(l.token()); err == nil {
		l.skipSpace()
		if !l.eof() && l.buf[l.pos] == 'R' &&
			(l.pos+1 == len(l.buf) || isSpace(l.buf[l.pos+1]) || isDelim(l.buf[l.pos+1])) {
			l.pos++
			return &Object{Kind: KindRef, Ref: Ref{Num: int(n), Gen: g}}
		}
	}
	l.pos = after
	return &Object{Kind: KindInt, Int: n}
}
