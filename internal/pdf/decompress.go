package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

// maxDecodedSize bounds a single decoded stream (64 MB).
const maxDecodedSize = 64 << 20

// decodeStream applies the stream's /Filter chain. Only the filters used for
// structural data (xref and object streams) are supported; image filters pass
// through untouched.
func decodeStream(s *Object) ([]byte, error) {
	filters, ok := s.Dict.Array("Filter")
	if !ok {
		return s.Stream, nil
	}
	parms, _ := s.Dict.Array("DecodeParms")

	data := s.Stream
	for i, f := range filters {
		if f.Kind != KindName {
			continue
		}
		var p Dict
		if i < len(parms) && parms[i].Kind == KindDict {
			p = parms[i].Dict
		}
		var err error
		if data, err = applyFilter(f.Name, p, data); err != nil {
			return nil, fmt.Errorf("pdf: filter %s: %w", f.Name, err)
		}
	}
	return data, nil
}

func applyFilter(name string, parms Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err := inflate(data)
		if err != nil {
			return nil, err
		}
		return unpredict(parms, out)
	case "ASCII85Decode", "A85":
		if i := bytes.Index(data, []byte("~>")); i >= 0 {
			data = data[:i]
		}
		return readLimited(ascii85.NewDecoder(bytes.NewReader(data)))
	case "ASCIIHexDecode", "AHx":
		if i := bytes.IndexByte(data, '>'); i >= 0 {
			data = data[:i]
		}
		digits := make([]byte, 0, len(data))
		for _, c := range data {
			if !isSpace(c) {
				digits = append(digits, c)
			}
		}
		return decodeHexDigits(digits), nil
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode", "CCITTFaxDecode", "CCF", "Crypt":
		return data, nil
	}
	return nil, fmt.Errorf("unsupported filter")
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readLimited(r)
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("decoded stream exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}

// unpredict reverses PNG row predictors (10-15), which is what xref streams
// use in practice. Other predictor values return the data unchanged.
func unpredict(parms Dict, data []byte) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	pred, _ := parms.Int("Predictor")
	if pred < 10 {
		return data, nil
	}
	colors := intOr(parms, "Colors", 1)
	bpc := intOr(parms, "BitsPerComponent", 8)
	cols := intOr(parms, "Columns", 1)

	bpp := (colors*bpc + 7) / 8
	rowLen := (cols*colors*bpc + 7) / 8
	stride := rowLen + 1
	if rowLen <= 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("predictor: %d bytes is not a multiple of row size %d", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		src := data[r*stride+1 : (r+1)*stride]
		dst := out[r*rowLen : (r+1)*rowLen]
		for i := range dst {
			var left, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch data[r*stride] {
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				dst[i] = src[i]
			}
		}
		prev = dst
	}
	return out, nil
}

func intOr(d Dict, key string, def int) int {
	if v, ok := d.Int(key); ok && v > 0 {
		return int(v)
	}
	return def
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
