package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
)

// testPage describes one page for buildPDF. A zero box means the page
// inherits the MediaBox from the Pages node.
type testPage struct {
	box    [4]float64
	rotate int
}

// buildPDF writes a minimal classic-xref PDF. parentBox is placed on the
// Pages node so inheritance can be exercised.
func buildPDF(parentBox [4]float64, pages ...testPage) []byte {
	var buf bytes.Buffer
	offsets := map[int]int{}
	obj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf(" %d 0 R", 4+i)
	}
	pagesDict := fmt.Sprintf("<< /Type /Pages /Kids [%s ] /Count %d", kids, len(pages))
	if parentBox != ([4]float64{}) {
		pagesDict += fmt.Sprintf(" /MediaBox [%g %g %g %g]", parentBox[0], parentBox[1], parentBox[2], parentBox[3])
	}
	obj(2, pagesDict+" >>")
	obj(3, "<< /Producer (Skia/PDF m120) /Title <FEFF00410050004900200044006F00630073> >>")

	for i, p := range pages {
		d := "<< /Type /Page /Parent 2 0 R"
		if p.box != ([4]float64{}) {
			d += fmt.Sprintf(" /MediaBox [%g %g %g %g]", p.box[0], p.box[1], p.box[2], p.box[3])
		}
		if p.rotate != 0 {
			d += fmt.Sprintf(" /Rotate %d", p.rotate)
		}
		obj(4+i, d+" >>")
	}

	n := 4 + len(pages)
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", n)
	for id := 1; id < n; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", n, xref)
	return buf.Bytes()
}

// buildCompressedPDF writes a PDF 1.5 file whose page objects live in an
// object stream and whose cross-reference section is a Flate-compressed
// stream with a PNG Up predictor, the way modern writers emit them.
func buildCompressedPDF(box [4]float64) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [%g %g %g %g] >>", box[0], box[1], box[2], box[3]),
		"<< /Type /Page /Parent 2 0 R >>",
	}
	var header, body bytes.Buffer
	for i, o := range objs {
		fmt.Fprintf(&header, "%d %d ", i+1, body.Len())
		body.WriteString(o + " ")
	}
	first := header.Len()
	content := zlibBytes(append(header.Bytes(), body.Bytes()...))

	objStmOff := buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Type /ObjStm /N %d /First %d /Filter /FlateDecode /Length %d >>\nstream\n", len(objs), first, len(content))
	buf.Write(content)
	buf.WriteString("\nendstream\nendobj\n")

	// Rows: type(1) field2(2) field3(1); objects 0..5.
	rows := [][4]byte{
		{0, 0, 0, 0},
		{2, 0, 4, 0},
		{2, 0, 4, 1},
		{2, 0, 4, 2},
		{1, byte(objStmOff >> 8), byte(objStmOff), 0},
	}
	xrefOff := buf.Len()
	rows = append(rows, [4]byte{1, byte(xrefOff >> 8), byte(xrefOff), 0})

	var raw bytes.Buffer
	var prev [4]byte
	for _, r := range rows {
		raw.WriteByte(2) // PNG Up
		for i := range r {
			raw.WriteByte(r[i] - prev[i])
		}
		prev = r
	}
	xrefData := zlibBytes(raw.Bytes())
	fmt.Fprintf(&buf, "5 0 obj\n<< /Type /XRef /Size 6 /W [1 2 1] /Root 1 0 R /Filter /FlateDecode /DecodeParms << /Predictor 12 /Columns 4 >> /Length %d >>\nstream\n", len(xrefData))
	buf.Write(xrefData)
	buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOff)
	return buf.Bytes()
}

func zlibBytes(b []byte) []byte {
	var out bytes.Buffer
	w := zlib.NewWriter(&out)
	w.Write(b)
	w.Close()
	return out.Bytes()
}
