// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Page returns a content stream that draws each line in 12pt Helvetica,
// top to bottom. An empty line still advances the cursor.
func Page(lines ...string) []byte {
	var b strings.Builder
	b.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, l := range lines {
		if i > 0 {
			b.WriteString(" 0 -16 Td")
		}
		fmt.Fprintf(&b, " (%s) Tj", escape(l))
	}
	b.WriteString(" ET")
	return []byte(b.String())
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Build creates a PDF with one page per content stream. All pages share a
// WinAnsi Helvetica font registered as /F1 with explicit glyph widths, so
// text positions can be computed by any reader.
func Build(contentStreams ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := map[int]int{}
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	numPages := len(contentStreams)
	fontID := 3 + numPages*2

	kids := make([]string, numPages)
	for i := range contentStreams {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i*2)
	}

	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), numPages))

	for i, cs := range contentStreams {
		pageID := 3 + i*2
		csID := pageID + 1
		obj(pageID, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>",
			csID, fontID))

		offsets[csID] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n", csID, len(cs))
		buf.Write(cs)
		buf.WriteString("\nendstream\nendobj\n")
	}

	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))
	obj(fontID, fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		widths))

	size := fontID + 1
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < size; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\n", size)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Pages builds a PDF with one page per entry, each page holding the lines
// of its entry split on "\n".
func Pages(texts ...string) []byte {
	streams := make([][]byte, len(texts))
	for i, t := range texts {
		streams[i] = Page(strings.Split(t, "\n")...)
	}
	return Build(streams...)
}
