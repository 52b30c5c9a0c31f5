package billtext

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// NativeEngine extracts text in pure Go. Glyphs are placed by their
// position on the page and reassembled into lines in reading order.
type NativeEngine struct{}

// Open implements [Engine].
func (NativeEngine) Open(data []byte) (Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &nativeDocument{r: r}, nil
}

type nativeDocument struct {
	r *pdf.Reader
}

func (d *nativeDocument) NumPages() int {
	return d.r.NumPage()
}

func (d *nativeDocument) PageText(i int) (text string, err error) {
	page := d.r.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}
	// The content interpreter panics on malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading content stream: %v", r)
		}
	}()

	content := page.Content()
	spans := make([]textSpan, 0, len(content.Text))
	for _, t := range content.Text {
		spans = append(spans, textSpan{x: t.X, y: t.Y, width: t.W, text: t.S, fontSize: t.FontSize})
	}
	return spansToText(spans), nil
}

func (d *nativeDocument) Close() error {
	return nil
}

// ---- Span-to-text assembly ----

// textSpan is a positioned piece of text, usually a single glyph.
type textSpan struct {
	x, y     float64
	width    float64
	text     string
	fontSize float64
}

// spansToText converts positioned text spans into a readable string,
// inserting spaces and newlines based on position differences.
func spansToText(spans []textSpan) string {
	if len(spans) == 0 {
		return ""
	}

	// Group spans into lines by baseline (within tolerance).
	type line struct {
		y     float64
		spans []textSpan
	}

	var lines []line
	lineTol := averageFontSize(spans) * 0.5
	if lineTol < 2 {
		lineTol = 2
	}

	for _, sp := range spans {
		found := false
		for i := range lines {
			if math.Abs(lines[i].y-sp.y) < lineTol {
				lines[i].spans = append(lines[i].spans, sp)
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, line{y: sp.y, spans: []textSpan{sp}})
		}
	}

	// PDF y=0 is the bottom of the page.
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})
	for i := range lines {
		l := lines[i].spans
		sort.SliceStable(l, func(a, b int) bool {
			return l[a].x < l[b].x
		})
	}

	var sb strings.Builder
	for li, l := range lines {
		if li > 0 {
			sb.WriteByte('\n')
		}
		for si, sp := range l.spans {
			if si > 0 {
				prev := l.spans[si-1]
				gap := sp.x - (prev.x + spanWidth(prev))
				avgFS := (sp.fontSize + prev.fontSize) / 2
				if avgFS < 1 {
					avgFS = 12
				}
				if gap > avgFS*0.3 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(cleanText(sp.text))
		}
	}

	return strings.TrimSpace(collapseLineSpaces(sb.String()))
}

func averageFontSize(spans []textSpan) float64 {
	sum := 0.0
	for _, s := range spans {
		sum += s.fontSize
	}
	return sum / float64(len(spans))
}

// spanWidth uses the advance reported by the reader and falls back to a
// rough per-character estimate.
func spanWidth(sp textSpan) float64 {
	if sp.width > 0 {
		return sp.width
	}
	return float64(len([]rune(sp.text))) * sp.fontSize * 0.5
}

// cleanText turns line breaks into spaces and removes control characters.
func cleanText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '\r' || r == '\n' || r == '\f' || r == '\t':
			sb.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// collapseLineSpaces squeezes runs of spaces and trims each line.
func collapseLineSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Join(lines, "\n")
}
