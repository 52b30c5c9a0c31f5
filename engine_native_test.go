package billtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func glyphs(x, y, size float64, s string) []textSpan {
	var out []textSpan
	for _, r := range s {
		out = append(out, textSpan{x: x, y: y, width: size * 0.5, text: string(r), fontSize: size})
		x += size * 0.5
	}
	return out
}

func TestSpansToText_ReadingOrder(t *testing.T) {
	var spans []textSpan
	// Emitted bottom line first, right word before left word.
	spans = append(spans, glyphs(200, 700, 12, "world")...)
	spans = append(spans, glyphs(72, 700, 12, "hello")...)
	spans = append(spans, glyphs(72, 720, 12, "Total")...)

	assert.Equal(t, "Total\nhello world", spansToText(spans))
}

func TestSpansToText_SameLineWithinTolerance(t *testing.T) {
	spans := append(glyphs(72, 700, 12, "R$"), glyphs(100, 701.5, 12, "120,00")...)
	assert.Equal(t, "R$ 120,00", spansToText(spans))
}

func TestSpansToText_NoSpaceForAdjacentGlyphs(t *testing.T) {
	assert.Equal(t, "kWh", spansToText(glyphs(72, 700, 10, "kWh")))
}

func TestSpansToText_CollapsesSpaces(t *testing.T) {
	spans := glyphs(72, 700, 12, "a    b")
	assert.Equal(t, "a b", spansToText(spans))
}

func TestSpansToText_StripsControlCharacters(t *testing.T) {
	spans := []textSpan{
		{x: 72, y: 700, width: 6, text: "a\x00", fontSize: 12},
		{x: 78, y: 700, width: 6, text: "\tb", fontSize: 12},
	}
	assert.Equal(t, "a b", spansToText(spans))
}

func TestSpansToText_Empty(t *testing.T) {
	assert.Equal(t, "", spansToText(nil))
}

func TestSpanWidth_Fallback(t *testing.T) {
	assert.Equal(t, 6.0, spanWidth(textSpan{text: "é", fontSize: 12}))
	assert.Equal(t, 3.0, spanWidth(textSpan{text: "é", fontSize: 12, width: 3}))
}
