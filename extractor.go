package billtext

import (
	"fmt"
	"strings"
)

// Engine opens raw document bytes for page-by-page text extraction.
type Engine interface {
	Open(data []byte) (Document, error)
}

// Document is an opened, page-oriented document.
type Document interface {
	// NumPages returns the page count.
	NumPages() int
	// PageText returns the text of page i (0-indexed) in reading order.
	PageText(i int) (string, error)
	Close() error
}

// Engine names accepted by [EngineByName].
const (
	EngineNative = "native"
	EngineMuPDF  = "mupdf"
)

// EngineByName returns the engine registered under name.
func EngineByName(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineNative:
		return NativeEngine{}, nil
	case EngineMuPDF:
		return MuPDFEngine{}, nil
	}
	return nil, fmt.Errorf("billtext: unknown extraction engine %q", name)
}

// Extractor turns document bytes into page-ordered text.
type Extractor struct {
	engine Engine
}

// NewExtractor creates a text extractor backed by engine. A nil engine
// selects [NativeEngine].
func NewExtractor(engine Engine) *Extractor {
	if engine == nil {
		engine = NativeEngine{}
	}
	return &Extractor{engine: engine}
}

// Extract returns the text of every page, in order, with a boundary
// marker after each page except the last.
//
// It fails with [ErrEmptyDocument] for empty input and with [ErrNoText]
// when the document parses but holds only whitespace.
func (e *Extractor) Extract(data []byte) (*Text, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	doc, err := e.engine.Open(data)
	if err != nil {
		return nil, fmt.Errorf("billtext: opening document: %w", err)
	}
	defer doc.Close()

	n := doc.NumPages()
	var sb strings.Builder
	found := false
	for i := 0; i < n; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("billtext: page %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) != "" {
			found = true
		}
		sb.WriteString(text)
		if i < n-1 {
			sb.WriteString(pageSeparator(i + 1))
		}
	}

	// Markers alone do not count as text.
	if !found {
		return nil, ErrNoText
	}
	return &Text{Content: sb.String(), Pages: n}, nil
}
