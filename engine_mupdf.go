package billtext

import (
	"github.com/gen2brain/go-fitz"
)

// MuPDFEngine extracts text with MuPDF. MuPDF orders text blocks by its
// own layout analysis.
type MuPDFEngine struct{}

// Open implements [Engine].
func (MuPDFEngine) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &mupdfDocument{doc: doc}, nil
}

type mupdfDocument struct {
	doc *fitz.Document
}

func (d *mupdfDocument) NumPages() int {
	return d.doc.NumPage()
}

func (d *mupdfDocument) PageText(i int) (string, error) {
	return d.doc.Text(i)
}

func (d *mupdfDocument) Close() error {
	return d.doc.Close()
}
