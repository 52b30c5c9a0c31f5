package billtext_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billtext "github.com/porticus-lab/go-bill-text"
	"github.com/porticus-lab/go-bill-text/internal/pdftest"
)

const separatorPrefix = "--- PÁGINA "

func engines() map[string]billtext.Engine {
	return map[string]billtext.Engine{
		billtext.EngineNative: billtext.NativeEngine{},
		billtext.EngineMuPDF:  billtext.MuPDFEngine{},
	}
}

func TestExtract_SinglePage(t *testing.T) {
	for name, engine := range engines() {
		t.Run(name, func(t *testing.T) {
			data := pdftest.Pages("Hello, World!")
			text, err := billtext.NewExtractor(engine).Extract(data)
			require.NoError(t, err)

			assert.Equal(t, 1, text.Pages)
			assert.Contains(t, text.Content, "Hello, World!")
			assert.NotContains(t, text.Content, separatorPrefix)
		})
	}
}

func TestExtract_MultiplePagesInOrder(t *testing.T) {
	for name, engine := range engines() {
		t.Run(name, func(t *testing.T) {
			data := pdftest.Pages("Page One", "Page Two", "Page Three")
			text, err := billtext.NewExtractor(engine).Extract(data)
			require.NoError(t, err)

			assert.Equal(t, 3, text.Pages)
			assert.Equal(t, 2, strings.Count(text.Content, separatorPrefix))
			assert.Contains(t, text.Content, "--- PÁGINA 1 FINALIZADA | PRÓXIMA PÁGINA 2 ---")
			assert.Contains(t, text.Content, "--- PÁGINA 2 FINALIZADA | PRÓXIMA PÁGINA 3 ---")
			assert.NotContains(t, text.Content, "PÁGINA 3 FINALIZADA")

			one := strings.Index(text.Content, "Page One")
			two := strings.Index(text.Content, "Page Two")
			three := strings.Index(text.Content, "Page Three")
			assert.True(t, one >= 0 && one < two && two < three, "pages out of order: %q", text.Content)

			pages := text.PageTexts()
			require.Len(t, pages, 3)
			assert.Contains(t, pages[1], "Page Two")
		})
	}
}

func TestExtract_MultiLinePage(t *testing.T) {
	data := pdftest.Pages("Conta de energia\nTotal a pagar")
	text, err := billtext.NewExtractor(nil).Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "Conta de energia\nTotal a pagar", text.Content)
}

func TestExtract_EmptyInput(t *testing.T) {
	_, err := billtext.NewExtractor(nil).Extract(nil)
	assert.ErrorIs(t, err, billtext.ErrEmptyDocument)
}

func TestExtract_WhitespaceOnly(t *testing.T) {
	for name, engine := range engines() {
		t.Run(name, func(t *testing.T) {
			data := pdftest.Pages(" ", " ")
			_, err := billtext.NewExtractor(engine).Extract(data)
			assert.ErrorIs(t, err, billtext.ErrNoText)
		})
	}
}

func TestExtract_Garbage(t *testing.T) {
	for name, engine := range engines() {
		t.Run(name, func(t *testing.T) {
			_, err := billtext.NewExtractor(engine).Extract([]byte("this is not a pdf document at all"))
			require.Error(t, err)
			assert.False(t, errors.Is(err, billtext.ErrNoText))
		})
	}
}

type stubEngine struct {
	pages []string
	fail  int
}

func (e stubEngine) Open([]byte) (billtext.Document, error) {
	return &stubDoc{e: e}, nil
}

type stubDoc struct {
	e      stubEngine
	closed bool
}

func (d *stubDoc) NumPages() int { return len(d.e.pages) }

func (d *stubDoc) PageText(i int) (string, error) {
	if i == d.e.fail {
		return "", errors.New("broken page")
	}
	return d.e.pages[i], nil
}

func (d *stubDoc) Close() error {
	d.closed = true
	return nil
}

func TestExtract_PageError(t *testing.T) {
	engine := stubEngine{pages: []string{"a", "b"}, fail: 1}
	_, err := billtext.NewExtractor(engine).Extract([]byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
}

func TestExtract_EmptyPagesKeepSeparators(t *testing.T) {
	engine := stubEngine{pages: []string{"", "text", ""}, fail: -1}
	text, err := billtext.NewExtractor(engine).Extract([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(text.Content, separatorPrefix))
	assert.Equal(t, []string{"", "text", ""}, text.PageTexts())
}

func TestEngineByName(t *testing.T) {
	for _, name := range []string{"", "native", "NATIVE"} {
		e, err := billtext.EngineByName(name)
		require.NoError(t, err)
		assert.IsType(t, billtext.NativeEngine{}, e)
	}
	e, err := billtext.EngineByName("mupdf")
	require.NoError(t, err)
	assert.IsType(t, billtext.MuPDFEngine{}, e)

	_, err = billtext.EngineByName("tesseract")
	assert.Error(t, err)
}
