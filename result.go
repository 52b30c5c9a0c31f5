package billtext

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// pageSeparator returns the marker written after page n (1-based) when
// another page follows.
func pageSeparator(n int) string {
	return fmt.Sprintf("\n\n--- PÁGINA %d FINALIZADA | PRÓXIMA PÁGINA %d ---\n\n", n, n+1)
}

// Text holds the extracted content of a document.
//
// Content is the page texts in order, joined by page-boundary markers.
// It is safe to call its methods multiple times; the content is never
// modified.
type Text struct {
	Content string
	Pages   int
}

// String returns the full content.
func (t *Text) String() string {
	return t.Content
}

// Len returns the number of characters in the content.
func (t *Text) Len() int {
	return len([]rune(t.Content))
}

// PageTexts splits the content back into one string per page.
func (t *Text) PageTexts() []string {
	if t.Pages <= 1 {
		return []string{t.Content}
	}
	out := make([]string, 0, t.Pages)
	rest := t.Content
	for n := 1; n < t.Pages; n++ {
		sep := pageSeparator(n)
		i := strings.Index(rest, sep)
		if i < 0 {
			break
		}
		out = append(out, rest[:i])
		rest = rest[i+len(sep):]
	}
	return append(out, rest)
}

// WriteTo writes the full content to w. It implements [io.WriterTo].
func (t *Text) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Content)
	return int64(n), err
}

// WriteToFile writes the content to the file at path, creating it if needed.
func (t *Text) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, []byte(t.Content), perm)
}

// Statement is the outcome of a successful retrieval.
type Statement struct {
	// ReferenceDate is the billing month shown next to the latest bill,
	// nil when the portal did not show one.
	ReferenceDate *string
	// Account is the customer account the statement belongs to, empty
	// when none was requested.
	Account string
	Text    *Text
	// Path is the downloaded file. It is scheduled for deletion and may be
	// gone by the time the caller looks.
	Path string
}
