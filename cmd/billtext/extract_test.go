package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticus-lab/go-bill-text/internal/pdftest"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		spec  string
		total int
		want  []int
	}{
		{"", 3, []int{0, 1, 2}},
		{"2", 3, []int{1}},
		{"1-3", 5, []int{0, 1, 2}},
		{"1,3,5", 5, []int{0, 2, 4}},
		{"2-3,1,3", 4, []int{1, 2, 0}},
		{" 1 - 2 ", 2, []int{0, 1}},
	}
	for _, tt := range tests {
		got, err := parsePageRange(tt.spec, tt.total)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.want, got, tt.spec)
	}
}

func TestParsePageRange_Errors(t *testing.T) {
	for _, spec := range []string{"0", "4", "3-1", "1-9", "a", "1-b"} {
		_, err := parsePageRange(spec, 3)
		assert.Error(t, err, spec)
	}
}

func TestWriteResults(t *testing.T) {
	results := []pageResult{{Page: 1, Text: "um"}, {Page: 2, Text: "dois"}}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, "json", results))
	var decoded []pageResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, results, decoded)

	buf.Reset()
	require.NoError(t, writeResults(&buf, "markdown", results))
	assert.Contains(t, buf.String(), "## Página 2\n\ndois")

	buf.Reset()
	require.NoError(t, writeResults(&buf, "text", results))
	assert.Equal(t, "um\n\f\ndois\n", buf.String())

	assert.Error(t, writeResults(&buf, "xml", results))
}

func TestRunInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fatura.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Pages("Conta", "Total"), 0o644))

	var out bytes.Buffer
	infoCmd.SetOut(&out)
	t.Cleanup(func() { infoCmd.SetOut(nil) })
	require.NoError(t, runInfo(infoCmd, []string{path}))

	assert.Contains(t, out.String(), "Pages:      2")
	assert.Contains(t, out.String(), "Page 2: 5")
}
