package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	billtext "github.com/porticus-lab/go-bill-text"
)

var (
	extractOutput string
	extractPages  string
	extractFormat string
	extractEngine string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract plain text from a PDF file",
	Example: `  billtext extract fatura.pdf
  billtext extract -p 1-2 -f json fatura.pdf > out.json
  billtext extract --engine mupdf -o fatura.txt fatura.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var infoCmd = &cobra.Command{
	Use:   "info <file.pdf>",
	Short: "Display page and character counts of a PDF file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write output to file (default: stdout)")
	extractCmd.Flags().StringVarP(&extractPages, "pages", "p", "", `page range, e.g. "1", "1-5", "1,3,5" (default: all)`)
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "text", "output format: text, json, markdown")
	for _, c := range []*cobra.Command{extractCmd, infoCmd} {
		c.Flags().StringVar(&extractEngine, "engine", billtext.EngineNative, "extraction engine: native, mupdf")
	}
	rootCmd.AddCommand(extractCmd, infoCmd)
}

type pageResult struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// extractFile extracts the whole document at path.
func extractFile(path, engineName string) (*billtext.Text, int64, error) {
	engine, err := billtext.EngineByName(engineName)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	text, err := billtext.NewExtractor(engine).Extract(data)
	if err != nil {
		return nil, 0, err
	}
	return text, int64(len(data)), nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputFile := args[0]
	text, _, err := extractFile(inputFile, extractEngine)
	if err != nil {
		return err
	}

	pages := text.PageTexts()
	indices, err := parsePageRange(extractPages, len(pages))
	if err != nil {
		return fmt.Errorf("invalid page range %q: %w", extractPages, err)
	}

	out := io.Writer(os.Stdout)
	if extractOutput != "" {
		f, err := os.Create(extractOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	// The full text keeps the page markers.
	if extractFormat == "text" && extractPages == "" {
		_, err := text.WriteTo(out)
		fmt.Fprintln(out)
		return err
	}

	results := make([]pageResult, 0, len(indices))
	for _, idx := range indices {
		results = append(results, pageResult{Page: idx + 1, Text: pages[idx]})
	}
	return writeResults(out, extractFormat, results)
}

func writeResults(out io.Writer, format string, results []pageResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
	case "markdown":
		for _, r := range results {
			fmt.Fprintf(out, "## Página %d\n\n%s\n\n", r.Page, r.Text)
		}
	case "text":
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out, "\f")
			}
			fmt.Fprintln(out, r.Text)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	inputFile := args[0]
	text, size, err := extractFile(inputFile, extractEngine)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:       %s\n", inputFile)
	fmt.Fprintf(out, "Size:       %d bytes\n", size)
	fmt.Fprintf(out, "Engine:     %s\n", extractEngine)
	fmt.Fprintf(out, "Pages:      %d\n", text.Pages)
	fmt.Fprintf(out, "Characters: %d\n", text.Len())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Characters per page:")
	for i, p := range text.PageTexts() {
		fmt.Fprintf(out, "  Page %d: %d\n", i+1, utf8.RuneCountInString(p))
	}
	return nil
}

// parsePageRange converts a page range string to a slice of 0-based page indices.
// Supported formats: "" (all), "3" (single page), "1-5" (range), "1,3,5" (list).
func parsePageRange(spec string, total int) ([]int, error) {
	if spec == "" {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	add := func(p int) {
		if !seen[p] {
			indices = append(indices, p-1)
			seen[p] = true
		}
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", hi)
			}
			if start < 1 || end > total || start > end {
				return nil, fmt.Errorf("page range %d-%d out of bounds (1-%d)", start, end, total)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}

		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if p < 1 || p > total {
			return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, total)
		}
		add(p)
	}
	return indices, nil
}
