// billtext retrieves the latest billing statement from the utility
// customer portal and returns its text.
//
// Usage:
//
//	billtext serve [--config file]
//	billtext fetch --email <email> --password <password> [--account <id>]
//	billtext extract [-o file] [-p range] [-f text|json|markdown] <file.pdf>
//	billtext info <file.pdf>
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "billtext",
	Short: "Billing statement retrieval and PDF text extraction",
	Long: `billtext logs into the utility customer portal with a headless browser,
downloads the latest billing statement and extracts its full text, page by page.

It runs as an HTTP service (serve), as a one-shot retrieval (fetch) or as a
plain PDF text extractor (extract, info).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
