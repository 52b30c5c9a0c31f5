package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	billtext "github.com/porticus-lab/go-bill-text"
	"github.com/porticus-lab/go-bill-text/internal/cleanup"
	"github.com/porticus-lab/go-bill-text/internal/config"
	"github.com/porticus-lab/go-bill-text/internal/observability"
)

var (
	fetchEmail    string
	fetchPassword string
	fetchAccount  string
	fetchOutput   string
	fetchKeep     bool
	fetchVerbose  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Retrieve the latest statement once and print its text",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchEmail, "email", "", "portal login e-mail (required)")
	fetchCmd.Flags().StringVar(&fetchPassword, "password", os.Getenv("BILLTEXT_PASSWORD"), "portal password (default $BILLTEXT_PASSWORD)")
	fetchCmd.Flags().StringVar(&fetchAccount, "account", "", "customer account to select")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "write text to file (default: stdout)")
	fetchCmd.Flags().BoolVar(&fetchKeep, "keep", false, "keep the downloaded PDF")
	fetchCmd.Flags().BoolVarP(&fetchVerbose, "verbose", "v", false, "log progress to stderr")
	fetchCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(fetchCmd)
}

// keepCleaner leaves downloads in place.
type keepCleaner struct{}

func (keepCleaner) Schedule(context.Context, string, time.Duration) error { return nil }

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchPassword == "" {
		return errors.New("a password is required (--password or $BILLTEXT_PASSWORD)")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	level := "error"
	if fetchVerbose {
		level = "debug"
	}
	log := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "billtext",
	})

	var (
		cleaner billtext.Cleaner = keepCleaner{}
		sched   *cleanup.Scheduler
	)
	if !fetchKeep {
		sched = newScheduler(cfg, cleanup.NewMemoryStore(), log)
		cleaner = sched
	}
	fetcher, err := newFetcher(cfg, log, cleaner)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	status := color.New(color.FgCyan)
	status.Fprintf(os.Stderr, "→ retrieving statement for %s\n", fetchEmail)

	st, err := fetcher.Fetch(ctx, billtext.Credentials{
		Email:    fetchEmail,
		Password: fetchPassword,
		Account:  fetchAccount,
	})
	if sched != nil {
		if ferr := sched.Flush(context.WithoutCancel(ctx)); ferr != nil {
			log.Warn().Err(ferr).Msg("flushing deletions")
		}
	}
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
		var anf *billtext.AccountNotFoundError
		if errors.As(err, &anf) {
			for _, a := range anf.Available {
				fmt.Fprintf(os.Stderr, "  • %s\n", a)
			}
		}
		return err
	}

	ok := color.New(color.FgGreen, color.Bold)
	ok.Fprintf(os.Stderr, "✓ %d pages, %d characters\n", st.Text.Pages, st.Text.Len())
	if st.ReferenceDate != nil {
		fmt.Fprintf(os.Stderr, "  reference date: %s\n", *st.ReferenceDate)
	}
	if st.Account != "" {
		fmt.Fprintf(os.Stderr, "  account:        %s\n", st.Account)
	}
	if fetchKeep {
		fmt.Fprintf(os.Stderr, "  file:           %s\n", st.Path)
	}

	if fetchOutput != "" {
		return st.Text.WriteToFile(fetchOutput, 0o644)
	}
	_, err = st.Text.WriteTo(os.Stdout)
	fmt.Fprintln(os.Stdout)
	return err
}
