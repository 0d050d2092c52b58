// Package cmd implements the cff-authors command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
	quiet   bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cff-authors",
	Short: "Keep CITATION.cff authors in sync with pull-request contributors",
	Long: `cff-authors reconciles the contributors of a pull request against the
author list of a CITATION.cff file.

It collects contribution events (commits, co-author trailers, reviews,
comments, linked issues), deduplicates the identities behind them, matches
each contributor against the existing authors by ORCID, email, and name,
and appends records for the contributors the file is missing. Results are
written in GitHub Actions output format and optionally posted back to the
pull request as a sticky comment.`,
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRun: func(*cobra.Command, []string) { configureLogging() },
}

// Execute runs the root command with a signal-aware context.
func Execute(version, commit, date string) error {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// configureLogging sets the global log level from the flags. LOG_LEVEL still
// wins when set, matching the logging package's environment handling.
func configureLogging() {
	if os.Getenv("LOG_LEVEL") != "" {
		return
	}
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
