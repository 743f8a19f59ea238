package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Scribe - compliance ledger for claim-document pipelines",
	Long: `Scribe is the compliance ledger of an insurance-claim document pipeline.

It records every pipeline decision into an append-only, hash-chained log,
audits every LLM call with PII-safe redaction, snapshots the code, model
and configuration versions behind each run, and keeps versioned histories
for ground truth, labels and configuration.

Everything scribe writes is append-only; the only deletion pathway is the
backlog pruner, which never touches audit data.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
