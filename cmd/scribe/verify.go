package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"provenant-hq/scribe/pkg/ledger"
)

var verifyFlags struct {
	log string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash chains",
	Long: `Verify the decision ledger and LLM call log hash chains.

Every record's hash is recomputed and compared against the stored value,
and every prev_hash is checked against its predecessor. A valid chain
prints a summary; a broken chain prints where and why it breaks and the
command exits nonzero, so verification can gate deployments and backups.

Examples:
  # Verify every log
  scribe verify

  # Verify only the decision ledger
  scribe verify --log decisions`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.log, "log", "", "verify a single log (decisions, llm-calls)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	// Verification never needs the index.
	cfg.Ledger.Index.Enabled = false
	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx := context.Background()
	broken := false

	if verifyFlags.log == "" || verifyFlags.log == "decisions" {
		result, err := comps.ledger.VerifyIntegrity(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify decision ledger: %w", err)
		}
		printVerifyResult("decisions", result)
		broken = broken || !result.Valid
	}

	if verifyFlags.log == "" || verifyFlags.log == "llm-calls" {
		result, err := comps.audit.VerifyIntegrity(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify LLM call log: %w", err)
		}
		printVerifyResult("llm-calls", result)
		broken = broken || !result.Valid
	}

	if broken {
		os.Exit(1)
	}
	return nil
}

func printVerifyResult(name string, result *ledger.VerifyResult) {
	if result.Valid {
		fmt.Printf("✓ %s: chain valid (%d records)\n", name, result.RecordCount)
		return
	}
	fmt.Printf("✗ %s: chain BROKEN at record %d: %s\n", name, *result.BreakAt, result.Reason)
}
