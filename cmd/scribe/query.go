package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"provenant-hq/scribe/pkg/audit"
	"provenant-hq/scribe/pkg/ledger"
)

var queryFlags struct {
	decisionType string
	claimID      string
	docID        string
	purpose      string
	since        string
	limit        int
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the compliance logs",
}

var queryDecisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Query decision records",
	Long: `Query decision records, most recent first, printed as JSON lines.

Examples:
  # Every decision about a claim
  scribe query decisions --claim-id claim-042

  # Recent human review decisions
  scribe query decisions --type human_review --since 2026-08-01T00:00:00Z --limit 20`,
	RunE: runQueryDecisions,
}

var queryCallsCmd = &cobra.Command{
	Use:   "llm-calls",
	Short: "Query LLM call records",
	Long: `Query LLM call records, most recent first, printed as JSON lines.

Examples:
  # Every call made while processing a document
  scribe query llm-calls --doc-id doc-007

  # Classification calls for a claim
  scribe query llm-calls --claim-id claim-042 --purpose classification`,
	RunE: runQueryCalls,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryDecisionsCmd)
	queryCmd.AddCommand(queryCallsCmd)

	for _, cmd := range []*cobra.Command{queryDecisionsCmd, queryCallsCmd} {
		cmd.Flags().StringVar(&queryFlags.claimID, "claim-id", "", "filter by claim id")
		cmd.Flags().StringVar(&queryFlags.docID, "doc-id", "", "filter by document id")
		cmd.Flags().StringVar(&queryFlags.since, "since", "", "only records at or after this RFC 3339 time")
		cmd.Flags().IntVar(&queryFlags.limit, "limit", 100, "maximum records to return")
	}
	queryDecisionsCmd.Flags().StringVar(&queryFlags.decisionType, "type", "", "filter by decision type")
	queryCallsCmd.Flags().StringVar(&queryFlags.purpose, "purpose", "", "filter by call purpose")
}

func parseSinceFlag() (*time.Time, error) {
	if queryFlags.since == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, queryFlags.since)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value %q: %w", queryFlags.since, err)
	}
	return &t, nil
}

func runQueryDecisions(cmd *cobra.Command, args []string) error {
	since, err := parseSinceFlag()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	records, err := comps.ledger.Query(context.Background(), &ledger.Query{
		DecisionType: ledger.DecisionType(queryFlags.decisionType),
		ClaimID:      queryFlags.claimID,
		DocID:        queryFlags.docID,
		Since:        since,
		Limit:        queryFlags.limit,
	})
	if err != nil {
		return err
	}

	return printJSONLines(records)
}

func runQueryCalls(cmd *cobra.Command, args []string) error {
	since, err := parseSinceFlag()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	records, err := comps.audit.Query(context.Background(), &audit.CallQuery{
		ClaimID: queryFlags.claimID,
		DocID:   queryFlags.docID,
		Purpose: queryFlags.purpose,
		Since:   since,
		Limit:   queryFlags.limit,
	})
	if err != nil {
		return err
	}

	return printJSONLines(records)
}

// printJSONLines prints a slice of records, one JSON document per line.
func printJSONLines[T any](records []T) error {
	enc := json.NewEncoder(os.Stdout)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "%d records\n", len(records))
	return nil
}
