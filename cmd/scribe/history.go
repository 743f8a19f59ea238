package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var historyFlags struct {
	version int
	latest  bool
}

var historyCmd = &cobra.Command{
	Use:   "history <store> <key>",
	Short: "Inspect a versioned store's history",
	Long: `Inspect one key's history in a versioned store (truth, labels, config).

By default every version is printed oldest first, one JSON document per
line. --latest prints only the current version; --version N prints one
specific version.

Examples:
  # Every version of a claim's ground truth
  scribe history truth claim-042

  # Current labels for a document
  scribe history labels doc-007 --latest

  # The second configuration version
  scribe history config pipeline --version 2`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyFlags.version, "version", 0, "show one specific version")
	historyCmd.Flags().BoolVar(&historyFlags.latest, "latest", false, "show only the current version")
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	store, ok := comps.stores[args[0]]
	if !ok {
		return fmt.Errorf("unknown store %q (expected truth, labels, or config)", args[0])
	}
	key := args[1]
	ctx := context.Background()

	enc := json.NewEncoder(os.Stdout)

	switch {
	case historyFlags.latest:
		entry, err := store.Latest(ctx, key)
		if err != nil {
			return err
		}
		return enc.Encode(entry)

	case historyFlags.version > 0:
		entry, err := store.Version(ctx, key, historyFlags.version)
		if err != nil {
			return err
		}
		return enc.Encode(entry)

	default:
		history, err := store.History(ctx, key)
		if err != nil {
			return err
		}
		for _, entry := range history {
			if err := enc.Encode(entry); err != nil {
				return err
			}
		}
		fmt.Fprintln(os.Stderr, strconv.Itoa(len(history))+" versions")
		return nil
	}
}
