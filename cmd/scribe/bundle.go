package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Inspect version bundles",
}

var bundleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs with a version bundle",
	RunE:  runBundleList,
}

var bundleShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's version bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleShow,
}

func init() {
	rootCmd.AddCommand(bundleCmd)
	bundleCmd.AddCommand(bundleListCmd)
	bundleCmd.AddCommand(bundleShowCmd)
}

func runBundleList(cmd *cobra.Command, args []string) error {
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

	runIDs, err := comps.bundles.List(context.Background())
	if err != nil {
		return err
	}
	for _, runID := range runIDs {
		fmt.Println(runID)
	}
	fmt.Fprintf(os.Stderr, "%d bundles\n", len(runIDs))
	return nil
}

func runBundleShow(cmd *cobra.Command, args []string) error {
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

	b, err := comps.bundles.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
