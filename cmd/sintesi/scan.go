package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sintesi/internal/scan"
)

var scanDocRoot string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan documentation and bind new anchors",
	Long: `Walk the documentation tree, validate anchor markers, and add
anchors that are not yet in the registry.

Known anchors that moved within a document get their recorded line
numbers refreshed. Files with marker violations are reported and left
unbound; they never abort the scan.

Examples:
  sintesi scan
  sintesi scan --doc-root handbook`,
	Run: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanDocRoot, "doc-root", "", "Documentation root (default: from config)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	docRoot := scanDocRoot
	if docRoot == "" {
		docRoot = a.cfg.Docs.Root
	}

	scanner := scan.NewScanner(a.reg, a.provider, a.repoRoot, a.logger)
	result, err := scanner.Scan(context.Background(),
		filepath.Join(a.repoRoot, filepath.FromSlash(docRoot)), a.cfg.Docs.Exclude)
	if err != nil {
		fail(err)
	}

	out, err := FormatResponse(result, OutputFormat(formatFlag))
	if err != nil {
		fail(err)
	}
	fmt.Println(out)

	if result.TotalViolations > 0 {
		os.Exit(1)
	}
}
