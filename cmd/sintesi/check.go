package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sintesi/internal/drift"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Detect drift between code and documentation",
	Long: `Check every registered anchor against the current code.

An anchor drifts when its symbol's signature hash no longer matches the
one recorded at the last sync. Exits non-zero when anything drifted or
went missing, which makes the command usable as a CI gate.

Examples:
  sintesi check
  sintesi check --format json`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	detector := drift.NewDetector(a.provider, a.logger)
	report := detector.Detect(context.Background(), a.reg.Entries())

	out, err := FormatResponse(report, OutputFormat(formatFlag))
	if err != nil {
		fail(err)
	}
	fmt.Println(out)

	if !report.Clean() {
		os.Exit(1)
	}
}
