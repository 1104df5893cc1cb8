package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sintesi/internal/drift"
	"sintesi/internal/fix"
	"sintesi/internal/generate"
	"sintesi/internal/gitops"
)

var (
	fixDryRun  bool
	fixWorkers int
	fixStage   bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Rewrite drifted documentation anchors",
	Long: `Detect drifted anchors and rewrite their bodies in place.

Replacement bodies come from the configured generator. When generation
fails after retries, a deterministic placeholder is written so the
drift is at least visible in the document. Entries whose symbol no
longer exists are reported and skipped, never rewritten or removed.

Examples:
  sintesi fix
  sintesi fix --dry-run
  sintesi fix --workers 8 --stage`,
	Run: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Report what would change without writing")
	fixCmd.Flags().IntVar(&fixWorkers, "workers", 0, "Concurrent entries (default: from config)")
	fixCmd.Flags().BoolVar(&fixStage, "stage", false, "git add rewritten docs and the registry")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	workers := fixWorkers
	if workers <= 0 {
		workers = a.cfg.Generation.Workers
	}

	detector := drift.NewDetector(a.provider, a.logger)
	orchestrator := fix.NewOrchestrator(a.reg, detector, newGenerator(a), a.repoRoot, a.logger, fix.Options{
		DryRun:  fixDryRun,
		Workers: workers,
		Retry: fix.RetryPolicy{
			MaxAttempts: a.cfg.Generation.MaxAttempts,
			Delay: func(attempt int) time.Duration {
				return time.Duration(attempt) * 500 * time.Millisecond
			},
		},
	})

	summary, err := orchestrator.Fix(context.Background())
	if err != nil {
		fail(err)
	}

	out, err := FormatResponse(summary, OutputFormat(formatFlag))
	if err != nil {
		fail(err)
	}
	fmt.Println(out)

	if !fixDryRun && (fixStage || a.cfg.Git.AutoStage) {
		stageResults(a, summary)
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// newGenerator builds the configured generator, degrading to the
// placeholder when the API key is absent.
func newGenerator(a *app) generate.Generator {
	if a.cfg.Generation.Provider != "openai" {
		return generate.Placeholder{}
	}
	apiKey := os.Getenv(a.cfg.Generation.APIKeyEnv)
	gen, err := generate.NewOpenAIGenerator(apiKey, a.cfg.Generation.Model, a.logger)
	if err != nil {
		a.logger.Warn("generator unavailable, using placeholders", map[string]interface{}{
			"error": err.Error(),
		})
		return generate.Placeholder{}
	}
	return gen
}

// stageResults adds the touched docs and the registry file to the git
// index. Staging failures are logged, not fatal; the rewrite itself
// already succeeded.
func stageResults(a *app, summary *fix.Summary) {
	git := gitops.New(a.repoRoot, a.logger)
	if !git.IsRepo() {
		a.logger.Warn("not a git repository, skipping staging", nil)
		return
	}

	seen := make(map[string]bool)
	var paths []string
	for _, r := range summary.Results {
		if r.Status == fix.StatusFixed && !seen[r.DocFile] {
			seen[r.DocFile] = true
			paths = append(paths, r.DocFile)
		}
	}
	if len(paths) == 0 {
		return
	}
	paths = append(paths, a.cfg.Registry.Path)

	if err := git.Stage(paths...); err != nil {
		a.logger.Warn("failed to stage rewritten files", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
