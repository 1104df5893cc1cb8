package fix

import (
	"context"
	"os"
	"sync"

	"sintesi/internal/anchor"
	"sintesi/internal/drift"
	"sintesi/internal/generate"
	"sintesi/internal/logging"
	"sintesi/internal/pathlock"
	"sintesi/internal/paths"
	"sintesi/internal/registry"
)

// Options configure a fix run.
type Options struct {
	// DryRun reports what would change without touching any file.
	DryRun bool
	// Workers bounds concurrent entry processing. Defaults to 4.
	Workers int
	// Retry controls generation retries.
	Retry RetryPolicy
}

// Orchestrator drives the detect, generate, inject pipeline.
type Orchestrator struct {
	reg       *registry.MapRegistry
	detector  *drift.Detector
	generator generate.Generator
	locks     *pathlock.PathMutex
	repoRoot  string
	logger    *logging.Logger
	opts      Options
}

// NewOrchestrator wires the pipeline. A nil generator falls back to
// deterministic placeholders.
func NewOrchestrator(reg *registry.MapRegistry, detector *drift.Detector, generator generate.Generator, repoRoot string, logger *logging.Logger, opts Options) *Orchestrator {
	if generator == nil {
		generator = generate.Placeholder{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	return &Orchestrator{
		reg:       reg,
		detector:  detector,
		generator: generator,
		locks:     pathlock.New(),
		repoRoot:  repoRoot,
		logger:    logger,
		opts:      opts,
	}
}

// Fix checks every registry entry and rewrites the drifted ones.
// Failures are per entry; the batch always runs to completion.
func (o *Orchestrator) Fix(ctx context.Context) (*Summary, error) {
	entries := o.reg.Entries()
	report := o.detector.Detect(ctx, entries)

	results := make([]Result, len(report.Findings))
	var pending []int

	for i, finding := range report.Findings {
		base := Result{
			EntryID: finding.Entry.ID,
			CodeRef: finding.Entry.CodeRef.String(),
			DocFile: finding.Entry.DocRef.FilePath,
		}
		switch finding.Status {
		case drift.StatusUnchanged:
			base.Status = StatusUnchanged
			results[i] = base
		case drift.StatusMissingSymbol:
			base.Status = StatusMissingSymbol
			base.Detail = finding.Detail
			results[i] = base
		case drift.StatusError:
			base.Status = StatusFailed
			base.Detail = finding.Detail
			results[i] = base
		case drift.StatusDrifted:
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < o.opts.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = o.fixEntry(ctx, report.Findings[i])
				}
			}()
		}
		for _, i := range pending {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	summary := &Summary{Results: results}
	for _, r := range results {
		summary.tally(r)
	}

	o.logger.Info("fix run complete", map[string]interface{}{
		"entries":  len(results),
		"fixed":    summary.Fixed,
		"wouldFix": summary.WouldFix,
		"missing":  summary.Missing,
		"failed":   summary.Failed,
	})
	return summary, nil
}

// fixEntry rewrites one drifted anchor end to end.
func (o *Orchestrator) fixEntry(ctx context.Context, finding drift.Finding) Result {
	entry := finding.Entry
	result := Result{
		EntryID: entry.ID,
		CodeRef: entry.CodeRef.String(),
		DocFile: entry.DocRef.FilePath,
	}

	body, usedPlaceholder, err := o.generateBody(ctx, finding)
	if err != nil {
		result.Status = StatusFailed
		result.Detail = err.Error()
		return result
	}
	result.Placeholder = usedPlaceholder

	docPath := paths.Join(o.repoRoot, entry.DocRef.FilePath)

	// Dry run skips only the disk mutation and registry save.
	if o.opts.DryRun {
		return o.previewEntry(result, docPath, entry, body)
	}

	err = o.locks.Run(ctx, entry.DocRef.FilePath, func() error {
		if err := o.writeBody(docPath, entry, body, &result); err != nil {
			return err
		}

		update := registry.EntryUpdate{
			CodeSignatureHash:       &finding.CurrentHash,
			OriginalMarkdownContent: &body,
		}
		if finding.CurrentSignature != nil {
			update.CodeSignatureText = &finding.CurrentSignature.SignatureText
		}
		if err := o.reg.Update(entry.ID, update); err != nil {
			return err
		}
		o.rebindDocRefs(docPath, entry.DocRef.FilePath)
		return o.reg.Save()
	})
	if err != nil {
		result.Status = StatusFailed
		result.Detail = err.Error()
		return result
	}

	result.Status = StatusFixed
	o.logger.Debug("anchor rewritten", map[string]interface{}{
		"id":      entry.ID,
		"docFile": entry.DocRef.FilePath,
	})
	return result
}

// writeBody rewrites the anchor in place, recreating the whole block
// when its markers were removed from the document.
func (o *Orchestrator) writeBody(docPath string, entry registry.MapEntry, body string, result *Result) error {
	content := ""
	if data, err := os.ReadFile(docPath); err == nil {
		content = string(data)
	}

	if anchor.HasAnchor(content, entry.ID) {
		injectResult, err := anchor.InjectFile(docPath, entry.ID, body)
		if err != nil {
			return err
		}
		result.LinesChanged = injectResult.LinesChanged
		return nil
	}

	// Markers are gone; reinsert the anchor under the default section.
	_, err := anchor.InsertFile(docPath, entry.CodeRef, anchor.InsertOptions{
		ID:            entry.ID,
		CreateSection: true,
		Body:          body,
	})
	if err != nil {
		return err
	}
	result.Detail = "anchor markers missing, block reinserted"
	return nil
}

// previewEntry computes the write outcome for a dry run without
// touching the document or the registry.
func (o *Orchestrator) previewEntry(result Result, docPath string, entry registry.MapEntry, body string) Result {
	content := ""
	if data, err := os.ReadFile(docPath); err == nil {
		content = string(data)
	}

	if anchor.HasAnchor(content, entry.ID) {
		injectResult, err := anchor.Inject(content, entry.ID, body)
		if err != nil {
			result.Status = StatusFailed
			result.Detail = err.Error()
			return result
		}
		result.LinesChanged = injectResult.LinesChanged
		result.Detail = "signature hash changed"
	} else {
		if _, err := anchor.Insert(content, entry.CodeRef, anchor.InsertOptions{
			ID:            entry.ID,
			CreateSection: true,
			Body:          body,
		}); err != nil {
			result.Status = StatusFailed
			result.Detail = err.Error()
			return result
		}
		result.Detail = "anchor markers missing, block would be reinserted"
	}

	result.Status = StatusWouldFix
	return result
}

// generateBody asks the generator for a new body, retrying per policy,
// and falls back to the deterministic placeholder when retries run out.
// The prior body comes from the document's current anchor when it still
// parses, else from the registry copy.
func (o *Orchestrator) generateBody(ctx context.Context, finding drift.Finding) (string, bool, error) {
	req := generate.Request{
		CodeRef:               finding.Entry.CodeRef,
		Signature:             finding.CurrentSignature,
		PreviousSignatureText: finding.Entry.CodeSignatureText,
		PreviousContent:       o.priorBody(finding.Entry),
	}

	policy := o.opts.Retry
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error) {
			o.logger.Warn("generation attempt failed", map[string]interface{}{
				"id":      finding.Entry.ID,
				"attempt": attempt,
				"error":   err.Error(),
			})
		}
	}

	body, err := policy.Do(ctx, func(ctx context.Context) (string, error) {
		return o.generator.Generate(ctx, req)
	})
	if err == nil {
		return body, false, nil
	}
	if ctx.Err() != nil {
		return "", false, err
	}

	o.logger.Warn("generation exhausted retries, writing placeholder", map[string]interface{}{
		"id":    finding.Entry.ID,
		"error": err.Error(),
	})
	body, err = generate.Placeholder{}.Generate(ctx, req)
	if err != nil {
		return "", false, err
	}
	return body, true, nil
}

// priorBody recovers the documentation being replaced, preferring the
// document's current anchor content over the registry copy so manual
// edits made since the last sync reach the generator.
func (o *Orchestrator) priorBody(entry registry.MapEntry) string {
	data, err := os.ReadFile(paths.Join(o.repoRoot, entry.DocRef.FilePath))
	if err == nil {
		if a, err := anchor.Find(string(data), entry.ID); err == nil && a != nil {
			return a.Content
		}
	}
	return entry.OriginalMarkdownContent
}

// rebindDocRefs refreshes the stored marker line numbers for every
// entry anchored in the file after an injection shifted them. Parse
// failures leave the old line numbers in place.
func (o *Orchestrator) rebindDocRefs(docPath, docFile string) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return
	}
	anchors, err := anchor.Parse(string(data))
	if err != nil {
		return
	}

	byID := make(map[string]anchor.Anchor, len(anchors))
	for _, a := range anchors {
		byID[a.ID] = a
	}

	for _, entry := range o.reg.GetByDocFile(docFile) {
		a, ok := byID[entry.ID]
		if !ok {
			continue
		}
		if a.StartLine == entry.DocRef.StartLine && a.EndLine == entry.DocRef.EndLine {
			continue
		}
		ref := registry.DocRef{FilePath: docFile, StartLine: a.StartLine, EndLine: a.EndLine}
		if err := o.reg.Update(entry.ID, registry.EntryUpdate{DocRef: &ref}); err != nil {
			o.logger.Warn("failed to rebind doc ref", map[string]interface{}{
				"id":    entry.ID,
				"error": err.Error(),
			})
		}
	}
}
