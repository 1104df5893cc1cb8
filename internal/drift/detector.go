// Package drift compares registered signature hashes against the
// current state of the code and classifies every registry entry.
package drift

import (
	"context"

	"sintesi/internal/errors"
	"sintesi/internal/logging"
	"sintesi/internal/registry"
	"sintesi/internal/signature"
)

// Status classifies one registry entry after a check.
type Status string

const (
	// StatusUnchanged means the stored hash matches the current code.
	StatusUnchanged Status = "unchanged"
	// StatusDrifted means the symbol's signature changed since the
	// entry was last updated.
	StatusDrifted Status = "drifted"
	// StatusMissingSymbol means the code_ref no longer resolves; the
	// entry is stale and needs manual attention.
	StatusMissingSymbol Status = "missing_symbol"
	// StatusError means resolution failed for another reason.
	StatusError Status = "error"
)

// Finding is the result of checking one entry.
type Finding struct {
	Entry            registry.MapEntry        `json:"entry"`
	Status           Status                   `json:"status"`
	CurrentHash      string                   `json:"currentHash,omitempty"`
	CurrentSignature *signature.CodeSignature `json:"currentSignature,omitempty"`
	Detail           string                   `json:"detail,omitempty"`
}

// Report aggregates the findings for a whole registry, in entry order.
type Report struct {
	Findings []Finding `json:"findings"`

	Unchanged int `json:"unchanged"`
	Drifted   int `json:"drifted"`
	Missing   int `json:"missing"`
	Errors    int `json:"errors"`
}

// Clean reports whether nothing drifted and nothing went missing.
func (r *Report) Clean() bool {
	return r.Drifted == 0 && r.Missing == 0 && r.Errors == 0
}

// Detector runs drift checks against a signature provider.
type Detector struct {
	provider signature.Provider
	logger   *logging.Logger
}

// NewDetector creates a detector using the given provider.
func NewDetector(provider signature.Provider, logger *logging.Logger) *Detector {
	return &Detector{provider: provider, logger: logger}
}

// Check classifies a single entry.
func (d *Detector) Check(ctx context.Context, entry registry.MapEntry) Finding {
	sig, err := d.provider.Resolve(ctx, entry.CodeRef)
	if err != nil {
		status := StatusError
		if errors.IsCode(err, errors.SymbolNotFound) {
			status = StatusMissingSymbol
		}
		return Finding{Entry: entry, Status: status, Detail: err.Error()}
	}

	hash := sig.Hash()
	finding := Finding{
		Entry:            entry,
		CurrentHash:      hash,
		CurrentSignature: sig,
	}
	if hash == entry.CodeSignatureHash {
		finding.Status = StatusUnchanged
	} else {
		finding.Status = StatusDrifted
	}
	return finding
}

// Detect checks every entry and returns a report preserving entry order.
func (d *Detector) Detect(ctx context.Context, entries []registry.MapEntry) *Report {
	report := &Report{Findings: make([]Finding, 0, len(entries))}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			report.Findings = append(report.Findings, Finding{
				Entry:  entry,
				Status: StatusError,
				Detail: err.Error(),
			})
			report.Errors++
			continue
		}

		finding := d.Check(ctx, entry)
		report.Findings = append(report.Findings, finding)

		switch finding.Status {
		case StatusUnchanged:
			report.Unchanged++
		case StatusDrifted:
			report.Drifted++
			d.logger.Debug("signature drift", map[string]interface{}{
				"id":      entry.ID,
				"codeRef": entry.CodeRef.String(),
			})
		case StatusMissingSymbol:
			report.Missing++
			d.logger.Warn("code_ref no longer resolves", map[string]interface{}{
				"id":      entry.ID,
				"codeRef": entry.CodeRef.String(),
			})
		case StatusError:
			report.Errors++
		}
	}
	return report
}
