package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"sintesi/internal/drift"
	"sintesi/internal/fix"
	"sintesi/internal/scan"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *drift.Report:
		return formatDriftHuman(v), nil
	case *fix.Summary:
		return formatFixHuman(v), nil
	case *scan.Result:
		return formatScanHuman(v), nil
	case *ValidateResponse:
		return formatValidateHuman(v), nil
	case *RegistryListResponse:
		return formatRegistryListHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatDriftHuman(r *drift.Report) string {
	var b strings.Builder

	b.WriteString("Drift Check\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, f := range r.Findings {
		var icon string
		switch f.Status {
		case drift.StatusUnchanged:
			icon = "✓"
		case drift.StatusDrifted:
			icon = "✗"
		case drift.StatusMissingSymbol:
			icon = "?"
		default:
			icon = "!"
		}
		b.WriteString(fmt.Sprintf("%s %s (%s)\n", icon, f.Entry.ID, f.Entry.CodeRef.String()))
		b.WriteString(fmt.Sprintf("   %s:%d\n", f.Entry.DocRef.FilePath, f.Entry.DocRef.StartLine))
		if f.Status != drift.StatusUnchanged {
			b.WriteString(fmt.Sprintf("   %s", f.Status))
			if f.Detail != "" {
				b.WriteString(": " + f.Detail)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(fmt.Sprintf("\n%d unchanged, %d drifted, %d missing, %d errors\n",
		r.Unchanged, r.Drifted, r.Missing, r.Errors))
	return b.String()
}

func formatFixHuman(s *fix.Summary) string {
	var b strings.Builder

	b.WriteString("Fix Run\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, r := range s.Results {
		var icon string
		switch r.Status {
		case fix.StatusFixed:
			icon = "✓"
		case fix.StatusWouldFix:
			icon = "~"
		case fix.StatusUnchanged:
			icon = "-"
		case fix.StatusMissingSymbol:
			icon = "?"
		default:
			icon = "✗"
		}
		b.WriteString(fmt.Sprintf("%s %s (%s) -> %s", icon, r.EntryID, r.CodeRef, r.Status))
		if r.Placeholder {
			b.WriteString(" [placeholder]")
		}
		b.WriteString("\n")
		if r.Detail != "" {
			b.WriteString("   " + r.Detail + "\n")
		}
	}

	b.WriteString(fmt.Sprintf("\n%d fixed, %d would fix, %d unchanged, %d missing, %d failed\n",
		s.Fixed, s.WouldFix, s.Unchanged, s.Missing, s.Failed))
	return b.String()
}

func formatScanHuman(r *scan.Result) string {
	var b strings.Builder

	b.WriteString("Documentation Scan\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, f := range r.Files {
		b.WriteString(fmt.Sprintf("%s: %d anchors, %d new, %d rebound\n",
			f.Path, f.Anchors, f.Registered, f.Rebound))
		for _, v := range f.Violations {
			b.WriteString("   ! " + v + "\n")
		}
	}

	b.WriteString(fmt.Sprintf("\n%d anchors, %d registered, %d rebound, %d violations\n",
		r.TotalAnchors, r.TotalRegistered, r.TotalRebound, r.TotalViolations))
	return b.String()
}

func formatValidateHuman(r *ValidateResponse) string {
	var b strings.Builder

	b.WriteString("Marker Validation\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(r.Files) == 0 {
		b.WriteString("All documents are well formed.\n")
		return b.String()
	}

	for _, f := range r.Files {
		b.WriteString(f.Path + ":\n")
		for _, v := range f.Violations {
			b.WriteString("  ✗ " + v + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("\n%d violations in %d files\n", r.TotalViolations, len(r.Files)))
	return b.String()
}

func formatRegistryListHuman(r *RegistryListResponse) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Registry (%d entries)\n", len(r.Entries)))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, e := range r.Entries {
		hash := e.CodeSignatureHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		if hash == "" {
			hash = "(unresolved)"
		}
		b.WriteString(fmt.Sprintf("%s\n", e.ID))
		b.WriteString(fmt.Sprintf("   code: %s\n", e.CodeRef.String()))
		b.WriteString(fmt.Sprintf("   doc:  %s:%d-%d\n", e.DocRef.FilePath, e.DocRef.StartLine, e.DocRef.EndLine))
		b.WriteString(fmt.Sprintf("   hash: %s\n", hash))
	}
	return b.String()
}
