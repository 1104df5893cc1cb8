// Package scan walks a documentation tree, validates anchor markers,
// and binds anchors that are not yet in the registry.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"sintesi/internal/anchor"
	"sintesi/internal/errors"
	"sintesi/internal/logging"
	"sintesi/internal/paths"
	"sintesi/internal/registry"
	"sintesi/internal/signature"
)

// FileResult is the outcome of scanning one markdown file.
type FileResult struct {
	// Path is relative to the repo root, slash-separated.
	Path       string   `json:"path"`
	Anchors    int      `json:"anchors"`
	Registered int      `json:"registered"`
	Rebound    int      `json:"rebound"`
	Violations []string `json:"violations,omitempty"`
}

// Result aggregates a whole scan.
type Result struct {
	Files []FileResult `json:"files"`

	TotalAnchors    int `json:"totalAnchors"`
	TotalRegistered int `json:"totalRegistered"`
	TotalRebound    int `json:"totalRebound"`
	TotalViolations int `json:"totalViolations"`
}

// Scanner binds documentation anchors to the registry.
type Scanner struct {
	reg      *registry.MapRegistry
	provider signature.Provider
	repoRoot string
	logger   *logging.Logger
}

// NewScanner creates a scanner rooted at the repository.
func NewScanner(reg *registry.MapRegistry, provider signature.Provider, repoRoot string, logger *logging.Logger) *Scanner {
	return &Scanner{reg: reg, provider: provider, repoRoot: repoRoot, logger: logger}
}

// Scan walks docRoot for markdown files and processes each one.
// Marker violations are scoped to their file and never abort the walk.
// The registry is saved once at the end when anything changed.
func (s *Scanner) Scan(ctx context.Context, docRoot string, exclude []string) (*Result, error) {
	result := &Result{}

	err := filepath.Walk(docRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") && path != docRoot {
				return filepath.SkipDir
			}
			for _, ex := range exclude {
				if name == ex {
					return filepath.SkipDir
				}
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}

		fr := s.scanFile(ctx, path)
		result.Files = append(result.Files, fr)
		result.TotalAnchors += fr.Anchors
		result.TotalRegistered += fr.Registered
		result.TotalRebound += fr.Rebound
		result.TotalViolations += len(fr.Violations)
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.InternalError, "documentation scan failed", err)
	}

	if s.reg.Modified() {
		if err := s.reg.Save(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Scanner) scanFile(ctx context.Context, path string) FileResult {
	rel := s.relPath(path)
	fr := FileResult{Path: rel}

	data, err := os.ReadFile(path)
	if err != nil {
		fr.Violations = append(fr.Violations, "failed to read file: "+err.Error())
		return fr
	}
	content := string(data)

	// Violations are scoped to this file; a broken file is reported and
	// its anchors left unbound.
	if violations := anchor.Validate(content); len(violations) > 0 {
		fr.Violations = violations
		return fr
	}

	anchors, err := anchor.Parse(content)
	if err != nil {
		fr.Violations = append(fr.Violations, err.Error())
		return fr
	}
	fr.Anchors = len(anchors)

	for _, a := range anchors {
		if existing, ok := s.reg.GetByID(a.ID); ok {
			if s.rebind(existing, rel, a) {
				fr.Rebound++
			}
			continue
		}
		if s.register(ctx, rel, a) {
			fr.Registered++
		} else {
			fr.Violations = append(fr.Violations,
				"failed to register anchor id="+a.ID)
		}
	}
	return fr
}

// rebind refreshes the doc location of a known anchor when it moved.
func (s *Scanner) rebind(entry registry.MapEntry, rel string, a anchor.Anchor) bool {
	if entry.DocRef.FilePath == rel &&
		entry.DocRef.StartLine == a.StartLine &&
		entry.DocRef.EndLine == a.EndLine {
		return false
	}
	ref := registry.DocRef{FilePath: rel, StartLine: a.StartLine, EndLine: a.EndLine}
	if err := s.reg.Update(a.ID, registry.EntryUpdate{DocRef: &ref}); err != nil {
		s.logger.Warn("failed to rebind anchor", map[string]interface{}{
			"id":    a.ID,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// register binds a new anchor. An unresolvable symbol still gets an
// entry, with an empty hash, so the check command can flag it.
func (s *Scanner) register(ctx context.Context, rel string, a anchor.Anchor) bool {
	entry := registry.MapEntry{
		ID:                      a.ID,
		CodeRef:                 a.CodeRef,
		DocRef:                  registry.DocRef{FilePath: rel, StartLine: a.StartLine, EndLine: a.EndLine},
		OriginalMarkdownContent: a.Content,
	}

	sig, err := s.provider.Resolve(ctx, a.CodeRef)
	if err != nil {
		if !errors.IsCode(err, errors.SymbolNotFound) {
			s.logger.Warn("failed to resolve symbol", map[string]interface{}{
				"id":      a.ID,
				"codeRef": a.CodeRef.String(),
				"error":   err.Error(),
			})
			return false
		}
		s.logger.Warn("registering anchor with unresolved symbol", map[string]interface{}{
			"id":      a.ID,
			"codeRef": a.CodeRef.String(),
		})
	} else {
		entry.CodeSignatureHash = sig.Hash()
		entry.CodeSignatureText = sig.SignatureText
	}

	if err := s.reg.Add(entry); err != nil {
		s.logger.Warn("failed to add registry entry", map[string]interface{}{
			"id":    a.ID,
			"error": err.Error(),
		})
		return false
	}
	return true
}

func (s *Scanner) relPath(path string) string {
	if rel, err := filepath.Rel(s.repoRoot, path); err == nil {
		return paths.Normalize(rel)
	}
	return paths.Normalize(path)
}
