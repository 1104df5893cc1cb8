package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sintesi/internal/anchor"
	"sintesi/internal/paths"
)

// ValidateResponse lists marker violations per file.
type ValidateResponse struct {
	Files           []ValidateFile `json:"files"`
	TotalViolations int            `json:"totalViolations"`
}

// ValidateFile holds one file's violations.
type ValidateFile struct {
	Path       string   `json:"path"`
	Violations []string `json:"violations"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate anchor markers without touching the registry",
	Long: `Check markdown files for malformed anchor markers: duplicate ids,
nested anchors with the same id, orphaned end markers, unclosed
anchors, and invalid code_ref attributes.

With no arguments the configured documentation root is checked.
Violations are collected per file; the command exits non-zero when any
are found.

Examples:
  sintesi validate
  sintesi validate docs/api.md docs/internals.md`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	targets := args
	if len(targets) == 0 {
		targets = []string{a.cfg.Docs.Root}
	}

	resp := &ValidateResponse{}
	for _, target := range targets {
		path := target
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.repoRoot, filepath.FromSlash(target))
		}
		if err := validatePath(a, path, resp); err != nil {
			fail(err)
		}
	}

	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		fail(err)
	}
	fmt.Println(out)

	if resp.TotalViolations > 0 {
		os.Exit(1)
	}
}

func validatePath(a *app, path string, resp *ValidateResponse) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		validateFile(a, path, resp)
		return nil
	}

	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") && p != path {
				return filepath.SkipDir
			}
			for _, ex := range a.cfg.Docs.Exclude {
				if name == ex {
					return filepath.SkipDir
				}
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".md" || ext == ".markdown" {
			validateFile(a, p, resp)
		}
		return nil
	})
}

func validateFile(a *app, path string, resp *ValidateResponse) {
	rel := path
	if r, err := filepath.Rel(a.repoRoot, path); err == nil {
		rel = paths.Normalize(r)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		resp.Files = append(resp.Files, ValidateFile{Path: rel, Violations: []string{err.Error()}})
		resp.TotalViolations++
		return
	}

	violations := anchor.Validate(string(data))
	if len(violations) == 0 {
		return
	}
	resp.Files = append(resp.Files, ValidateFile{Path: rel, Violations: violations})
	resp.TotalViolations += len(violations)
}
