package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sintesi/internal/anchor"
	"sintesi/internal/errors"
	"sintesi/internal/paths"
	"sintesi/internal/registry"
)

var (
	insertSection       string
	insertCreateSection bool
	insertTitle         string
	insertBody          string
	insertID            string
)

var insertCmd = &cobra.Command{
	Use:   "insert <doc-file> <code-ref>",
	Short: "Insert a new documentation anchor",
	Long: `Insert a fresh anchor block for a code symbol into a document and
register it.

The block lands at the top of the target section, under a generated
sub-heading. The code reference has the form path#symbol, for example
src/auth.go#Login. Without --create-section the target section must
already exist.

Examples:
  sintesi insert docs/api.md src/auth.go#Login
  sintesi insert docs/api.md src/auth.go#Login --section "Endpoints" --create-section
  sintesi insert docs/api.md src/auth.go#Login --body "Logs a user in."`,
	Args: cobra.ExactArgs(2),
	Run:  runInsert,
}

func init() {
	insertCmd.Flags().StringVar(&insertSection, "section", anchor.DefaultSectionHeading,
		"Section heading to insert under")
	insertCmd.Flags().BoolVar(&insertCreateSection, "create-section", false,
		"Append the section when it does not exist")
	insertCmd.Flags().StringVar(&insertTitle, "title", "", "Sub-heading title (default: symbol name)")
	insertCmd.Flags().StringVar(&insertBody, "body", "", "Initial anchor body")
	insertCmd.Flags().StringVar(&insertID, "id", "", "Anchor id (default: generated)")
	rootCmd.AddCommand(insertCmd)
}

func runInsert(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	ref, err := anchor.ParseCodeRef(args[1])
	if err != nil {
		fail(err)
	}

	docFile := paths.Normalize(args[0])
	docPath := args[0]
	if !filepath.IsAbs(docPath) {
		docPath = filepath.Join(a.repoRoot, filepath.FromSlash(docFile))
	}

	result, err := anchor.InsertFile(docPath, ref, anchor.InsertOptions{
		SectionHeading: insertSection,
		CreateSection:  insertCreateSection,
		ID:             insertID,
		Title:          insertTitle,
		Body:           insertBody,
	})
	if err != nil {
		fail(err)
	}

	entry := registry.MapEntry{
		ID:      result.ID,
		CodeRef: ref,
		DocRef:  registry.DocRef{FilePath: docFile, StartLine: result.StartLine, EndLine: result.EndLine},
	}
	if sig, err := a.provider.Resolve(context.Background(), ref); err == nil {
		entry.CodeSignatureHash = sig.Hash()
		entry.CodeSignatureText = sig.SignatureText
	} else if !errors.IsCode(err, errors.SymbolNotFound) {
		fail(err)
	} else {
		a.logger.Warn("symbol not resolved, anchor registered without a hash", map[string]interface{}{
			"codeRef": ref.String(),
		})
	}

	if err := a.reg.Add(entry); err != nil {
		fail(err)
	}
	if err := a.reg.Save(); err != nil {
		fail(err)
	}

	fmt.Printf("Inserted anchor %s into %s (lines %d-%d)\n",
		result.ID, docFile, result.StartLine, result.EndLine)
}
