// Package anchor parses, validates, and rewrites doctype anchors in
// markdown documents. Anchors are HTML-comment pairs that bind a span of
// documentation to one code symbol:
//
//	<!-- doctype:start id="uuid" code_ref="src/file.ts#SymbolName" -->
//	Documentation content goes here...
//	<!-- doctype:end id="uuid" -->
//
// Inject and Insert are the only two code paths that may mutate a
// document's bytes; both operate on in-memory strings, with thin file
// wrappers around them.
package anchor

import (
	"strings"

	"sintesi/internal/errors"
)

// CodeRef identifies the code symbol an anchor is bound to.
type CodeRef struct {
	FilePath   string `json:"filePath"`
	SymbolName string `json:"symbolName"`
}

// ParseCodeRef parses a "file_path#symbol_name" reference.
// The raw string must contain exactly one '#' with non-empty halves.
func ParseCodeRef(raw string) (CodeRef, error) {
	parts := strings.Split(raw, "#")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return CodeRef{}, errors.Newf(errors.ParseError,
			"invalid code_ref format: %q, expected \"file_path#symbol_name\"", raw)
	}
	return CodeRef{FilePath: parts[0], SymbolName: parts[1]}, nil
}

// String renders the reference back to its "file_path#symbol_name" form.
func (r CodeRef) String() string {
	return r.FilePath + "#" + r.SymbolName
}

// Anchor is a parsed anchor span. Line numbers are 1-indexed and refer to
// the marker lines themselves; Content is exactly the lines strictly
// between the markers.
type Anchor struct {
	ID        string
	CodeRef   CodeRef
	StartLine int
	EndLine   int
	Content   string
}
