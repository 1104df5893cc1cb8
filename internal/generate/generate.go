// Package generate produces replacement documentation bodies for
// drifted anchors.
package generate

import (
	"context"
	"fmt"
	"strings"

	"sintesi/internal/anchor"
	"sintesi/internal/signature"
)

// Request carries everything a generator needs to rewrite one anchor.
type Request struct {
	CodeRef anchor.CodeRef
	// Signature is the current state of the symbol.
	Signature *signature.CodeSignature
	// PreviousSignatureText is the signature the body was last written
	// against. May be empty for anchors that never resolved.
	PreviousSignatureText string
	// PreviousContent is the anchor body being replaced.
	PreviousContent string
	// SurroundingDoc gives the generator the rest of the document for
	// tone and context. May be empty.
	SurroundingDoc string
}

// Generator produces a new markdown body for an anchor. The returned
// text excludes the markers; the caller injects it between them.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Placeholder is a deterministic generator used in dry runs, tests,
// and as the fallback when no API key is configured. The output names
// the symbol and its current signature so a human can finish the job.
type Placeholder struct{}

func (Placeholder) Generate(_ context.Context, req Request) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Documentation for `%s` is out of date with the code.\n\n", req.CodeRef.SymbolName)
	if req.Signature != nil {
		fmt.Fprintf(&b, "Current signature:\n\n```\n%s\n```\n\n", strings.TrimSpace(req.Signature.SignatureText))
	}
	fmt.Fprintf(&b, "<!-- TODO: describe the behavior of %s -->", req.CodeRef.String())
	return b.String(), nil
}
