//go:build !cgo

package signature

import (
	"context"

	"sintesi/internal/anchor"
	"sintesi/internal/errors"
)

// TreeSitterProvider resolves symbols by parsing source files.
// This is a stub for non-CGO builds.
type TreeSitterProvider struct{}

// NewProvider creates a signature provider rooted at the repository.
// Resolution is unavailable without CGO.
func NewProvider(repoRoot string) *TreeSitterProvider {
	return &TreeSitterProvider{}
}

// Available reports whether symbol resolution is compiled in.
func Available() bool {
	return false
}

func (p *TreeSitterProvider) Resolve(ctx context.Context, ref anchor.CodeRef) (*CodeSignature, error) {
	return nil, errors.Newf(errors.InternalError, "symbol resolution requires CGO (tree-sitter)")
}
