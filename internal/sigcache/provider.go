package sigcache

import (
	"context"
	"os"

	"sintesi/internal/anchor"
	"sintesi/internal/paths"
	"sintesi/internal/signature"
)

// CachedProvider wraps a signature provider with the cache. Resolution
// falls through to the inner provider on a miss; cache failures degrade
// to uncached resolution rather than failing the lookup.
type CachedProvider struct {
	inner    signature.Provider
	cache    *Cache
	repoRoot string
}

// NewCachedProvider wraps inner with cache lookups keyed by file state.
func NewCachedProvider(inner signature.Provider, cache *Cache, repoRoot string) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache, repoRoot: repoRoot}
}

func (p *CachedProvider) Resolve(ctx context.Context, ref anchor.CodeRef) (*signature.CodeSignature, error) {
	info, err := os.Stat(paths.Join(p.repoRoot, ref.FilePath))
	if err != nil {
		// Let the inner provider produce the canonical missing-file error.
		return p.inner.Resolve(ctx, ref)
	}
	mtimeNS := info.ModTime().UnixNano()
	size := info.Size()

	if sig, ok, err := p.cache.Get(ref.FilePath, ref.SymbolName, mtimeNS, size); err == nil && ok {
		return sig, nil
	} else if err != nil {
		p.cache.logger.Warn("signature cache lookup failed", map[string]interface{}{
			"file":  ref.FilePath,
			"error": err.Error(),
		})
	}

	sig, err := p.inner.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Put(ref.FilePath, sig, mtimeNS, size); err != nil {
		p.cache.logger.Warn("signature cache write failed", map[string]interface{}{
			"file":  ref.FilePath,
			"error": err.Error(),
		})
	}
	return sig, nil
}
