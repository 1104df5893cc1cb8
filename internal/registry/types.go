// Package registry maintains the durable mapping between documentation
// anchors and the code symbols they describe. The backing file is
// doctype-map.json at the repository root.
package registry

import "sintesi/internal/anchor"

// RegistryFileName is the canonical backing file, relative to the repo root.
const RegistryFileName = "doctype-map.json"

// CurrentVersion is written into new registry files.
const CurrentVersion = "1.0.0"

// DocRef locates an anchor inside a documentation file. Lines are
// 1-indexed and refer to the marker lines themselves.
type DocRef struct {
	FilePath  string `json:"filePath"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// MapEntry is one anchor's registry record.
type MapEntry struct {
	ID                string         `json:"id"`
	CodeRef           anchor.CodeRef `json:"codeRef"`
	CodeSignatureHash string         `json:"codeSignatureHash"`
	CodeSignatureText string         `json:"codeSignatureText,omitempty"`
	DocRef            DocRef         `json:"docRef"`
	// OriginalMarkdownContent preserves the anchor body as last written,
	// so a failed rewrite can be rolled back by hand.
	OriginalMarkdownContent string `json:"originalMarkdownContent,omitempty"`
	// LastUpdated is a unix timestamp in milliseconds.
	LastUpdated int64 `json:"lastUpdated"`
}

// Registry is the on-disk shape of the map file.
type Registry struct {
	Version string     `json:"version"`
	Entries []MapEntry `json:"entries"`
}

// EntryUpdate carries a partial update for an entry. Nil fields are left
// untouched. The entry id itself is immutable.
type EntryUpdate struct {
	CodeRef                 *anchor.CodeRef
	CodeSignatureHash       *string
	CodeSignatureText       *string
	DocRef                  *DocRef
	OriginalMarkdownContent *string
}
