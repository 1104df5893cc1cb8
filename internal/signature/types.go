// Package signature resolves code symbols to structural signatures and
// hashes them for drift comparison. A signature captures what a symbol
// promises to callers; body changes that keep the declaration intact do
// not change the hash.
package signature

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"sintesi/internal/anchor"
)

// SymbolType classifies a resolved symbol.
type SymbolType string

const (
	SymbolFunction  SymbolType = "function"
	SymbolMethod    SymbolType = "method"
	SymbolType_     SymbolType = "type"
	SymbolClass     SymbolType = "class"
	SymbolInterface SymbolType = "interface"
	SymbolConstant  SymbolType = "constant"
	SymbolVariable  SymbolType = "variable"
)

// CodeSignature is the structural signature of one symbol.
type CodeSignature struct {
	SymbolName    string     `json:"symbolName"`
	SymbolType    SymbolType `json:"symbolType"`
	SignatureText string     `json:"signatureText"`
	IsExported    bool       `json:"isExported"`
}

// Hash returns the stable hex digest used for drift comparison.
// Whitespace around the signature text is not significant.
func (s *CodeSignature) Hash() string {
	payload := fmt.Sprintf("%s:%s:%s", s.SymbolName, s.SymbolType, strings.TrimSpace(s.SignatureText))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Provider resolves a code reference to the current signature of its
// symbol. A missing symbol is reported with the SymbolNotFound error
// code so callers can distinguish it from resolution failures.
type Provider interface {
	Resolve(ctx context.Context, ref anchor.CodeRef) (*CodeSignature, error)
}

// Language identifies a grammar supported by the resolver.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// LanguageFromPath maps a file path to its language by extension.
func LanguageFromPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}
