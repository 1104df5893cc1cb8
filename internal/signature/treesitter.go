//go:build cgo

package signature

import (
	"context"
	"os"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"sintesi/internal/anchor"
	"sintesi/internal/errors"
	"sintesi/internal/paths"
)

// TreeSitterProvider resolves symbols by parsing source files with
// tree-sitter grammars. Each Resolve uses its own parser; tree-sitter
// parsers are not safe for concurrent use.
type TreeSitterProvider struct {
	repoRoot string
}

// NewProvider creates a signature provider rooted at the repository.
func NewProvider(repoRoot string) *TreeSitterProvider {
	return &TreeSitterProvider{repoRoot: repoRoot}
}

// Available reports whether symbol resolution is compiled in.
func Available() bool {
	return true
}

// Resolve parses the referenced file and extracts the named symbol's
// signature.
func (p *TreeSitterProvider) Resolve(ctx context.Context, ref anchor.CodeRef) (*CodeSignature, error) {
	lang, ok := LanguageFromPath(ref.FilePath)
	if !ok {
		return nil, errors.Newf(errors.SymbolNotFound,
			"unsupported source language for %s", ref.FilePath)
	}

	path := paths.Join(p.repoRoot, ref.FilePath)
	source, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.SymbolNotFound, "source file %s does not exist", ref.FilePath)
		}
		return nil, errors.New(errors.InternalError, "failed to read source file", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammarFor(lang))
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to parse source file", err)
	}
	defer tree.Close()

	node := findDeclaration(tree.RootNode(), source, lang, ref.SymbolName)
	if node == nil {
		return nil, errors.Newf(errors.SymbolNotFound,
			"symbol %q not found in %s", ref.SymbolName, ref.FilePath)
	}

	sig := &CodeSignature{
		SymbolName:    ref.SymbolName,
		SymbolType:    classify(node.Type()),
		SignatureText: declarationText(node, source),
	}
	sig.IsExported = isExported(lang, ref.SymbolName, sig.SignatureText)
	return sig, nil
}

func grammarFor(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	default:
		return nil
	}
}

// declarationNodeTypes lists the node types that can carry a named
// declaration per language.
func declarationNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{
			"function_declaration",
			"method_declaration",
			"type_spec",
			"const_spec",
			"var_spec",
		}
	case LangJavaScript:
		return []string{
			"function_declaration",
			"generator_function_declaration",
			"class_declaration",
			"method_definition",
			"lexical_declaration",
			"variable_declaration",
		}
	case LangTypeScript, LangTSX:
		return []string{
			"function_declaration",
			"generator_function_declaration",
			"class_declaration",
			"method_definition",
			"interface_declaration",
			"type_alias_declaration",
			"enum_declaration",
			"lexical_declaration",
			"variable_declaration",
		}
	case LangPython:
		return []string{
			"function_definition",
			"class_definition",
		}
	case LangRust:
		return []string{
			"function_item",
			"struct_item",
			"enum_item",
			"trait_item",
			"impl_item",
			"const_item",
			"static_item",
			"type_item",
		}
	default:
		return nil
	}
}

// findDeclaration walks the AST for a declaration whose name matches.
func findDeclaration(root *sitter.Node, source []byte, lang Language, symbol string) *sitter.Node {
	types := declarationNodeTypes(lang)

	var found *sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || found != nil {
			return
		}
		if containsType(types, node.Type()) && declarationName(node, source) == symbol {
			found = node
			return
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}
	walk(root)
	return found
}

// declarationName extracts the declared name from a node.
func declarationName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return string(source[name.StartByte():name.EndByte()])
	}
	// const/var/lexical declarations nest the name one level down.
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "variable_declarator", "const_spec", "var_spec":
			if name := child.ChildByFieldName("name"); name != nil {
				return string(source[name.StartByte():name.EndByte()])
			}
			if child.Type() == "identifier" {
				return string(source[child.StartByte():child.EndByte()])
			}
		}
	}
	return ""
}

// declarationText returns the declaration without its body: everything
// from the node start up to the body child, or the whole node when it
// has no body.
func declarationText(node *sitter.Node, source []byte) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	text := string(source[node.StartByte():end])
	return strings.TrimSpace(text)
}

func classify(nodeType string) SymbolType {
	switch nodeType {
	case "method_declaration", "method_definition":
		return SymbolMethod
	case "class_declaration", "class_definition":
		return SymbolClass
	case "interface_declaration", "trait_item":
		return SymbolInterface
	case "type_spec", "type_alias_declaration", "type_item", "struct_item", "enum_item", "enum_declaration", "impl_item":
		return SymbolType_
	case "const_spec", "const_item", "static_item":
		return SymbolConstant
	case "lexical_declaration", "variable_declaration", "var_spec":
		return SymbolVariable
	default:
		return SymbolFunction
	}
}

// isExported applies per-language visibility conventions.
func isExported(lang Language, symbol, signatureText string) bool {
	switch lang {
	case LangGo:
		for _, r := range symbol {
			return unicode.IsUpper(r)
		}
		return false
	case LangPython:
		return !strings.HasPrefix(symbol, "_")
	case LangRust:
		return strings.HasPrefix(signatureText, "pub ") || strings.HasPrefix(signatureText, "pub(")
	default:
		// JS and TS visibility is module-level; treat export keyword as
		// the signal when present in the captured text.
		return strings.Contains(signatureText, "export ") || !strings.HasPrefix(symbol, "_")
	}
}

func containsType(types []string, t string) bool {
	for _, s := range types {
		if s == t {
			return true
		}
	}
	return false
}
