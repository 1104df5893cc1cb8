//go:build cgo

package signature

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"sintesi/internal/anchor"
	"sintesi/internal/errors"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveGoFunction(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/server.go", `package server

import "net/http"

// HandleRequest serves one request.
func HandleRequest(w http.ResponseWriter, r *http.Request) error {
	return nil
}
`)

	p := NewProvider(root)
	sig, err := p.Resolve(context.Background(), anchor.CodeRef{FilePath: "src/server.go", SymbolName: "HandleRequest"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if sig.SymbolName != "HandleRequest" || sig.SymbolType != SymbolFunction {
		t.Errorf("unexpected signature: %+v", sig)
	}
	if !sig.IsExported {
		t.Error("uppercase Go symbol should be exported")
	}
	if sig.SignatureText == "" {
		t.Error("signature text should not be empty")
	}
}

func TestResolveConcurrent(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/a.go", `package a

func A(x int) int {
	return x
}
`)
	writeSource(t, root, "src/b.py", `def b(x):
    return x
`)

	p := NewProvider(root)
	refs := []anchor.CodeRef{
		{FilePath: "src/a.go", SymbolName: "A"},
		{FilePath: "src/b.py", SymbolName: "b"},
	}

	errs := make(chan error, 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(ref anchor.CodeRef) {
			defer wg.Done()
			_, err := p.Resolve(context.Background(), ref)
			errs <- err
		}(refs[i%len(refs)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Resolve failed: %v", err)
		}
	}
}

func TestResolveBodyChangeKeepsHash(t *testing.T) {
	root := t.TempDir()
	const rel = "src/calc.go"
	writeSource(t, root, rel, `package calc

func Add(a, b int) int {
	return a + b
}
`)
	p := NewProvider(root)
	ref := anchor.CodeRef{FilePath: rel, SymbolName: "Add"}

	before, err := p.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}

	writeSource(t, root, rel, `package calc

func Add(a, b int) int {
	sum := a + b
	return sum
}
`)
	after, err := p.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}

	if before.Hash() != after.Hash() {
		t.Error("a body-only change must not change the signature hash")
	}
}

func TestResolveParameterChangeChangesHash(t *testing.T) {
	root := t.TempDir()
	const rel = "src/calc.go"
	writeSource(t, root, rel, "package calc\n\nfunc Add(a, b int) int { return a + b }\n")
	p := NewProvider(root)
	ref := anchor.CodeRef{FilePath: rel, SymbolName: "Add"}

	before, err := p.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}

	writeSource(t, root, rel, "package calc\n\nfunc Add(a, b, c int) int { return a + b + c }\n")
	after, err := p.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}

	if before.Hash() == after.Hash() {
		t.Error("a parameter change must change the signature hash")
	}
}

func TestResolveTypeScriptFunction(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/config.ts", `export function parseConfig(raw: string): Config {
  return JSON.parse(raw);
}
`)

	p := NewProvider(root)
	sig, err := p.Resolve(context.Background(), anchor.CodeRef{FilePath: "src/config.ts", SymbolName: "parseConfig"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if sig.SymbolType != SymbolFunction {
		t.Errorf("symbol type = %v, want function", sig.SymbolType)
	}
}

func TestResolvePythonClass(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "lib/store.py", `class Store:
    def __init__(self):
        self.items = []
`)

	p := NewProvider(root)
	sig, err := p.Resolve(context.Background(), anchor.CodeRef{FilePath: "lib/store.py", SymbolName: "Store"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if sig.SymbolType != SymbolClass {
		t.Errorf("symbol type = %v, want class", sig.SymbolType)
	}
	if !sig.IsExported {
		t.Error("Python name without underscore prefix should be exported")
	}
}

func TestResolveMissingSymbol(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/a.go", "package a\n\nfunc Present() {}\n")

	p := NewProvider(root)
	_, err := p.Resolve(context.Background(), anchor.CodeRef{FilePath: "src/a.go", SymbolName: "Gone"})
	if !errors.IsCode(err, errors.SymbolNotFound) {
		t.Errorf("expected SymbolNotFound, got %v", err)
	}
}

func TestResolveMissingFile(t *testing.T) {
	p := NewProvider(t.TempDir())
	_, err := p.Resolve(context.Background(), anchor.CodeRef{FilePath: "src/nope.go", SymbolName: "F"})
	if !errors.IsCode(err, errors.SymbolNotFound) {
		t.Errorf("expected SymbolNotFound for missing file, got %v", err)
	}
}

func TestResolveUnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/main.c", "int main(void) { return 0; }\n")

	p := NewProvider(root)
	_, err := p.Resolve(context.Background(), anchor.CodeRef{FilePath: "src/main.c", SymbolName: "main"})
	if !errors.IsCode(err, errors.SymbolNotFound) {
		t.Errorf("expected SymbolNotFound for unsupported language, got %v", err)
	}
}
