package fix

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sintesi/internal/anchor"
	"sintesi/internal/drift"
	"sintesi/internal/errors"
	"sintesi/internal/generate"
	"sintesi/internal/logging"
	"sintesi/internal/registry"
	"sintesi/internal/signature"
)

// tableProvider resolves from a fixed symbol table.
type tableProvider struct {
	sigs map[string]*signature.CodeSignature
}

func (p *tableProvider) Resolve(_ context.Context, ref anchor.CodeRef) (*signature.CodeSignature, error) {
	sig, ok := p.sigs[ref.String()]
	if !ok {
		return nil, errors.Newf(errors.SymbolNotFound, "symbol %q not found in %s", ref.SymbolName, ref.FilePath)
	}
	return sig, nil
}

// scriptedGenerator fails a set number of times before succeeding and
// records the last request it saw.
type scriptedGenerator struct {
	failures int32
	body     string
	calls    int32

	mu      sync.Mutex
	lastReq generate.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req generate.Request) (string, error) {
	g.mu.Lock()
	g.lastReq = req
	g.mu.Unlock()

	n := atomic.AddInt32(&g.calls, 1)
	if n <= atomic.LoadInt32(&g.failures) {
		return "", errors.Newf(errors.GenerationError, "scripted failure %d", n)
	}
	return g.body, nil
}

func (g *scriptedGenerator) last() generate.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastReq
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
}

func noDelayRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: func(int) time.Duration { return 0 }}
}

// fixture writes a doc with one anchor and registers it. The registry
// hash matches staleSig, the provider returns currentSig.
type fixture struct {
	repoRoot string
	docFile  string
	reg      *registry.MapRegistry
	store    *registry.MemStore
	provider *tableProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repoRoot: t.TempDir(),
		docFile:  "docs/api.md",
		store:    registry.NewMemStore(),
		provider: &tableProvider{sigs: map[string]*signature.CodeSignature{}},
	}
	reg, err := registry.Load(f.store)
	if err != nil {
		t.Fatal(err)
	}
	f.reg = reg
	return f
}

func (f *fixture) docPath() string {
	return filepath.Join(f.repoRoot, filepath.FromSlash(f.docFile))
}

// addAnchor appends an anchor block to the doc and registers it.
func (f *fixture) addAnchor(t *testing.T, id string, ref anchor.CodeRef, registeredHash, body string) {
	t.Helper()
	path := f.docPath()
	existing := ""
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	}
	content := existing +
		anchor.StartMarker(id, ref) + "\n" +
		body + "\n" +
		anchor.EndMarker(id) + "\n"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := anchor.Find(content, id)
	if err != nil || a == nil {
		t.Fatalf("fixture anchor %q not parseable: %v", id, err)
	}
	err = f.reg.Add(registry.MapEntry{
		ID:                      id,
		CodeRef:                 ref,
		CodeSignatureHash:       registeredHash,
		DocRef:                  registry.DocRef{FilePath: f.docFile, StartLine: a.StartLine, EndLine: a.EndLine},
		OriginalMarkdownContent: body,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) orchestrator(gen generate.Generator, opts Options) *Orchestrator {
	detector := drift.NewDetector(f.provider, testLogger())
	return NewOrchestrator(f.reg, detector, gen, f.repoRoot, testLogger(), opts)
}

func TestFixRewritesDriftedAnchor(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/server.go", SymbolName: "Handle"}
	current := &signature.CodeSignature{SymbolName: "Handle", SymbolType: signature.SymbolFunction, SignatureText: "func Handle(ctx context.Context) error"}
	f.provider.sigs[ref.String()] = current
	f.addAnchor(t, "a1", ref, "stale-hash", "Old description.")

	gen := &scriptedGenerator{body: "Fresh description of Handle."}
	summary, err := f.orchestrator(gen, Options{Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}

	if summary.Fixed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Results[0].Status != StatusFixed || summary.Results[0].Placeholder {
		t.Errorf("unexpected result: %+v", summary.Results[0])
	}

	// The document carries the new body between the original markers.
	data, _ := os.ReadFile(f.docPath())
	a, err := anchor.Find(string(data), "a1")
	if err != nil || a == nil {
		t.Fatalf("anchor lost after fix: %v", err)
	}
	if a.Content != "Fresh description of Handle." {
		t.Errorf("doc body = %q", a.Content)
	}

	// The registry carries the new hash and content, and was saved.
	entry, _ := f.reg.GetByID("a1")
	if entry.CodeSignatureHash != current.Hash() {
		t.Errorf("registry hash = %q, want %q", entry.CodeSignatureHash, current.Hash())
	}
	if entry.OriginalMarkdownContent != "Fresh description of Handle." {
		t.Errorf("registry content = %q", entry.OriginalMarkdownContent)
	}
	if entry.CodeSignatureText != current.SignatureText {
		t.Errorf("registry signature text = %q", entry.CodeSignatureText)
	}
	if f.reg.Modified() {
		t.Error("registry should have been saved after the fix")
	}
	if data, err := f.store.Read(); err != nil || !strings.Contains(string(data), current.Hash()) {
		t.Error("saved registry should contain the new hash")
	}
}

func TestFixUnchangedEntryUntouched(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "Stable"}
	sig := &signature.CodeSignature{SymbolName: "Stable", SymbolType: signature.SymbolFunction, SignatureText: "func Stable()"}
	f.provider.sigs[ref.String()] = sig
	f.addAnchor(t, "a1", ref, sig.Hash(), "Still accurate.")

	before, _ := os.ReadFile(f.docPath())
	gen := &scriptedGenerator{body: "should never be used"}
	summary, err := f.orchestrator(gen, Options{Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Unchanged != 1 || summary.Fixed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if atomic.LoadInt32(&gen.calls) != 0 {
		t.Error("generator must not run for unchanged entries")
	}
	after, _ := os.ReadFile(f.docPath())
	if string(before) != string(after) {
		t.Error("document must be untouched")
	}
}

func TestFixDryRun(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "F"}
	f.provider.sigs[ref.String()] = &signature.CodeSignature{SymbolName: "F", SymbolType: signature.SymbolFunction, SignatureText: "func F(x int)"}
	f.addAnchor(t, "a1", ref, "stale", "Old.")

	before, _ := os.ReadFile(f.docPath())
	gen := &scriptedGenerator{body: "Now\nthree\nlines."}
	summary, err := f.orchestrator(gen, Options{DryRun: true, Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.WouldFix != 1 || summary.Fixed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	// Generation and the would-write computation run in full.
	if atomic.LoadInt32(&gen.calls) != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if summary.Results[0].LinesChanged != 2 {
		t.Errorf("LinesChanged = %d, want 2", summary.Results[0].LinesChanged)
	}
	// Only the disk mutation and registry save are skipped.
	after, _ := os.ReadFile(f.docPath())
	if string(before) != string(after) {
		t.Error("dry run must not write the document")
	}
	entry, _ := f.reg.GetByID("a1")
	if entry.CodeSignatureHash != "stale" {
		t.Error("dry run must not update the registry")
	}
}

func TestFixDryRunGenerationFailureUsesPlaceholder(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "F"}
	f.provider.sigs[ref.String()] = &signature.CodeSignature{SymbolName: "F", SymbolType: signature.SymbolFunction, SignatureText: "func F(x int)"}
	f.addAnchor(t, "a1", ref, "stale", "Old.")

	gen := &scriptedGenerator{failures: 100}
	summary, err := f.orchestrator(gen, Options{DryRun: true, Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.WouldFix != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !summary.Results[0].Placeholder {
		t.Error("dry run should record the placeholder fallback")
	}
	if atomic.LoadInt32(&gen.calls) != 3 {
		t.Errorf("generator calls = %d, want 3", gen.calls)
	}
}

func TestFixMissingSymbolReportedAndSkipped(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/gone.go", SymbolName: "Removed"}
	f.addAnchor(t, "a1", ref, "hash", "Documents a symbol that no longer exists.")

	before, _ := os.ReadFile(f.docPath())
	summary, err := f.orchestrator(&scriptedGenerator{body: "x"}, Options{Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Missing != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	r := summary.Results[0]
	if r.Status != StatusMissingSymbol || r.Detail == "" {
		t.Errorf("missing symbol should be reported with detail: %+v", r)
	}

	// Entry stays in the registry; nothing is auto-removed.
	if _, ok := f.reg.GetByID("a1"); !ok {
		t.Error("stale entry must not be removed")
	}
	after, _ := os.ReadFile(f.docPath())
	if string(before) != string(after) {
		t.Error("document must be untouched for missing symbols")
	}
}

func TestFixFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "F"}
	f.provider.sigs[ref.String()] = &signature.CodeSignature{SymbolName: "F", SymbolType: signature.SymbolFunction, SignatureText: "func F(x int)"}
	f.addAnchor(t, "a1", ref, "stale", "Old.")

	// Fails every attempt.
	gen := &scriptedGenerator{failures: 100}
	summary, err := f.orchestrator(gen, Options{Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Fixed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !summary.Results[0].Placeholder {
		t.Error("result should record the placeholder fallback")
	}
	if atomic.LoadInt32(&gen.calls) != 3 {
		t.Errorf("generator calls = %d, want 3", gen.calls)
	}

	data, _ := os.ReadFile(f.docPath())
	a, _ := anchor.Find(string(data), "a1")
	if a == nil || !strings.Contains(a.Content, "out of date with the code") {
		t.Errorf("placeholder body not written: %+v", a)
	}
}

func TestFixReinsertsMissingAnchor(t *testing.T) {
	f := newFixture(t)

	ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "Orphan"}
	f.provider.sigs[ref.String()] = &signature.CodeSignature{SymbolName: "Orphan", SymbolType: signature.SymbolFunction, SignatureText: "func Orphan(x int)"}

	// Registered entry whose markers were deleted from the document.
	orphanDoc := filepath.Join(f.repoRoot, "docs", "orphan.md")
	if err := os.MkdirAll(filepath.Dir(orphanDoc), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(orphanDoc, []byte("# Service\n\n## API Reference\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.Add(registry.MapEntry{
		ID:                "orphan",
		CodeRef:           ref,
		CodeSignatureHash: "stale",
		DocRef:            registry.DocRef{FilePath: "docs/orphan.md", StartLine: 3, EndLine: 5},
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := f.orchestrator(&scriptedGenerator{body: "Recreated."}, Options{Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Fixed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(summary.Results[0].Detail, "reinserted") {
		t.Errorf("result should report the reinsertion: %+v", summary.Results[0])
	}

	// The anchor block is back in the document with the new body.
	data, _ := os.ReadFile(orphanDoc)
	a, err := anchor.Find(string(data), "orphan")
	if err != nil || a == nil {
		t.Fatalf("anchor not reinserted: %v\n%s", err, data)
	}
	if a.Content != "Recreated." {
		t.Errorf("reinserted body = %q", a.Content)
	}

	// The registry follows the new location and hash.
	entry, _ := f.reg.GetByID("orphan")
	if entry.DocRef.StartLine != a.StartLine || entry.DocRef.EndLine != a.EndLine {
		t.Errorf("doc ref not rebound: entry=%+v anchor=%+v", entry.DocRef, a)
	}
	if entry.CodeSignatureHash == "stale" {
		t.Error("registry hash not refreshed after reinsertion")
	}
}

func TestFixWriteFailureFailsEntryOnly(t *testing.T) {
	f := newFixture(t)

	refGood := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "Good"}
	refBroken := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "Broken"}
	f.provider.sigs[refGood.String()] = &signature.CodeSignature{SymbolName: "Good", SymbolType: signature.SymbolFunction, SignatureText: "func Good(x int)"}
	f.provider.sigs[refBroken.String()] = &signature.CodeSignature{SymbolName: "Broken", SymbolType: signature.SymbolFunction, SignatureText: "func Broken(x int)"}

	f.addAnchor(t, "good", refGood, "stale", "Old good.")

	// A directory where the doc file should be makes every write fail.
	brokenDoc := filepath.Join(f.repoRoot, "docs", "broken.md")
	if err := os.MkdirAll(brokenDoc, 0755); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.Add(registry.MapEntry{
		ID:                "broken",
		CodeRef:           refBroken,
		CodeSignatureHash: "stale",
		DocRef:            registry.DocRef{FilePath: "docs/broken.md", StartLine: 3, EndLine: 5},
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := f.orchestrator(&scriptedGenerator{body: "new"}, Options{Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if summary.Fixed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	var broken Result
	for _, r := range summary.Results {
		if r.EntryID == "broken" {
			broken = r
		}
	}
	if broken.Status != StatusFailed || broken.Detail == "" {
		t.Errorf("unexpected broken result: %+v", broken)
	}

	// The failed entry's registry state is untouched for a later retry.
	entry, _ := f.reg.GetByID("broken")
	if entry.CodeSignatureHash != "stale" {
		t.Error("failed entry must keep its stored hash")
	}

	// The healthy entry was still fixed.
	data, _ := os.ReadFile(f.docPath())
	a, _ := anchor.Find(string(data), "good")
	if a == nil || a.Content != "new" {
		t.Errorf("healthy entry not fixed: %+v", a)
	}
}

func TestFixSuppliesPriorState(t *testing.T) {
	f := newFixture(t)
	ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "F"}
	f.provider.sigs[ref.String()] = &signature.CodeSignature{SymbolName: "F", SymbolType: signature.SymbolFunction, SignatureText: "func F(x, y int)"}
	f.addAnchor(t, "a1", ref, "stale", "Registry copy.")

	prevSig := "func F(x int)"
	if err := f.reg.Update("a1", registry.EntryUpdate{CodeSignatureText: &prevSig}); err != nil {
		t.Fatal(err)
	}

	// Edit the document by hand; the generator must see this body, not
	// the registry copy.
	data, err := os.ReadFile(f.docPath())
	if err != nil {
		t.Fatal(err)
	}
	edited, err := anchor.Inject(string(data), "a1", "Hand-edited copy.")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.docPath(), []byte(edited.Content), 0644); err != nil {
		t.Fatal(err)
	}

	gen := &scriptedGenerator{body: "new"}
	if _, err := f.orchestrator(gen, Options{Retry: noDelayRetry()}).Fix(context.Background()); err != nil {
		t.Fatal(err)
	}

	req := gen.last()
	if req.PreviousContent != "Hand-edited copy." {
		t.Errorf("PreviousContent = %q, want the document body", req.PreviousContent)
	}
	if req.PreviousSignatureText != prevSig {
		t.Errorf("PreviousSignatureText = %q, want %q", req.PreviousSignatureText, prevSig)
	}
	if req.Signature == nil || req.Signature.SignatureText != "func F(x, y int)" {
		t.Errorf("current signature missing from request: %+v", req.Signature)
	}
}

func TestFixRebindsShiftedLines(t *testing.T) {
	f := newFixture(t)

	refA := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "A"}
	refB := anchor.CodeRef{FilePath: "src/a.go", SymbolName: "B"}
	sigB := &signature.CodeSignature{SymbolName: "B", SymbolType: signature.SymbolFunction, SignatureText: "func B()"}
	f.provider.sigs[refA.String()] = &signature.CodeSignature{SymbolName: "A", SymbolType: signature.SymbolFunction, SignatureText: "func A(x int)"}
	f.provider.sigs[refB.String()] = sigB

	f.addAnchor(t, "a", refA, "stale", "One line.")
	f.addAnchor(t, "b", refB, sigB.Hash(), "Accurate.")

	gen := &scriptedGenerator{body: "Now\nthree\nlines."}
	if _, err := f.orchestrator(gen, Options{Retry: noDelayRetry()}).Fix(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Anchor b moved down; its registry lines must follow.
	data, _ := os.ReadFile(f.docPath())
	b, _ := anchor.Find(string(data), "b")
	entry, _ := f.reg.GetByID("b")
	if b == nil || entry.DocRef.StartLine != b.StartLine || entry.DocRef.EndLine != b.EndLine {
		t.Errorf("doc ref not rebound: entry=%+v anchor=%+v", entry.DocRef, b)
	}
}

func TestFixConcurrentEntriesSameFile(t *testing.T) {
	f := newFixture(t)

	sigs := map[string]*signature.CodeSignature{}
	for _, name := range []string{"F1", "F2", "F3", "F4", "F5", "F6"} {
		ref := anchor.CodeRef{FilePath: "src/a.go", SymbolName: name}
		sigs[name] = &signature.CodeSignature{SymbolName: name, SymbolType: signature.SymbolFunction, SignatureText: "func " + name + "(x int)"}
		f.provider.sigs[ref.String()] = sigs[name]
		f.addAnchor(t, "id-"+name, ref, "stale", "Old "+name+".")
	}

	gen := &scriptedGenerator{body: "rewritten"}
	summary, err := f.orchestrator(gen, Options{Workers: 4, Retry: noDelayRetry()}).Fix(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Fixed != 6 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// All six anchors survived the concurrent writes intact.
	data, _ := os.ReadFile(f.docPath())
	anchors, err := anchor.Parse(string(data))
	if err != nil {
		t.Fatalf("document corrupted by concurrent fixes: %v", err)
	}
	if len(anchors) != 6 {
		t.Fatalf("expected 6 anchors, got %d", len(anchors))
	}
	for _, a := range anchors {
		if a.Content != "rewritten" {
			t.Errorf("anchor %s content = %q", a.ID, a.Content)
		}
	}
}
