package textpatch

import (
	"context"
	"testing"
)

func TestApplyToMemoryCopiesInput(t *testing.T) {
	t.Parallel()

	initial := map[string]string{"file.js": "alpha\n"}
	patches := []Patch{{
		Target: "file.js",
		Steps:  []Step{{Pattern: Pattern{Kind: KindLiteral, Text: "alpha"}, Replacement: "beta"}},
	}}

	updated, results, err := ApplyToMemory(ctxBackground(), patches, initial, Options{})
	if err != nil {
		t.Fatalf("ApplyToMemory returned error: %v", err)
	}
	if updated["file.js"] != "beta\n" {
		t.Fatalf("unexpected updated value: %q", updated["file.js"])
	}
	if initial["file.js"] != "alpha\n" {
		t.Fatalf("initial map mutated: %q", initial["file.js"])
	}
	if len(results) != 1 || results[0].Status != "M" || results[0].Original != "alpha\n" {
		t.Fatalf("unexpected results: %#v", results)
	}
}

func TestApplyToMemoryReadsReplacementSources(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"runtime.js": "class R {\n  async _load() {\n    return 1;\n  }\n}\n",
		"new_load.js": "\n  async _load() {\n    return 2;\n  }\n\n",
	}
	patches := []Patch{{
		Target:               "runtime.js",
		Steps:                []Step{{Pattern: Pattern{Kind: KindBlock, Open: "async _load() {"}}},
		ReplacementFiles:     map[int]string{0: "new_load.js"},
		TrimReplacementFiles: map[int]bool{0: true},
	}}

	updated, _, err := ApplyToMemory(ctxBackground(), patches, files, Options{Strict: true})
	if err != nil {
		t.Fatalf("ApplyToMemory returned error: %v", err)
	}
	if got, want := updated["runtime.js"], "class R {\n  async _load() {\n    return 2;\n  }\n}\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyToMemoryComposesPatchesOnSameTarget(t *testing.T) {
	t.Parallel()

	patches := []Patch{
		{Name: "one", Target: "a.txt", Steps: []Step{{Pattern: Pattern{Kind: KindLiteral, Text: "1"}, Replacement: "2"}}},
		{Name: "two", Target: "./a.txt", Steps: []Step{{Pattern: Pattern{Kind: KindLiteral, Text: "2"}, Replacement: "3"}}},
	}
	updated, results, err := ApplyToMemory(ctxBackground(), patches, map[string]string{"a.txt": "1"}, Options{})
	if err != nil {
		t.Fatalf("ApplyToMemory returned error: %v", err)
	}
	if updated["a.txt"] != "3" {
		t.Fatalf("patches did not compose: %q", updated["a.txt"])
	}
	if results[1].Original != "2" {
		t.Fatalf("second patch should see first patch output, saw %q", results[1].Original)
	}
}

func TestApplyToMemoryMissingTarget(t *testing.T) {
	t.Parallel()

	patches := []Patch{{Target: "missing.txt", Steps: []Step{{Pattern: Pattern{Kind: KindLiteral, Text: "a"}}}}}
	_, _, err := ApplyToMemory(ctxBackground(), patches, map[string]string{}, Options{})
	if !IsCode(err, CodeIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestApplyToMemoryFailureCommitsNothing(t *testing.T) {
	t.Parallel()

	files := map[string]string{"a.txt": "a", "b.txt": "b"}
	patches := []Patch{
		{Target: "a.txt", Steps: []Step{{Pattern: Pattern{Kind: KindLiteral, Text: "a"}, Replacement: "A"}}},
		{Target: "b.txt", Steps: []Step{{Pattern: Pattern{Kind: KindLiteral, Text: "zzz"}}}},
	}
	updated, results, err := ApplyToMemory(ctxBackground(), patches, files, Options{Strict: true})
	if err == nil {
		t.Fatalf("expected strict failure")
	}
	if updated != nil || results != nil {
		t.Fatalf("expected no results on failure")
	}
	if pe := asPatchError(err); pe.Path != "b.txt" {
		t.Fatalf("expected failing path b.txt, got %q", pe.Path)
	}
	if files["a.txt"] != "a" {
		t.Fatalf("input map mutated")
	}
}

func TestMemoryWorkspaceRejectsInvalidPath(t *testing.T) {
	t.Parallel()

	ws := newMemoryWorkspace(map[string]string{})
	if _, err := ws.Ensure("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
	if _, err := ws.ReadSource("."); err == nil {
		t.Fatalf("expected error for dot path")
	}
}

func ctxBackground() context.Context {
	return context.Background()
}
