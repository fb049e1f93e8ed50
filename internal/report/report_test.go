package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/asynkron/patchkit/internal/config"
	"github.com/asynkron/patchkit/internal/runner"
	"github.com/asynkron/patchkit/pkg/textpatch"
)

func sampleSummary() runner.Summary {
	return runner.Summary{
		RunID: "1",
		Results: []textpatch.Result{
			{
				Name:   "s92",
				Path:   "agentRuntime.js",
				Status: "M",
				Report: textpatch.Report{Changed: true, Steps: []textpatch.StepResult{
					{Index: 0, Name: "credentials-map", Mode: textpatch.ModeInsertAfter, Status: textpatch.StatusApplied, Matches: 1, Duration: time.Millisecond},
					{Index: 1, Name: "load", Mode: textpatch.ModeReplaceFirst, Status: textpatch.StatusApplied, Matches: 1},
					{Index: 2, Name: "legacy", Mode: textpatch.ModeReplaceFirst, Status: textpatch.StatusNoOp},
					{Index: 3, Name: "guarded", Mode: textpatch.ModeReplaceAll, Status: textpatch.StatusApplied, Matches: 3},
				}},
			},
			{
				Path:   "other.js",
				Status: "=",
				Report: textpatch.Report{Steps: []textpatch.StepResult{{Index: 0, Status: textpatch.StatusSkipped}}},
			},
		},
	}
}

func TestSummaryPlain(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	NewPrinter(&out, termenv.Ascii).Summary(sampleSummary(), false)

	want := "✔ agentRuntime.js (s92): 3/4 steps applied\n" +
		"= other.js: 0/1 steps applied, 1 skipped (unchanged)\n"
	require.Equal(t, want, out.String())
}

func TestSummaryVerboseListsSteps(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	NewPrinter(&out, termenv.Ascii).Summary(sampleSummary(), true)

	text := out.String()
	require.Contains(t, text, "STATUS")
	require.Contains(t, text, "credentials-map")
	require.Contains(t, text, "insert-after")
	require.Contains(t, text, "no-op")
	require.NotContains(t, text, "\x1b[")
}

func TestSummaryFailure(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	NewPrinter(&out, termenv.Ascii).Summary(runner.Summary{Failure: &textpatch.Error{
		Code:     textpatch.CodePatternMiss,
		Message:  "login: pattern matched nothing",
		Path:     "app.js",
		Step:     2,
		StepName: "login",
		Statuses: []textpatch.StepResult{
			{Index: 0, Status: textpatch.StatusApplied},
			{Index: 1, Name: "login", Status: textpatch.StatusFailed},
		},
	}}, false)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Equal(t, "✘ [PATTERN_MISS] app.js: login: pattern matched nothing", lines[0])
	require.Contains(t, out.String(), "Failed at step 2 (login).")
}

func TestStyledPrinterEmitsEscapes(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrinter(&out, termenv.ANSI256)
	require.True(t, p.Styled())
	p.Summary(sampleSummary(), false)
	require.Contains(t, out.String(), "\x1b[")
}

func TestDiff(t *testing.T) {
	t.Parallel()

	diff, err := Diff("app.js", "a\nb\nc\n", "a\nB\nc\n")
	require.NoError(t, err)
	require.Equal(t, "--- a/app.js\n+++ b/app.js\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n", diff)

	same, err := Diff("app.js", "x\n", "x\n")
	require.NoError(t, err)
	require.Empty(t, same)
}

func TestPrinterDiffsSkipsUnchanged(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := NewPrinter(&out, termenv.Ascii).Diffs([]textpatch.Result{
		{Path: "same.js", Original: "x\n", Updated: "x\n"},
		{Path: "app.js", Original: "one\n", Updated: "two\n"},
	})
	require.NoError(t, err)
	require.NotContains(t, out.String(), "same.js")
	require.Contains(t, out.String(), "-one\n+two\n")
}

func TestExplainMarkdown(t *testing.T) {
	t.Parallel()

	doc := `strict: true
patches:
  - name: s92
    target: agentRuntime.js
    steps:
      - name: credentials-map
        mode: insert-after
        match: {kind: regex, pattern: 'this\.rcUserId', dotall: true}
        replacement: "    this.agentCredentials = new Map();"
      - match: {kind: block, open: "async _load() {"}
        replacement_file: new_load.js
        trim: true
        expect: {min: 1, max: 1}
        if_contains: "_load"
      - match: {kind: literal, pattern: "debugger;"}
        mode: replace-all
        replacement: ""
        optional: true
`
	file, err := config.Parse([]byte(doc), config.FormatYAML)
	require.NoError(t, err)
	file.Source = "/tmp/patches.yaml"

	md := ExplainMarkdown(file)
	for _, want := range []string{
		"# Patch plan: patches.yaml",
		"- Strict: yes",
		"## 1. s92",
		"Target: `agentRuntime.js`",
		"1. **credentials-map**: insert-after regex `this\\.rcUserId` (regexp2, dotall)",
		"2. **step 2**: replace-first block opened by `async _load() {`",
		"   - replacement from `new_load.js` (trimmed)",
		"   - expects exactly 1 match(es)",
		"   - runs only if the file contains `_load`",
		"3. **step 3**: replace-all literal `debugger;`",
		"   - deletes the match",
		"   - optional",
	} {
		require.Contains(t, md, want)
	}

	var out bytes.Buffer
	require.NoError(t, NewPrinter(&out, termenv.Ascii).Explain(file, 80))
	require.Equal(t, md, out.String())
}
