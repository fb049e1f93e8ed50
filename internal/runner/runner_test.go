package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/patchkit/internal/config"
	"github.com/asynkron/patchkit/internal/logging"
	"github.com/asynkron/patchkit/pkg/textpatch"
)

const runnerConfig = `patches:
  - name: greet
    target: app.js
    steps:
      - name: rename
        match: {kind: literal, pattern: "hello"}
        mode: replace-all
        replacement: "hi"
      - name: absent
        match: {kind: literal, pattern: "goodbye"}
        replacement: "bye"
`

func writeFixture(t *testing.T, doc string, files map[string]string) *config.File {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	path := filepath.Join(dir, "patches.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	file, err := config.Load(path)
	require.NoError(t, err)
	return file
}

func TestRunAppliesAndRecords(t *testing.T) {
	t.Parallel()

	file := writeFixture(t, runnerConfig, map[string]string{"app.js": "hello hello\n"})
	metrics := NewInMemoryMetrics()
	var logs bytes.Buffer

	summary, err := Run(context.Background(), file, Options{
		Logger:  logging.NewTextLogger(logging.LevelDebug, &logs),
		Metrics: metrics,
	})
	require.NoError(t, err)
	require.Nil(t, summary.Failure)
	require.Len(t, summary.Results, 1)
	require.Equal(t, "M", summary.Results[0].Status)
	require.Equal(t, 1, summary.Written())
	require.NotEmpty(t, summary.RunID)

	content, err := os.ReadFile(filepath.Join(file.BaseDir, "app.js"))
	require.NoError(t, err)
	require.Equal(t, "hi hi\n", string(content))

	snapshot := metrics.GetSnapshot()
	require.Equal(t, int64(1), snapshot.Patches.Total)
	require.Equal(t, int64(1), snapshot.Patches.Success)
	require.Equal(t, int64(1), snapshot.Steps[textpatch.StatusApplied])
	require.Equal(t, int64(1), snapshot.Steps[textpatch.StatusNoOp])

	output := logs.String()
	require.Contains(t, output, "patch run started")
	require.Contains(t, output, "status=no-op")
	require.Contains(t, output, "run="+summary.RunID+" patch=greet")
}

func TestRunDryRunLeavesFiles(t *testing.T) {
	t.Parallel()

	file := writeFixture(t, runnerConfig, map[string]string{"app.js": "hello\n"})

	summary, err := Run(context.Background(), file, Options{DryRun: true})
	require.NoError(t, err)
	require.True(t, summary.DryRun)
	require.Equal(t, "P", summary.Results[0].Status)
	require.Equal(t, "hi\n", summary.Results[0].Updated)

	content, err := os.ReadFile(filepath.Join(file.BaseDir, "app.js"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))
}

func TestRunStrictFailureWritesNothing(t *testing.T) {
	t.Parallel()

	doc := runnerConfig + `  - name: second
    target: other.js
    steps:
      - match: {kind: literal, pattern: "a"}
        replacement: "b"
`
	file := writeFixture(t, doc, map[string]string{"app.js": "hello\n", "other.js": "a\n"})
	metrics := NewInMemoryMetrics()
	var logs bytes.Buffer

	summary, err := Run(context.Background(), file, Options{
		Strict:  true,
		Metrics: metrics,
		Logger:  logging.NewTextLogger(logging.LevelInfo, &logs),
	})
	require.Error(t, err)
	require.True(t, textpatch.IsCode(err, textpatch.CodePatternMiss))
	require.NotNil(t, summary.Failure)
	require.Equal(t, 2, summary.Failure.Step)
	require.Empty(t, summary.Results)

	for name, want := range map[string]string{"app.js": "hello\n", "other.js": "a\n"} {
		content, readErr := os.ReadFile(filepath.Join(file.BaseDir, name))
		require.NoError(t, readErr)
		require.Equal(t, want, string(content))
	}

	snapshot := metrics.GetSnapshot()
	require.Equal(t, int64(1), snapshot.Patches.Failed)
	require.Equal(t, int64(1), snapshot.Steps[textpatch.StatusFailed])
	require.True(t, strings.Contains(logs.String(), " ERROR run="))
}

func TestRunOnlySelectsPatch(t *testing.T) {
	t.Parallel()

	doc := runnerConfig + `  - name: second
    target: other.js
    steps:
      - match: {kind: literal, pattern: "a"}
        replacement: "b"
`
	file := writeFixture(t, doc, map[string]string{"app.js": "hello\n", "other.js": "a\n"})

	summary, err := Run(context.Background(), file, Options{Only: "second"})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, "second", summary.Results[0].Name)

	content, err := os.ReadFile(filepath.Join(file.BaseDir, "app.js"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))
}

func TestInMemoryMetricsMinMaxAndReset(t *testing.T) {
	t.Parallel()

	m := NewInMemoryMetrics()
	m.RecordPatch("a", 30*time.Millisecond, true)
	m.RecordPatch("b", 10*time.Millisecond, false)
	m.RecordPatch("c", 20*time.Millisecond, true)
	m.RecordStep(textpatch.StatusSkipped, time.Millisecond)

	snapshot := m.GetSnapshot()
	require.Equal(t, int64(3), snapshot.Patches.Total)
	require.Equal(t, int64(2), snapshot.Patches.Success)
	require.Equal(t, 10*time.Millisecond, snapshot.Patches.MinTime)
	require.Equal(t, 30*time.Millisecond, snapshot.Patches.MaxTime)
	require.Equal(t, 60*time.Millisecond, snapshot.Patches.TotalTime)
	require.Equal(t, int64(1), snapshot.Steps[textpatch.StatusSkipped])

	snapshot.Steps["mutated"] = 5
	require.NotContains(t, m.GetSnapshot().Steps, "mutated")

	m.Reset()
	require.Equal(t, MetricsSnapshot{Steps: map[string]int64{}}, m.GetSnapshot())
}
