package textpatch

import (
	"fmt"
	"strings"
	"time"
)

// Mode identifies how a step rewrites the region it locates.
type Mode string

const (
	// ModeReplaceFirst replaces the first match in document order.
	ModeReplaceFirst Mode = "replace-first"
	// ModeReplaceAll replaces every non-overlapping match.
	ModeReplaceAll Mode = "replace-all"
	// ModeInsertAfter splices text right after the first anchor match.
	ModeInsertAfter Mode = "insert-after"
	// ModeInsertBefore splices text right before the first anchor match.
	ModeInsertBefore Mode = "insert-before"
)

// Valid reports whether m is a known mode. The empty mode is treated as ModeReplaceFirst.
func (m Mode) Valid() bool {
	switch m {
	case "", ModeReplaceFirst, ModeReplaceAll, ModeInsertAfter, ModeInsertBefore:
		return true
	}
	return false
}

func (m Mode) normalized() Mode {
	if m == "" {
		return ModeReplaceFirst
	}
	return m
}

func (m Mode) inserts() bool {
	return m == ModeInsertAfter || m == ModeInsertBefore
}

// Kind selects the matcher used by a Pattern.
type Kind string

const (
	// KindLiteral matches an exact substring.
	KindLiteral Kind = "literal"
	// KindRegex matches a regular expression.
	KindRegex Kind = "regex"
	// KindBlock matches from an opening token to its depth-balanced closing delimiter.
	KindBlock Kind = "block"
)

// Engine selects the regular expression implementation for KindRegex patterns.
type Engine string

const (
	// EngineRegexp2 is a backtracking engine with Perl/.NET syntax (lazy quantifiers,
	// lookaround, backreferences). It is the default.
	EngineRegexp2 Engine = "regexp2"
	// EngineRE2 is the standard library regexp package.
	EngineRE2 Engine = "re2"
)

// Pattern describes the region a step locates.
type Pattern struct {
	Kind Kind

	// Text is the literal substring for KindLiteral and the expression for KindRegex.
	Text string

	// Engine, DotAll and Multiline apply to KindRegex.
	Engine    Engine
	DotAll    bool
	Multiline bool

	// Open is the literal opening token for KindBlock. OpenDelim and CloseDelim
	// default to '{' and '}'.
	Open       string
	OpenDelim  byte
	CloseDelim byte
}

// String returns a short human readable description of the pattern.
func (p Pattern) String() string {
	switch p.Kind {
	case KindBlock:
		return fmt.Sprintf("block %q", p.Open)
	case KindRegex:
		return fmt.Sprintf("regex /%s/", p.Text)
	default:
		return fmt.Sprintf("literal %q", p.Text)
	}
}

// Expectation bounds the number of matches a step may see. Zero Max means unbounded.
type Expectation struct {
	Min int
	Max int
}

func (e Expectation) isSet() bool {
	return e.Min > 0 || e.Max > 0
}

// Guard makes a step conditional on the buffer contents.
type Guard struct {
	IfContains     string
	UnlessContains string
}

func (g Guard) allows(buffer string) bool {
	if g.IfContains != "" && !strings.Contains(buffer, g.IfContains) {
		return false
	}
	if g.UnlessContains != "" && strings.Contains(buffer, g.UnlessContains) {
		return false
	}
	return true
}

// Step is one atomic transformation applied to a buffer.
type Step struct {
	Name        string
	Pattern     Pattern
	Replacement string
	Mode        Mode

	// Expand enables $1, ${name} and $$ references to regex capture groups in Replacement.
	Expand bool

	Expect          Expectation
	Guard           Guard
	ValidateBalance bool
	// Optional exempts the step from the strict-mode miss check. An explicit Expect is
	// still enforced.
	Optional bool
}

// Label returns the step name or a positional fallback.
func (s Step) Label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d", index+1)
}

// Options configure how a pipeline treats irregularities.
type Options struct {
	// Strict turns pattern misses into errors and requires at least one match for every
	// non-optional step.
	Strict bool
	// ValidateBalance checks delimiter balance of matched and inserted regions on every
	// step. Strict mode implies it.
	ValidateBalance bool
}

// FilesystemOptions augment Options for ApplyFilesystem.
type FilesystemOptions struct {
	Options
	// WorkingDir resolves relative target and replacement paths. Defaults to the process
	// working directory.
	WorkingDir string
	// DryRun runs every pipeline without writing results back.
	DryRun bool
}

// StepStatus values reported for each step.
const (
	StatusApplied = "applied"
	StatusNoOp    = "no-op"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// StepResult describes the outcome of one step.
type StepResult struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Mode     Mode          `json:"mode"`
	Status   string        `json:"status"`
	Matches  int           `json:"matches"`
	Replaced int           `json:"replaced"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of one pipeline run.
type Report struct {
	Steps   []StepResult `json:"steps"`
	Changed bool         `json:"changed"`
}

// Applied returns how many steps changed the buffer.
func (r Report) Applied() int {
	return r.Count(StatusApplied)
}

// Count returns the number of steps with the given status.
func (r Report) Count(status string) int {
	count := 0
	for _, step := range r.Steps {
		if step.Status == status {
			count++
		}
	}
	return count
}

// Patch binds a target document to the steps that rewrite it.
type Patch struct {
	Name   string
	Target string
	Steps  []Step
	// ReplacementFiles maps step indexes to files whose contents become the step's
	// replacement. They are read before any step runs.
	ReplacementFiles map[int]string
	// TrimReplacementFiles strips surrounding whitespace from loaded replacement files.
	TrimReplacementFiles map[int]bool
	// Options override the workspace options for this patch when non-nil.
	Options *Options
}

// Result describes the outcome for a single patch.
type Result struct {
	Name     string
	Path     string
	Status   string // "M" written, "=" unchanged, "P" changed but not written (dry run)
	Report   Report
	Original string
	Updated  string
}
