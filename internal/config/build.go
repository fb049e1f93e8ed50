package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/asynkron/patchkit/pkg/textpatch"
)

// BuildOptions adjust how a File turns into patches.
type BuildOptions struct {
	// Strict forces strict mode on every patch regardless of the file.
	Strict bool
	// Only keeps the patch with this name (or target, when the patch is unnamed).
	Only string
}

// ErrNoPatchSelected reports that BuildOptions.Only matched nothing.
var ErrNoPatchSelected = errors.New("no patch matches the selection")

// Build converts the file into patches ready for textpatch.ApplyFilesystem and returns
// the workspace-wide options. Every step is compiled so bad patterns surface before any
// file is touched.
func (f *File) Build(opts BuildOptions) ([]textpatch.Patch, textpatch.Options, error) {
	defaults := textpatch.Options{
		Strict:          f.Strict || opts.Strict,
		ValidateBalance: f.ValidateBalance,
	}

	patches := make([]textpatch.Patch, 0, len(f.Patches))
	for i, spec := range f.Patches {
		if opts.Only != "" && spec.DisplayName() != opts.Only {
			continue
		}
		patch, err := spec.build(defaults, opts.Strict)
		if err != nil {
			return nil, textpatch.Options{}, fmt.Errorf("patch %d (%s): %w", i+1, spec.DisplayName(), err)
		}
		patches = append(patches, patch)
	}
	if opts.Only != "" && len(patches) == 0 {
		return nil, textpatch.Options{}, fmt.Errorf("%w: %q", ErrNoPatchSelected, opts.Only)
	}
	return patches, defaults, nil
}

// DisplayName returns the patch name, falling back to its target.
func (p PatchSpec) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Target
}

func (p PatchSpec) build(defaults textpatch.Options, forceStrict bool) (textpatch.Patch, error) {
	if strings.TrimSpace(p.Target) == "" {
		return textpatch.Patch{}, errors.New("target is required")
	}
	patch := textpatch.Patch{
		Name:   p.DisplayName(),
		Target: filepath.FromSlash(p.Target),
		Steps:  make([]textpatch.Step, 0, len(p.Steps)),
	}

	if p.Strict != nil || p.ValidateBalance != nil {
		override := defaults
		if p.Strict != nil {
			override.Strict = *p.Strict || forceStrict
		}
		if p.ValidateBalance != nil {
			override.ValidateBalance = *p.ValidateBalance
		}
		patch.Options = &override
	}

	for i, spec := range p.Steps {
		step, err := spec.build()
		if err != nil {
			return textpatch.Patch{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		if spec.ReplacementFile != "" {
			if patch.ReplacementFiles == nil {
				patch.ReplacementFiles = make(map[int]string)
			}
			patch.ReplacementFiles[i] = filepath.FromSlash(spec.ReplacementFile)
			if spec.Trim {
				if patch.TrimReplacementFiles == nil {
					patch.TrimReplacementFiles = make(map[int]bool)
				}
				patch.TrimReplacementFiles[i] = true
			}
		}
		patch.Steps = append(patch.Steps, step)
	}

	effective := defaults
	if patch.Options != nil {
		effective = *patch.Options
	}
	if _, err := textpatch.NewPipeline(patch.Steps, effective); err != nil {
		return textpatch.Patch{}, err
	}
	return patch, nil
}

func (s StepSpec) build() (textpatch.Step, error) {
	hasInline := s.Replacement != nil
	hasFile := s.ReplacementFile != ""
	if hasInline == hasFile {
		return textpatch.Step{}, errors.New("exactly one of replacement or replacement_file is required")
	}

	pattern, err := s.Match.pattern()
	if err != nil {
		return textpatch.Step{}, err
	}

	step := textpatch.Step{
		Name:            s.Name,
		Pattern:         pattern,
		Mode:            textpatch.Mode(s.Mode),
		Expand:          s.Expand,
		Guard:           textpatch.Guard{IfContains: s.IfContains, UnlessContains: s.UnlessContains},
		ValidateBalance: s.ValidateBalance,
		Optional:        s.Optional,
	}
	if hasInline {
		step.Replacement = *s.Replacement
		if s.Trim {
			step.Replacement = strings.TrimSpace(step.Replacement)
		}
	}
	if s.Expect != nil {
		if s.Expect.Max > 0 && s.Expect.Max < s.Expect.Min {
			return textpatch.Step{}, fmt.Errorf("expect.max %d is below expect.min %d", s.Expect.Max, s.Expect.Min)
		}
		step.Expect = textpatch.Expectation{Min: s.Expect.Min, Max: s.Expect.Max}
	}
	return step, nil
}

func (m MatchSpec) pattern() (textpatch.Pattern, error) {
	pattern := textpatch.Pattern{
		Kind:      textpatch.Kind(m.Kind),
		Text:      m.Pattern,
		Engine:    textpatch.Engine(m.Engine),
		DotAll:    m.DotAll,
		Multiline: m.Multiline,
		Open:      m.Open,
	}
	var err error
	if pattern.OpenDelim, err = delimiter("open_delim", m.OpenDelim); err != nil {
		return textpatch.Pattern{}, err
	}
	if pattern.CloseDelim, err = delimiter("close_delim", m.CloseDelim); err != nil {
		return textpatch.Pattern{}, err
	}
	return pattern, nil
}

func delimiter(field, value string) (byte, error) {
	switch len(value) {
	case 0:
		return 0, nil
	case 1:
		return value[0], nil
	default:
		return 0, fmt.Errorf("%s must be a single ASCII character, got %q", field, value)
	}
}
