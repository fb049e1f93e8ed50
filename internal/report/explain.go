package report

import (
	"fmt"
	"path/filepath"
	"strings"

	glam "github.com/charmbracelet/glamour"

	"github.com/asynkron/patchkit/internal/config"
)

// ExplainMarkdown describes every patch of file and its steps as markdown.
func ExplainMarkdown(file *config.File) string {
	var b strings.Builder

	title := "Patch plan"
	if file.Source != "" {
		title = "Patch plan: " + filepath.Base(file.Source)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Strict: %s\n", yesNo(file.Strict))
	fmt.Fprintf(&b, "- Balance validation: %s\n", yesNo(file.ValidateBalance || file.Strict))
	fmt.Fprintf(&b, "- Patches: %d\n", len(file.Patches))

	for i, patch := range file.Patches {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, patch.DisplayName())
		fmt.Fprintf(&b, "Target: `%s`", patch.Target)
		if patch.Strict != nil {
			fmt.Fprintf(&b, ", strict: %s", yesNo(*patch.Strict))
		}
		if patch.ValidateBalance != nil {
			fmt.Fprintf(&b, ", balance validation: %s", yesNo(*patch.ValidateBalance))
		}
		b.WriteString("\n\n")

		for j, step := range patch.Steps {
			name := step.Name
			if name == "" {
				name = fmt.Sprintf("step %d", j+1)
			}
			mode := step.Mode
			if mode == "" {
				mode = "replace-first"
			}
			fmt.Fprintf(&b, "%d. **%s**: %s %s\n", j+1, name, mode, describeMatch(step.Match))
			for _, detail := range stepDetails(step) {
				fmt.Fprintf(&b, "   - %s\n", detail)
			}
		}
	}
	return b.String()
}

func describeMatch(m config.MatchSpec) string {
	switch m.Kind {
	case "block":
		return fmt.Sprintf("block opened by `%s`", inlineCode(m.Open))
	case "regex":
		engine := m.Engine
		if engine == "" {
			engine = "regexp2"
		}
		flags := []string{engine}
		if m.DotAll {
			flags = append(flags, "dotall")
		}
		if m.Multiline {
			flags = append(flags, "multiline")
		}
		return fmt.Sprintf("regex `%s` (%s)", inlineCode(m.Pattern), strings.Join(flags, ", "))
	default:
		return fmt.Sprintf("literal `%s`", inlineCode(m.Pattern))
	}
}

func stepDetails(step config.StepSpec) []string {
	var details []string
	switch {
	case step.ReplacementFile != "":
		source := fmt.Sprintf("replacement from `%s`", step.ReplacementFile)
		if step.Trim {
			source += " (trimmed)"
		}
		details = append(details, source)
	case step.Replacement != nil && *step.Replacement == "":
		details = append(details, "deletes the match")
	case step.Replacement != nil:
		lines := strings.Count(*step.Replacement, "\n") + 1
		details = append(details, fmt.Sprintf("inline replacement, %d line(s)", lines))
	}
	if step.Expand {
		details = append(details, "expands capture group references")
	}
	if step.Expect != nil {
		details = append(details, fmt.Sprintf("expects %s", describeBounds(step.Expect.Min, step.Expect.Max)))
	}
	if step.IfContains != "" {
		details = append(details, fmt.Sprintf("runs only if the file contains `%s`", inlineCode(step.IfContains)))
	}
	if step.UnlessContains != "" {
		details = append(details, fmt.Sprintf("skipped if the file contains `%s`", inlineCode(step.UnlessContains)))
	}
	if step.ValidateBalance {
		details = append(details, "validates delimiter balance")
	}
	if step.Optional {
		details = append(details, "optional")
	}
	return details
}

func describeBounds(lo, hi int) string {
	switch {
	case hi == 0:
		return fmt.Sprintf("at least %d match(es)", lo)
	case lo == hi:
		return fmt.Sprintf("exactly %d match(es)", lo)
	default:
		return fmt.Sprintf("%d to %d matches", lo, hi)
	}
}

// inlineCode keeps a value on one line and free of backticks so it fits a code span.
func inlineCode(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// RenderMarkdown renders md for the terminal. Unstyled printers get the raw markdown.
func (p *Printer) RenderMarkdown(md string, width int) (string, error) {
	if !p.Styled() {
		return md, nil
	}
	if width < 10 {
		width = 10
	}
	r, err := glam.NewTermRenderer(
		glam.WithStylePath("dark"),
		glam.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}

// Explain writes the rendered plan of file.
func (p *Printer) Explain(file *config.File, width int) error {
	rendered, err := p.RenderMarkdown(ExplainMarkdown(file), width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(p.out, rendered)
	return err
}
