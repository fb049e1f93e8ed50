// Package report renders run summaries, diffs and plans for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/asynkron/patchkit/internal/runner"
	"github.com/asynkron/patchkit/pkg/textpatch"
)

// DetectProfile returns the color profile for w. Anything that is not a terminal gets
// termenv.Ascii, which renders every style as plain text.
func DetectProfile(w io.Writer) termenv.Profile {
	return termenv.NewOutput(w).EnvColorProfile()
}

// Printer writes styled output to one writer.
type Printer struct {
	out      io.Writer
	profile  termenv.Profile
	renderer *lipgloss.Renderer

	ok     lipgloss.Style
	same   lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
	header lipgloss.Style
	added  lipgloss.Style
	remove lipgloss.Style
	hunk   lipgloss.Style
}

// NewPrinter builds a printer for out using the given color profile.
func NewPrinter(out io.Writer, profile termenv.Profile) *Printer {
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	renderer.SetHasDarkBackground(true)

	return &Printer{
		out:      out,
		profile:  profile,
		renderer: renderer,
		ok:       renderer.NewStyle().Foreground(lipgloss.Color("70")),
		same:     renderer.NewStyle().Foreground(lipgloss.Color("244")),
		fail:     renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:      renderer.NewStyle().Foreground(lipgloss.Color("240")),
		header:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		added:    renderer.NewStyle().Foreground(lipgloss.Color("70")),
		remove:   renderer.NewStyle().Foreground(lipgloss.Color("196")),
		hunk:     renderer.NewStyle().Foreground(lipgloss.Color("33")),
	}
}

// Styled reports whether the printer emits escape sequences.
func (p *Printer) Styled() bool {
	return p.profile != termenv.Ascii
}

// Summary writes one line per patch and, when verbose, a step table below each line.
func (p *Printer) Summary(summary runner.Summary, verbose bool) {
	for _, result := range summary.Results {
		fmt.Fprintln(p.out, p.resultLine(result))
		if verbose {
			fmt.Fprintln(p.out, p.stepTable(result.Report.Steps))
		}
	}
	if summary.Failure != nil {
		p.Failure(summary.Failure)
	}
}

func (p *Printer) resultLine(result textpatch.Result) string {
	total := len(result.Report.Steps)
	counts := fmt.Sprintf("%d/%d steps applied", result.Report.Applied(), total)
	if skipped := result.Report.Count(textpatch.StatusSkipped); skipped > 0 {
		counts += fmt.Sprintf(", %d skipped", skipped)
	}

	label := result.Path
	if result.Name != "" && result.Name != result.Path {
		label = fmt.Sprintf("%s (%s)", result.Path, result.Name)
	}

	switch result.Status {
	case "M":
		return p.ok.Render("✔") + " " + label + ": " + counts
	case "P":
		return p.hunk.Render("~") + " " + label + ": " + counts + p.dim.Render(" (dry run)")
	default:
		return p.same.Render("=") + " " + label + ": " + counts + p.dim.Render(" (unchanged)")
	}
}

func (p *Printer) stepTable(steps []textpatch.StepResult) string {
	rows := make([][]string, 0, len(steps))
	for _, step := range steps {
		rows = append(rows, []string{
			strconv.Itoa(step.Index + 1),
			step.Name,
			string(step.Mode),
			step.Status,
			strconv.Itoa(step.Matches),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.dim).
		Headers("#", "STEP", "MODE", "STATUS", "MATCHES").
		Rows(rows...)
	return t.String()
}

// Failure writes a patch error together with the per-step status summary.
func (p *Printer) Failure(err *textpatch.Error) {
	lines := strings.Split(textpatch.FormatError(err), "\n")
	fmt.Fprintln(p.out, p.fail.Render("✘")+" "+lines[0])
	for _, line := range lines[1:] {
		if line == "" {
			fmt.Fprintln(p.out)
			continue
		}
		fmt.Fprintln(p.out, "  "+line)
	}
}
