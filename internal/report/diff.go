package report

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/asynkron/patchkit/pkg/textpatch"
)

// Diff returns a unified diff between original and updated. It is empty when the two
// are equal.
func Diff(path, original, updated string) (string, error) {
	if original == updated {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(updated),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}
	return diff, nil
}

// Diffs writes the diff of every changed result.
func (p *Printer) Diffs(results []textpatch.Result) error {
	for _, result := range results {
		diff, err := Diff(result.Path, result.Original, result.Updated)
		if err != nil {
			return err
		}
		if diff == "" {
			continue
		}
		for _, line := range strings.SplitAfter(diff, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(p.out, p.diffLine(line))
		}
	}
	return nil
}

func (p *Printer) diffLine(line string) string {
	body := strings.TrimSuffix(line, "\n")
	suffix := line[len(body):]
	switch {
	case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
		return p.header.Render(body) + suffix
	case strings.HasPrefix(body, "@@"):
		return p.hunk.Render(body) + suffix
	case strings.HasPrefix(body, "+"):
		return p.added.Render(body) + suffix
	case strings.HasPrefix(body, "-"):
		return p.remove.Render(body) + suffix
	default:
		return line
	}
}
