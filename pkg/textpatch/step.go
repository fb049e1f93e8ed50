package textpatch

import (
	"fmt"
	"strings"
	"time"
)

type compiledStep struct {
	step    Step
	mode    Mode
	matcher matcher
}

func compileStep(step Step, index int) (compiledStep, error) {
	mode := step.Mode.normalized()
	if !mode.Valid() {
		return compiledStep{}, &Error{
			Code:     CodeInvalidPattern,
			Message:  fmt.Sprintf("%s: unknown mode %q", step.Label(index), step.Mode),
			Step:     index + 1,
			StepName: step.Label(index),
		}
	}
	m, err := compilePattern(step.Pattern)
	if err != nil {
		return compiledStep{}, &Error{
			Code:     CodeInvalidPattern,
			Message:  fmt.Sprintf("%s: invalid pattern: %v", step.Label(index), err),
			Step:     index + 1,
			StepName: step.Label(index),
			Err:      err,
		}
	}
	return compiledStep{step: step, mode: mode, matcher: m}, nil
}

// ApplyStep applies a single step to buffer. The buffer itself is never modified; the
// rewritten text is returned together with the step's match statistics.
func ApplyStep(buffer string, step Step, opts Options) (string, StepResult, error) {
	compiled, err := compileStep(step, 0)
	if err != nil {
		return buffer, StepResult{Name: step.Label(0), Mode: step.Mode.normalized(), Status: StatusFailed}, err
	}
	return compiled.apply(buffer, 0, opts)
}

func (c compiledStep) apply(buffer string, index int, opts Options) (string, StepResult, error) {
	started := time.Now()
	result := StepResult{Index: index, Name: c.step.Label(index), Mode: c.mode}
	finish := func(status string) StepResult {
		result.Status = status
		result.Duration = time.Since(started)
		return result
	}

	if !c.step.Guard.allows(buffer) {
		return buffer, finish(StatusSkipped), nil
	}

	matches, err := c.matcher.find(buffer)
	if err != nil {
		return buffer, finish(StatusFailed), c.fail(index, CodeInvalidPattern, fmt.Sprintf("match failed: %v", err), err)
	}
	result.Matches = len(matches)

	if err := c.checkExpectations(index, len(matches), opts); err != nil {
		return buffer, finish(StatusFailed), err
	}
	if len(matches) == 0 {
		return buffer, finish(StatusNoOp), nil
	}

	validate := opts.Strict || opts.ValidateBalance || c.step.ValidateBalance
	var out string
	switch c.mode {
	case ModeReplaceAll:
		var b strings.Builder
		b.Grow(len(buffer))
		last := 0
		for _, m := range matches {
			replacement := c.replacementFor(buffer, m)
			if validate {
				if err := checkBalance(buffer[m.start:m.end], replacement); err != nil {
					return buffer, finish(StatusFailed), c.fail(index, CodeUnbalanced, err.Error(), err)
				}
			}
			b.WriteString(buffer[last:m.start])
			b.WriteString(replacement)
			last = m.end
		}
		b.WriteString(buffer[last:])
		out = b.String()
		result.Replaced = len(matches)
	case ModeInsertAfter, ModeInsertBefore:
		m := matches[0]
		insertion := c.replacementFor(buffer, m)
		if validate {
			if err := checkBalance("", insertion); err != nil {
				return buffer, finish(StatusFailed), c.fail(index, CodeUnbalanced, err.Error(), err)
			}
		}
		if c.mode == ModeInsertAfter {
			out = insertAfter(buffer, m, insertion)
		} else {
			out = insertBefore(buffer, m, insertion)
		}
		result.Replaced = 1
	default:
		m := matches[0]
		replacement := c.replacementFor(buffer, m)
		if validate {
			if err := checkBalance(buffer[m.start:m.end], replacement); err != nil {
				return buffer, finish(StatusFailed), c.fail(index, CodeUnbalanced, err.Error(), err)
			}
		}
		out = buffer[:m.start] + replacement + buffer[m.end:]
		result.Replaced = 1
	}
	return out, finish(StatusApplied), nil
}

func (c compiledStep) checkExpectations(index, count int, opts Options) error {
	// Strict mode requires at least one match from every non-optional step, whatever
	// bounds Expect declares.
	if count == 0 && opts.Strict && !c.step.Optional {
		return c.fail(index, CodePatternMiss, fmt.Sprintf("no match for %s", c.step.Pattern), nil)
	}
	expect := c.step.Expect
	if expect.isSet() && (count < expect.Min || (expect.Max > 0 && count > expect.Max)) {
		return c.fail(index, CodeExpectationFailed,
			fmt.Sprintf("expected %s matches for %s, found %d", describeExpectation(expect), c.step.Pattern, count), nil)
	}
	return nil
}

func describeExpectation(e Expectation) string {
	switch {
	case e.Max == 0:
		return fmt.Sprintf("at least %d", e.Min)
	case e.Min == e.Max:
		return fmt.Sprintf("exactly %d", e.Min)
	default:
		return fmt.Sprintf("%d to %d", e.Min, e.Max)
	}
}

func (c compiledStep) replacementFor(buffer string, m match) string {
	if c.step.Expand {
		return expandTemplate(c.step.Replacement, buffer, m)
	}
	return c.step.Replacement
}

func (c compiledStep) fail(index int, code, message string, cause error) *Error {
	label := c.step.Label(index)
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf("%s: %s", label, message),
		Step:     index + 1,
		StepName: label,
		Err:      cause,
	}
}

// insertAfter places text right after the anchor with exactly one newline between them.
// A line anchor (one ending in a newline) gets whole lines inserted after it, so the
// following line is never joined onto the insertion.
func insertAfter(buffer string, anchor match, text string) string {
	text = strings.TrimLeft(text, "\r\n")
	rest := buffer[anchor.end:]
	separator := "\n"
	if strings.HasSuffix(buffer[anchor.start:anchor.end], "\n") {
		separator = ""
		if text != "" && rest != "" && !strings.HasSuffix(text, "\n") && !strings.HasPrefix(rest, "\n") {
			text += "\n"
		}
	}
	return buffer[:anchor.end] + separator + text + rest
}

// insertBefore places text right before the anchor with exactly one newline between them.
// An anchor starting with a newline gets whole lines inserted before it, so the
// preceding line is never joined onto the insertion.
func insertBefore(buffer string, anchor match, text string) string {
	text = strings.TrimRight(text, "\r\n")
	head := buffer[:anchor.start]
	separator := "\n"
	if strings.HasPrefix(buffer[anchor.start:anchor.end], "\n") {
		separator = ""
		if text != "" && head != "" && !strings.HasPrefix(text, "\n") && !strings.HasSuffix(head, "\n") {
			text = "\n" + text
		}
	}
	return head + text + separator + buffer[anchor.start:]
}
