package textpatch

import (
	"context"
	"errors"
)

// Pipeline is an ordered list of steps applied to one buffer. Every step matches against
// the buffer produced by the steps before it, never against the original input.
type Pipeline struct {
	steps   []compiledStep
	options Options
}

// NewPipeline compiles every step up front so that invalid patterns are reported before
// any step runs.
func NewPipeline(steps []Step, opts Options) (*Pipeline, error) {
	compiled := make([]compiledStep, 0, len(steps))
	for i, step := range steps {
		c, err := compileStep(step, i)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return &Pipeline{steps: compiled, options: opts}, nil
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Run threads buffer through every step in declaration order. Misses are no-ops unless
// the pipeline is strict. On failure nothing is returned besides the report of the steps
// that ran; there is no partial result.
func (p *Pipeline) Run(ctx context.Context, buffer string) (string, Report, error) {
	if p == nil {
		return "", Report{}, errors.New("nil pipeline")
	}
	report := Report{Steps: make([]StepResult, 0, len(p.steps))}
	current := buffer
	for i, step := range p.steps {
		if ctx.Err() != nil {
			return "", report, &Error{
				Code:     CodeCanceled,
				Message:  ctx.Err().Error(),
				Step:     i + 1,
				StepName: step.step.Label(i),
				Statuses: report.Steps,
				Err:      ctx.Err(),
			}
		}
		next, result, err := step.apply(current, i, p.options)
		report.Steps = append(report.Steps, result)
		if err != nil {
			pe := asPatchError(err)
			pe.Statuses = append([]StepResult(nil), report.Steps...)
			return "", report, pe
		}
		current = next
	}
	report.Changed = current != buffer
	return current, report, nil
}

// Run compiles steps into a pipeline and applies it to buffer.
func Run(ctx context.Context, buffer string, steps []Step, opts Options) (string, Report, error) {
	pipeline, err := NewPipeline(steps, opts)
	if err != nil {
		return "", Report{}, err
	}
	return pipeline.Run(ctx, buffer)
}
