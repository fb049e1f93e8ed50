// Package runner executes the patches of a configuration file against the filesystem.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/patchkit/internal/config"
	"github.com/asynkron/patchkit/internal/logging"
	"github.com/asynkron/patchkit/pkg/textpatch"
)

// Options control a run.
type Options struct {
	// DryRun runs every pipeline without writing targets.
	DryRun bool
	// Strict forces strict mode on every patch.
	Strict bool
	// Only narrows the run to the patch with this name.
	Only string

	Logger  logging.Logger
	Metrics Metrics
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = &logging.NoOpLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = &NoOpMetrics{}
	}
	return o
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Source   string
	DryRun   bool
	Results  []textpatch.Result
	Failure  *textpatch.Error
	Duration time.Duration
}

// Written returns how many patches changed their target.
func (s Summary) Written() int {
	count := 0
	for _, r := range s.Results {
		if r.Status == "M" || r.Status == "P" {
			count++
		}
	}
	return count
}

// Run builds the patches of file and applies them. Nothing is written unless every
// patch succeeds.
func Run(ctx context.Context, file *config.File, opts Options) (Summary, error) {
	if file == nil {
		return Summary{}, errors.New("runner: nil configuration")
	}
	patches, base, err := file.Build(config.BuildOptions{Strict: opts.Strict, Only: opts.Only})
	if err != nil {
		return Summary{Source: file.Source}, err
	}
	summary, err := RunPatches(ctx, patches, base, file.BaseDir, opts)
	summary.Source = file.Source
	return summary, err
}

// RunPatches applies already built patches with paths resolved against workingDir.
func RunPatches(ctx context.Context, patches []textpatch.Patch, base textpatch.Options, workingDir string, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	if opts.Strict {
		base.Strict = true
	}

	runID := logging.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	logger := opts.Logger
	summary := Summary{RunID: runID, DryRun: opts.DryRun}

	logger.Info(ctx, "patch run started",
		logging.F("patches", len(patches)),
		logging.F("dry_run", opts.DryRun),
		logging.F("strict", base.Strict),
	)

	start := time.Now()
	results, err := textpatch.ApplyFilesystem(ctx, patches, textpatch.FilesystemOptions{
		Options:    base,
		WorkingDir: workingDir,
		DryRun:     opts.DryRun,
	})
	summary.Duration = time.Since(start)

	if err != nil {
		var pe *textpatch.Error
		if !errors.As(err, &pe) {
			pe = &textpatch.Error{Message: err.Error(), Err: err}
		}
		summary.Failure = pe
		recordReport(opts.Metrics, pe.Path, textpatch.Report{Steps: pe.Statuses}, false)
		logger.Error(ctx, "patch run failed", err,
			logging.F("code", pe.Code),
			logging.F("path", pe.Path),
			logging.F("step", pe.Step),
			logging.F("step_name", pe.StepName),
		)
		return summary, err
	}

	summary.Results = results
	for _, result := range results {
		recordReport(opts.Metrics, result.Name, result.Report, true)
		patchLogger := logger.WithFields(logging.F("patch", result.Name), logging.F("path", result.Path))
		for _, step := range result.Report.Steps {
			patchLogger.Debug(ctx, "step finished",
				logging.F("step", step.Index+1),
				logging.F("step_name", step.Name),
				logging.F("status", step.Status),
				logging.F("matches", step.Matches),
			)
		}
		patchLogger.Info(ctx, "patch finished",
			logging.F("status", result.Status),
			logging.F("applied", result.Report.Applied()),
			logging.F("steps", len(result.Report.Steps)),
		)
	}

	logger.Info(ctx, "patch run finished",
		logging.F("changed", summary.Written()),
		logging.F("duration", summary.Duration.String()),
	)
	return summary, nil
}
