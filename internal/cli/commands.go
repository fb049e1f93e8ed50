package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asynkron/patchkit/internal/config"
	"github.com/asynkron/patchkit/internal/runner"
	"github.com/asynkron/patchkit/pkg/textpatch"
)

type runFlags struct {
	strict  bool
	dryRun  bool
	diff    bool
	only    string
	verbose bool
}

func (a *app) applyCommand() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "apply <config>",
		Short: "Run every patch of a configuration file and write the results",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfig(cmd, args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.strict, "strict", a.strictEnv, "fail on pattern misses, expectation violations and unbalanced replacements")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "run every patch without writing files")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a unified diff of every changed file")
	cmd.Flags().StringVar(&flags.only, "only", "", "run only the patch with this name")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "list every step with its status and match count")
	return cmd
}

func (a *app) checkCommand() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "check <config>",
		Short: "Dry-run a configuration file in strict mode and report match counts",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.strict = true
			flags.dryRun = true
			flags.verbose = true
			return a.runConfig(cmd, args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a unified diff of every file that would change")
	cmd.Flags().StringVar(&flags.only, "only", "", "check only the patch with this name")
	return cmd
}

func (a *app) explainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <config>",
		Short: "Describe the patches of a configuration file",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			file, err := config.Load(args[0])
			if err != nil {
				return err
			}
			return a.printer().Explain(file, explainWidth)
		},
	}
}

func (a *app) runConfig(cmd *cobra.Command, path string, flags runFlags) error {
	logger, err := a.logger()
	if err != nil {
		return err
	}
	file, err := config.Load(path)
	if err != nil {
		return err
	}

	summary, err := runner.Run(cmd.Context(), file, runner.Options{
		DryRun: flags.dryRun,
		Strict: flags.strict,
		Only:   flags.only,
		Logger: logger,
	})
	return a.finish(summary, err, flags)
}

func (a *app) finish(summary runner.Summary, err error, flags runFlags) error {
	// Configuration and pattern errors surface before any patch runs.
	if err != nil && summary.Failure == nil {
		return err
	}
	printer := a.printer()
	printer.Summary(summary, flags.verbose)
	if err != nil {
		return reportedError{err: err}
	}
	if flags.diff {
		if err := printer.Diffs(summary.Results); err != nil {
			return err
		}
	}
	return nil
}

type replaceFlags struct {
	runFlags
	target          string
	pattern         string
	replacement     string
	replacementFile string
	mode            string
	kind            string
	engine          string
	dotAll          bool
	multiline       bool
	expand          bool
	trim            bool
	printConfig     bool
}

func (a *app) replaceCommand() *cobra.Command {
	var flags replaceFlags
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Apply a single step to one file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			replacementSet := cmd.Flags().Changed("replacement")
			if replacementSet == (flags.replacementFile != "") {
				return usageError{err: errors.New("exactly one of --replacement or --replacement-file is required")}
			}
			file := flags.configFile(replacementSet)
			if flags.printConfig {
				return config.Write(a.stdout, file)
			}

			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to determine working directory: %w", err)
			}
			file.BaseDir = wd
			logger, err := a.logger()
			if err != nil {
				return err
			}
			summary, err := runner.Run(cmd.Context(), file, runner.Options{
				DryRun: flags.dryRun,
				Strict: flags.strict,
				Logger: logger,
			})
			return a.finish(summary, err, flags.runFlags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.target, "target", "", "file to patch")
	f.StringVar(&flags.pattern, "pattern", "", "pattern to match (the opening token for --kind block)")
	f.StringVar(&flags.replacement, "replacement", "", "replacement text")
	f.StringVar(&flags.replacementFile, "replacement-file", "", "file whose contents become the replacement")
	f.StringVar(&flags.mode, "mode", string(textpatch.ModeReplaceFirst), "replace-first, replace-all, insert-after or insert-before")
	f.StringVar(&flags.kind, "kind", string(textpatch.KindRegex), "literal, regex or block")
	f.StringVar(&flags.engine, "engine", string(textpatch.EngineRegexp2), "regex engine (regexp2 or re2)")
	f.BoolVar(&flags.dotAll, "dotall", false, "let . match newlines")
	f.BoolVar(&flags.multiline, "multiline", false, "let ^ and $ match at line boundaries")
	f.BoolVar(&flags.expand, "expand", false, "expand $1 and ${name} references in the replacement")
	f.BoolVar(&flags.trim, "trim", false, "strip surrounding whitespace from the replacement")
	f.BoolVar(&flags.strict, "strict", a.strictEnv, "fail when the pattern does not match")
	f.BoolVar(&flags.dryRun, "dry-run", false, "do not write the file")
	f.BoolVar(&flags.diff, "diff", false, "print a unified diff of the change")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "list the step with its status and match count")
	f.BoolVar(&flags.printConfig, "print-config", false, "print the equivalent configuration file instead of running")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func (f replaceFlags) configFile(inline bool) *config.File {
	match := config.MatchSpec{Kind: strings.TrimSpace(f.kind)}
	if match.Kind == string(textpatch.KindBlock) {
		match.Open = f.pattern
	} else {
		match.Pattern = f.pattern
	}
	if match.Kind == string(textpatch.KindRegex) {
		match.Engine = f.engine
		match.DotAll = f.dotAll
		match.Multiline = f.multiline
	}

	step := config.StepSpec{
		Mode:            f.mode,
		Match:           match,
		ReplacementFile: f.replacementFile,
		Trim:            f.trim,
		Expand:          f.expand,
	}
	if inline {
		replacement := f.replacement
		step.Replacement = &replacement
	}

	return &config.File{
		Version: 1,
		Patches: []config.PatchSpec{{Target: f.target, Steps: []config.StepSpec{step}}},
	}
}
