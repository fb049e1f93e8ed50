// Package cli wires the patchkit commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/asynkron/patchkit/internal/logging"
	"github.com/asynkron/patchkit/internal/report"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const explainWidth = 100

// Environment variables that provide flag defaults.
const (
	EnvLogLevel  = "PATCHKIT_LOG_LEVEL"
	EnvLogFormat = "PATCHKIT_LOG_FORMAT"
	EnvStrict    = "PATCHKIT_STRICT"
)

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// reportedError marks failures whose details were already printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

type app struct {
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
	strictEnv bool
}

// Run executes patchkit with the provided CLI arguments.
// It returns a POSIX-style exit code: 0 on success, 1 when a run fails and 2 on
// usage errors.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced to help with debugging.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
			return exitFailure
		}
	}

	a := &app{stdout: stdout, stderr: stderr}
	if raw := strings.TrimSpace(os.Getenv(EnvStrict)); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			fmt.Fprintf(stderr, "invalid %s value %q: %v\n", EnvStrict, raw, err)
			return exitUsage
		}
		a.strictEnv = strict
	}

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var reported reportedError
	if errors.As(err, &reported) {
		return exitFailure
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)

	var usage usageError
	if errors.As(err, &usage) || isCobraUsageError(err) {
		return exitUsage
	}
	return exitFailure
}

// isCobraUsageError recognises the argument errors cobra produces itself.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "required flag")
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "patchkit",
		Short:         "Apply ordered find-and-replace pipelines to source files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	defaultLevel := os.Getenv(EnvLogLevel)
	if defaultLevel == "" {
		defaultLevel = "warn"
	}
	defaultFormat := os.Getenv(EnvLogFormat)
	if defaultFormat == "" {
		defaultFormat = "text"
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", defaultLevel, "minimum log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", defaultFormat, "log output format (text or json)")

	root.AddCommand(
		a.applyCommand(),
		a.checkCommand(),
		a.explainCommand(),
		a.replaceCommand(),
	)
	return root
}

func (a *app) logger() (logging.Logger, error) {
	logger, err := logging.New(a.logFormat, logging.ParseLevel(a.logLevel), a.stderr)
	if err != nil {
		return nil, usageError{err: err}
	}
	return logger, nil
}

func (a *app) printer() *report.Printer {
	return report.NewPrinter(a.stdout, report.DetectProfile(a.stdout))
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}
