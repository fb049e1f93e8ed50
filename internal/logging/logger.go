package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a case-insensitive level name to a Level, defaulting to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair in structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a Field from a key-value pair.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger provides structured logging capabilities with context support.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
}

// NoOpLogger is a logger that discards all log entries.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...Field)          {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...Field)           {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...Field)           {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ error, _ ...Field) {}
func (n *NoOpLogger) WithFields(_ ...Field) Logger                           { return n }

// TextLogger writes one line per entry, shaped for reading patch runs in a terminal:
//
//	2026-01-02T15:04:05Z WARN  run=171 patch=s92 path=a.js step=2:login | no match status=failed
//
// The scope fields (run ID from context, then patch, path and step) are pulled out of
// the field list in that fixed order and set off from the message by a bar. Remaining
// fields follow the message in the order they were added; the error comes last.
type TextLogger struct {
	fields   []Field
	minLevel Level
	logger   *log.Logger
}

// NewTextLogger creates a logger with the specified minimum level and writer.
// If writer is nil, logs are discarded.
func NewTextLogger(minLevel Level, writer io.Writer) *TextLogger {
	if writer == nil {
		writer = io.Discard
	}
	return &TextLogger{
		minLevel: minLevel,
		logger:   log.New(writer, "", 0),
	}
}

// scopeKeys are rendered ahead of the message, in this order.
var scopeKeys = []string{"patch", "path", "step"}

func (s *TextLogger) log(ctx context.Context, level Level, msg string, err error, fields ...Field) {
	if levelRank[level] < levelRank[s.minLevel] {
		return
	}

	// Later fields win, so a per-call step overrides one bound with WithFields.
	scope := map[string]any{}
	var stepName any
	rest := make([]Field, 0, len(s.fields)+len(fields))
	for _, f := range append(append([]Field(nil), s.fields...), fields...) {
		switch f.Key {
		case "patch", "path", "step":
			scope[f.Key] = f.Value
		case "step_name":
			stepName = f.Value
		default:
			rest = append(rest, f)
		}
	}

	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, " %-5s", level)

	hasScope := false
	writeScope := func(key string, value any) {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(value))
		hasScope = true
	}
	if runID := RunID(ctx); runID != "" {
		writeScope("run", runID)
	}
	for _, key := range scopeKeys {
		value, ok := scope[key]
		if key == "step" && stepName != nil && stepName != "" {
			if ok {
				value = fmt.Sprintf("%v:%v", value, stepName)
			} else {
				value, ok = stepName, true
			}
		}
		if ok {
			writeScope(key, value)
		}
	}
	if hasScope {
		b.WriteString(" |")
	}

	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range rest {
		fmt.Fprintf(&b, " %s=%s", f.Key, formatValue(f.Value))
	}
	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}

	s.logger.Println(b.String())
}

// formatValue quotes values that would otherwise blur into neighbouring fields.
func formatValue(value any) string {
	text := fmt.Sprint(value)
	if text == "" || strings.ContainsAny(text, " \t\n\"=|") {
		return fmt.Sprintf("%q", text)
	}
	return text
}

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

func (s *TextLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelDebug, msg, nil, fields...)
}

func (s *TextLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelInfo, msg, nil, fields...)
}

func (s *TextLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelWarn, msg, nil, fields...)
}

func (s *TextLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {
	s.log(ctx, LevelError, msg, err, fields...)
}

func (s *TextLogger) WithFields(fields ...Field) Logger {
	return &TextLogger{
		fields:   append(append([]Field(nil), s.fields...), fields...),
		minLevel: s.minLevel,
		logger:   s.logger,
	}
}

type runIDKey struct{}

// WithRunID adds a run ID to the context so every entry of one run can be correlated.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts the run ID from context, if present.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewRunID creates a run ID for log correlation.
func NewRunID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
