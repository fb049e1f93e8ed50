package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.Logger to the Logger interface and emits JSON entries.
type ZapLogger struct {
	base *zap.Logger
}

// NewZapLogger builds a JSON logger writing to writer at the given minimum level.
func NewZapLogger(minLevel Level, writer io.Writer) *ZapLogger {
	if writer == nil {
		return &ZapLogger{base: zap.NewNop()}
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(writer),
		zap.NewAtomicLevelAt(zapLevel(minLevel)),
	)
	return &ZapLogger{base: zap.New(core)}
}

// WrapZap exposes an existing zap logger through the Logger interface.
func WrapZap(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{base: base}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *ZapLogger) zapFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	if runID := RunID(ctx); runID != "" {
		out = append(out, zap.String("run_id", runID))
	}
	return out
}

func (z *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	z.base.Debug(msg, z.zapFields(ctx, fields)...)
}

func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.base.Info(msg, z.zapFields(ctx, fields)...)
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.base.Warn(msg, z.zapFields(ctx, fields)...)
}

func (z *ZapLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {
	zf := z.zapFields(ctx, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	z.base.Error(msg, zf...)
}

func (z *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{base: z.base.With(z.zapFields(context.Background(), fields)...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.base.Sync()
}

// New returns a logger for the given format ("text" or "json").
func New(format string, minLevel Level, writer io.Writer) (Logger, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return NewTextLogger(minLevel, writer), nil
	case "json":
		return NewZapLogger(minLevel, writer), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
