package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

type ShutdownFunc func() error

// NewLogger creates and returns a new structured logger using zap as the underlying
// logging implementation, wrapped with slog's interface. The logger is configured
// with production settings and ISO8601 time encoding for consistent log formatting.
//
// Returns:
//   - *slog.Logger: A structured logger instance that can be used throughout the exporter
//   - ShutdownFunc: flushes buffered log entries, call it before the process exits
//   - error: An error if the logger could not be initialized
func NewLogger(level string) (*slog.Logger, ShutdownFunc, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, err
		}
		logConfig.Level = zap.NewAtomicLevelAt(lvl)
	}
	zapLog, err := logConfig.Build()
	if err != nil {
		return nil, nil, err
	}
	f := newShutdownFunc(zapLog.Core())
	// we want the caller in our logs for debugging purposes, for now this is always set to true
	return slog.New(zapslog.NewHandler(zapLog.Core(), zapslog.WithCaller(true))), f, nil
}

func FallbackLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func newShutdownFunc(core zapcore.Core) ShutdownFunc {
	return func() error {
		return core.Sync()
	}
}

// SkipCallersForInfo logs a message at the given level with the given args, skipping the given number of callers
// the caller is the function that called this function plus one, i.e the function that called one of the Log* functions
func SkipCallersForInfo(ctx context.Context, logger *slog.Logger, level slog.Level, skip int, msg string, args ...any) {
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(ctx, r)
}

// RunLogger adds the run identity to every entry.
func RunLogger(logger *slog.Logger, uid string, scanID any) *slog.Logger {
	return logger.With("uid", uid, "scan_id", scanID)
}

func LogStageStarted(ctx context.Context, logger *slog.Logger, stage string, args ...any) {
	SkipCallersForInfo(ctx, logger, slog.LevelInfo, 3, "Stage started", append([]any{"stage", stage}, args...)...)
}

func LogStageFailed(ctx context.Context, logger *slog.Logger, stage string, err error) {
	// the run details have already been added to the logger
	SkipCallersForInfo(ctx, logger, slog.LevelError, 3, "Stage failed", "stage", stage, "error", err.Error())
}

func LogStageSuccess(ctx context.Context, logger *slog.Logger, stage string, args ...any) {
	SkipCallersForInfo(ctx, logger, slog.LevelInfo, 3, "Stage completed", append([]any{"stage", stage}, args...)...)
}

func LogRequestFailed(ctx context.Context, logger *slog.Logger, code int, errorMessage string) {
	SkipCallersForInfo(ctx, logger, slog.LevelInfo, 3, "Request failed", "code", code, "error", errorMessage)
}

func LogRequestSuccess(ctx context.Context, logger *slog.Logger, code int, args ...any) {
	SkipCallersForInfo(ctx, logger, slog.LevelInfo, 3, "Request successful", append([]any{"code", code}, args...)...)
}
