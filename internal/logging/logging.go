// Package logging builds the process logger. Everything in the module logs
// through *slog.Logger; the json format is backed by a zap production core.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/IshaanNene/BrokerScrape/internal/config"
)

// Logger is a slog logger plus the hook that flushes its backend.
type Logger struct {
	*slog.Logger
	sync func() error
}

// Sync flushes buffered entries. It is safe to call more than once.
func (l *Logger) Sync() error {
	if l.sync == nil {
		return nil
	}
	return l.sync()
}

// New builds a logger writing to stderr. verbose forces the debug level.
func New(cfg config.LoggingConfig, verbose bool) (*Logger, error) {
	return NewWriter(os.Stderr, cfg, verbose)
}

// NewWriter builds a logger writing to w.
func NewWriter(w io.Writer, cfg config.LoggingConfig, verbose bool) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	switch cfg.Format {
	case "", "text":
		handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
		return &Logger{Logger: slog.New(handler)}, nil
	case "json":
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), zapLevel(level))
		zl := zap.New(core)
		return &Logger{
			Logger: slog.New(zapslog.NewHandler(zl.Core())),
			sync:   zl.Sync,
		}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l <= slog.LevelInfo:
		return zapcore.InfoLevel
	case l <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
