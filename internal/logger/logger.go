// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"

	"listings-cms/internal/config"
)

// Logger is nil until InitLogger runs; the helpers then fall back to slog.Default.
var Logger *slog.Logger

// New builds the JSON logger used by every binary. Gin's debug mode lowers
// the level to debug and adds source positions; test mode only keeps warnings.
func New(w io.Writer, ginMode string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch ginMode {
	case "debug":
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	case "test":
		opts.Level = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With("service", "listings-cms")
}

func InitLogger(cfg *config.Config) {
	Logger = New(os.Stdout, cfg.GinMode)
	slog.SetDefault(Logger)
	Logger.Debug("logger ready", "gin_mode", cfg.GinMode)
}

func current() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.Default()
}

func Info(msg string, args ...any)  { current().Info(msg, args...) }
func Error(msg string, args ...any) { current().Error(msg, args...) }
func Debug(msg string, args ...any) { current().Debug(msg, args...) }
func Warn(msg string, args ...any)  { current().Warn(msg, args...) }

// With returns a child logger carrying args on every line.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}
