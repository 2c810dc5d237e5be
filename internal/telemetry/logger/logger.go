package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler built by New.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, or error.
	Level string
	// Format picks the handler: json (the default) or text.
	Format string
	// Output is the destination writer. Defaults to os.Stderr.
	Output io.Writer
	// AddSource annotates each record with the caller's file and line.
	AddSource bool
}

// level is shared by every handler built by New, so SetLevel can
// adjust a running process without rebuilding its loggers.
var level = new(slog.LevelVar)

// New builds a *slog.Logger whose handler redacts key material from
// every attribute before emission. There is no wrapper type; callers
// hold and pass plain slog loggers.
func New(cfg Config) (*slog.Logger, error) {
	lv, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.Set(lv)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redactAttr,
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	case "text", "console":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// SetLevel adjusts the shared level of every logger built by New.
// Unrecognized names are ignored so a bad reload cannot silence or
// flood a running process.
func SetLevel(name string) {
	if lv, err := parseLevel(name); err == nil {
		level.Set(lv)
	}
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
