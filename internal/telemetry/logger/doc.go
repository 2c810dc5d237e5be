// Package logger builds the slog loggers used across Keepsake.
//
// New returns a plain *slog.Logger; components take and pass slog
// loggers directly rather than a wrapper interface. All loggers built
// here share one level variable, so SetLevel takes effect process-wide
// (the serve command uses this on config reload).
//
// Encryption passphrases and derived keys must never reach a log sink,
// so every handler applies a redaction pass to each attribute before
// emission. See redact.go for the key patterns covered.
package logger
