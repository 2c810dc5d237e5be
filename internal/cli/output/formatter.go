package output

import (
	"io"
	"strings"
)

// Format selects how command results are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat normalizes a --output flag value. Values it does not
// recognize render as a table.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON
	case FormatYAML:
		return FormatYAML
	default:
		return FormatTable
	}
}

// Structured reports whether the format is machine-readable. Commands
// keep prompts and progress bars off stdout when it is.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// Formatter renders a command result to a writer.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter returns the formatter for the given --output value. The
// wide flag only affects tables, where it reveals columns tagged
// `table:"wide"`.
func NewFormatter(format string, wide bool) Formatter {
	switch ParseFormat(format) {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{Wide: wide}
	}
}
