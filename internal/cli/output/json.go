package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter renders data as indented JSON.
type JSONFormatter struct{}

// Format writes data as JSON with two-space indentation.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
