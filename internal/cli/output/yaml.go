package output

import (
	"io"

	"go.yaml.in/yaml/v3"
)

// YAMLFormatter renders data as YAML.
type YAMLFormatter struct{}

// Format writes data as a single YAML document.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
