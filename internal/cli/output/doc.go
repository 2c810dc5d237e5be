// Package output renders CLI results as tables, JSON, or YAML.
//
// Commands hand their result values to a Formatter picked from the
// --output flag. The table formatter reflects over structs and slices,
// deriving column headers from json tags; fields tagged `table:"wide"`
// only appear with --wide, and `table:"-"` hides a field from tables
// without affecting JSON or YAML output.
//
// ProgressBar and Spinner cover long-running commands: the bar for
// work with a known item count, the spinner for work without one.
package output
