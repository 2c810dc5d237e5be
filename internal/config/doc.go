// Package config defines the Keepsake configuration surface.
//
// A Config is assembled from defaults, an optional YAML file, and
// KEEPSAKE_-prefixed environment variables, in that order. Legacy flat
// camelCase options from earlier save-system releases (useEncryption,
// maxSaveSlots, ...) are accepted in the file and mapped onto their
// canonical nested keys before unmarshaling.
//
// Verify enforces ranges and creates the saves directory; Sanitize
// masks key material for logs and the config show command.
package config
