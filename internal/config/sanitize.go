package config

import "strings"

// Sanitize returns a copy of the configuration with key material masked,
// safe for logs and the config show command.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	if sanitized.Codec.Passphrase != "" {
		sanitized.Codec.Passphrase = maskSecret(sanitized.Codec.Passphrase)
	}
	return &sanitized
}

// maskSecret keeps the first and last two characters of a secret so an
// operator can tell which one is configured without reading it.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
