package logger

import (
	"log/slog"
	"strings"
)

// Key substrings that mark an attribute as secret. Keepsake's only
// real secrets are the encryption passphrase and derived key material,
// but the net is cast wider so a renamed config field stays covered.
var secretKeyMarks = []string{
	"passphrase",
	"password",
	"secret",
	"key",
	"credential",
}

// redactedValue replaces secret strings in log output.
const redactedValue = "***REDACTED***"

// redactAttr is the ReplaceAttr hook for every handler built by New.
// The built-in slog handlers invoke it once per leaf attribute,
// including attributes nested inside groups, so a single string check
// covers the whole record. Only non-empty strings are replaced; empty
// values and non-string kinds pass through.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString && secretKey(a.Key) && a.Value.String() != "" {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

func secretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, mark := range secretKeyMarks {
		if strings.Contains(lower, mark) {
			return true
		}
	}
	return false
}
