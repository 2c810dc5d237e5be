// Package confloader loads Keepsake configuration from layered sources.
//
// Sources merge in priority order (highest wins):
//
//  1. Environment variables (KEEPSAKE_ prefix)
//  2. YAML configuration file
//  3. Defaults carried by the target struct
//
// Keepsake configuration is two levels deep (section.key), so the first
// underscore after the env prefix separates the section from the key and
// later underscores stay part of the key name:
//
//	KEEPSAKE_SAVES_MAX_SLOTS=12   -> saves.max_slots
//	KEEPSAKE_LOG_LEVEL=debug      -> log.level
//
// The package also provides a file watcher used for live reload of the
// dynamic configuration subset.
package confloader
