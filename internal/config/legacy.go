package config

import (
	"strconv"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/infra/confloader"
)

// legacyAliases maps the flat camelCase options of earlier save-system
// releases onto their canonical nested keys. Old save installations keep
// working with their existing config files.
var legacyAliases = map[string]string{
	"useEncryption":    "codec.encrypt",
	"compressData":     "codec.compress",
	"maxSaveSlots":     "saves.max_slots",
	"enableAutoSave":   "autosave.enabled",
	"autoSaveInterval": "autosave.interval",
	"createBackups":    "backup.enabled",
	"maxBackups":       "backup.max_per_slot",
}

// applyLegacy copies recognized legacy keys onto their canonical
// equivalents. A canonical key already present wins, so modern files and
// environment overrides are never clobbered by old spellings.
func applyLegacy(l *confloader.Loader) error {
	mapped := make(map[string]any)
	for legacy, canonical := range legacyAliases {
		if !l.Has(legacy) || l.Has(canonical) {
			continue
		}
		value := l.Get(legacy)
		// The legacy interval is a bare number of seconds, not a
		// duration string.
		if legacy == "autoSaveInterval" {
			d, err := secondsToDuration(value)
			if err != nil {
				return err
			}
			value = d
		}
		mapped[canonical] = value
	}
	if len(mapped) == 0 {
		return nil
	}
	return l.LoadMap(mapped)
}

func secondsToDuration(v any) (time.Duration, error) {
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Second, nil
	case int64:
		return time.Duration(n) * time.Second, nil
	case float64:
		return time.Duration(n * float64(time.Second)), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, domain.ErrConfigInvalid.WithDetailsf("autoSaveInterval %q is not a number of seconds", n)
		}
		return time.Duration(f * float64(time.Second)), nil
	default:
		return 0, domain.ErrConfigInvalid.WithDetailsf("autoSaveInterval has unsupported type %T", v)
	}
}
