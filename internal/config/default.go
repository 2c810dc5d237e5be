package config

import "time"

// Default configuration values.
const (
	DefaultSavesDir = "saves"
	DefaultMaxSlots = 10

	DefaultAutosaveSlot     = 0
	DefaultAutosaveInterval = 5 * time.Minute
	DefaultAutosaveDebounce = 2 * time.Second
	DefaultAutosaveMinGap   = 30 * time.Second

	DefaultMaxBackupsPerSlot = 3

	DefaultHistoryMaxEntries = 1000
	DefaultHistoryGCInterval = 10 * time.Minute

	DefaultServerAddr      = "127.0.0.1:6480"
	DefaultServerRateLimit = 10.0
	DefaultServerBurst     = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration. Encryption stays off until
// a passphrase or key file is provisioned; Verify rejects encryption
// without key material.
func Default() *Config {
	return &Config{
		Saves: SavesSection{
			Dir:      DefaultSavesDir,
			MaxSlots: DefaultMaxSlots,
		},
		Codec: CodecSection{
			Compress: true,
			Encrypt:  false,
		},
		Autosave: AutosaveSection{
			Enabled:  true,
			Slot:     DefaultAutosaveSlot,
			Interval: DefaultAutosaveInterval,
			Debounce: DefaultAutosaveDebounce,
			MinGap:   DefaultAutosaveMinGap,
		},
		Backup: BackupSection{
			Enabled:    true,
			MaxPerSlot: DefaultMaxBackupsPerSlot,
		},
		History: HistorySection{
			Enabled:    false,
			MaxEntries: DefaultHistoryMaxEntries,
			GCInterval: DefaultHistoryGCInterval,
		},
		Server: ServerSection{
			Enabled:   false,
			Addr:      DefaultServerAddr,
			RateLimit: DefaultServerRateLimit,
			Burst:     DefaultServerBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
