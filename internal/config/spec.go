package config

import "time"

// Config is the root Keepsake configuration.
type Config struct {
	Saves    SavesSection    `koanf:"saves" json:"saves" yaml:"saves"`
	Codec    CodecSection    `koanf:"codec" json:"codec" yaml:"codec"`
	Autosave AutosaveSection `koanf:"autosave" json:"autosave" yaml:"autosave"`
	Backup   BackupSection   `koanf:"backup" json:"backup" yaml:"backup"`
	History  HistorySection  `koanf:"history" json:"history" yaml:"history"`
	Server   ServerSection   `koanf:"server" json:"server" yaml:"server"`
	Log      LogSection      `koanf:"log" json:"log" yaml:"log"`
}

// SavesSection configures the slot store.
type SavesSection struct {
	// Dir is the saves directory. Created by Verify when missing.
	Dir string `koanf:"dir" json:"dir" yaml:"dir"`

	// MaxSlots is the number of addressable slots (1..20).
	MaxSlots int `koanf:"max_slots" json:"max_slots" yaml:"max_slots"`

	// FormatVersion is stamped onto every written artifact. Empty means
	// the build version.
	FormatVersion string `koanf:"format_version" json:"format_version" yaml:"format_version"`
}

// CodecSection configures the encode pipeline.
type CodecSection struct {
	Compress bool `koanf:"compress" json:"compress" yaml:"compress"`
	Encrypt  bool `koanf:"encrypt" json:"encrypt" yaml:"encrypt"`

	// Passphrase is stretched into the cipher key. Required when
	// Encrypt is set and KeyFile is empty.
	Passphrase string `koanf:"passphrase" json:"passphrase" yaml:"passphrase"`

	// KeyFile names a file holding raw key material (16, 24, or 32
	// bytes). Wins over Passphrase.
	KeyFile string `koanf:"key_file" json:"key_file" yaml:"key_file"`

	// KDF selects the passphrase derivation scheme: "repeat" (matches
	// artifacts from earlier releases) or "argon2id". Empty means
	// repeat.
	KDF string `koanf:"kdf" json:"kdf" yaml:"kdf"`

	// Algorithm selects the cipher: "auto", "aes-gcm", or
	// "chacha20-poly1305". Empty means auto.
	Algorithm string `koanf:"algorithm" json:"algorithm" yaml:"algorithm"`
}

// AutosaveSection configures the autosave scheduler.
type AutosaveSection struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	// Slot is the reserved autosave slot.
	Slot int `koanf:"slot" json:"slot" yaml:"slot"`

	// Interval drives timer-based saves. Zero disables the timer,
	// leaving event triggers only; non-zero must be at least 10s.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`

	// Debounce delays an event-triggered save so a burst of triggers
	// produces one save.
	Debounce time.Duration `koanf:"debounce" json:"debounce" yaml:"debounce"`

	// MinGap is the minimum spacing between event-triggered saves.
	MinGap time.Duration `koanf:"min_gap" json:"min_gap" yaml:"min_gap"`
}

// BackupSection configures rotation of slot backups.
type BackupSection struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	// MaxPerSlot caps retained backups per slot (1..10).
	MaxPerSlot int `koanf:"max_per_slot" json:"max_per_slot" yaml:"max_per_slot"`
}

// HistorySection configures the operation journal.
type HistorySection struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	// Dir is the journal database directory. Empty means
	// <saves.dir>/history.
	Dir string `koanf:"dir" json:"dir" yaml:"dir"`

	// MaxEntries bounds retained entries; older ones are pruned.
	MaxEntries int `koanf:"max_entries" json:"max_entries" yaml:"max_entries"`

	// GCInterval paces the journal's background maintenance.
	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
}

// ServerSection configures the read-only diagnostics server.
type ServerSection struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" json:"addr" yaml:"addr"`

	// RateLimit is the per-client request budget in requests per
	// second; Burst is the momentary allowance above it.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `koanf:"burst" json:"burst" yaml:"burst"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
