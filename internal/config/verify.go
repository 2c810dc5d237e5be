package config

import (
	"os"
	"time"

	"github.com/calderhale/keepsake-go/internal/codec"
	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/pkg/crypto/aead"
)

// Slot and backup bounds of the save file format.
const (
	MaxSlotsCeiling     = 20
	MaxBackupsCeiling   = 10
	MinAutosaveInterval = 10 * time.Second
)

// Verify checks ranges and cross-field constraints and creates the saves
// directory. It returns ErrConfigInvalid with the offending key named.
func Verify(cfg *Config) error {
	if err := verifySaves(&cfg.Saves); err != nil {
		return err
	}
	if err := verifyCodec(&cfg.Codec); err != nil {
		return err
	}
	if err := verifyAutosave(&cfg.Autosave, cfg.Saves.MaxSlots); err != nil {
		return err
	}
	if err := verifyBackup(&cfg.Backup); err != nil {
		return err
	}
	if err := verifyHistory(&cfg.History); err != nil {
		return err
	}
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifySaves(cfg *SavesSection) error {
	if cfg.Dir == "" {
		return domain.ErrConfigInvalid.WithDetails("saves.dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return domain.ErrConfigInvalid.WithDetailsf("cannot create saves.dir %s", cfg.Dir).WithCause(err)
	}
	if cfg.MaxSlots < 1 || cfg.MaxSlots > MaxSlotsCeiling {
		return domain.ErrConfigInvalid.WithDetailsf("saves.max_slots must be in [1, %d], got %d", MaxSlotsCeiling, cfg.MaxSlots)
	}
	return nil
}

func verifyCodec(cfg *CodecSection) error {
	if cfg.Encrypt && cfg.Passphrase == "" && cfg.KeyFile == "" {
		return domain.ErrConfigInvalid.WithDetails("codec.encrypt requires codec.passphrase or codec.key_file")
	}
	if cfg.Passphrase != "" && len(cfg.Passphrase) < codec.MinPassphraseLength {
		return domain.ErrConfigInvalid.WithDetailsf("codec.passphrase must be at least %d characters", codec.MinPassphraseLength)
	}

	switch codec.KDF(cfg.KDF) {
	case "", codec.KDFRepeat, codec.KDFArgon2id:
	default:
		return domain.ErrConfigInvalid.WithDetailsf("codec.kdf %q is not recognized", cfg.KDF)
	}

	switch aead.Algorithm(cfg.Algorithm) {
	case "", aead.AlgorithmAuto, aead.AlgorithmAESGCM, aead.AlgorithmChaCha20:
	default:
		return domain.ErrConfigInvalid.WithDetailsf("codec.algorithm %q is not recognized", cfg.Algorithm)
	}
	return nil
}

func verifyAutosave(cfg *AutosaveSection, maxSlots int) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Slot < 0 || cfg.Slot >= maxSlots {
		return domain.ErrConfigInvalid.WithDetailsf("autosave.slot %d not in [0, %d)", cfg.Slot, maxSlots)
	}
	if cfg.Interval != 0 && cfg.Interval < MinAutosaveInterval {
		return domain.ErrConfigInvalid.WithDetailsf("autosave.interval must be 0 or at least %s, got %s", MinAutosaveInterval, cfg.Interval)
	}
	if cfg.Debounce < 0 || cfg.MinGap < 0 {
		return domain.ErrConfigInvalid.WithDetails("autosave.debounce and autosave.min_gap must not be negative")
	}
	return nil
}

func verifyBackup(cfg *BackupSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxPerSlot < 1 || cfg.MaxPerSlot > MaxBackupsCeiling {
		return domain.ErrConfigInvalid.WithDetailsf("backup.max_per_slot must be in [1, %d], got %d", MaxBackupsCeiling, cfg.MaxPerSlot)
	}
	return nil
}

func verifyHistory(cfg *HistorySection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxEntries < 0 {
		return domain.ErrConfigInvalid.WithDetails("history.max_entries must not be negative")
	}
	if cfg.GCInterval < 0 {
		return domain.ErrConfigInvalid.WithDetails("history.gc_interval must not be negative")
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Addr == "" {
		return domain.ErrConfigInvalid.WithDetails("server.addr is required when the server is enabled")
	}
	if cfg.RateLimit <= 0 {
		return domain.ErrConfigInvalid.WithDetailsf("server.rate_limit must be positive, got %v", cfg.RateLimit)
	}
	if cfg.Burst < 1 {
		return domain.ErrConfigInvalid.WithDetailsf("server.burst must be at least 1, got %d", cfg.Burst)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return domain.ErrConfigInvalid.WithDetailsf("log.level %q is not recognized", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return domain.ErrConfigInvalid.WithDetailsf("log.format %q is not recognized", cfg.Format)
	}
	return nil
}
