package command

import (
	"bytes"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/codec"
	"github.com/calderhale/keepsake-go/internal/config"
	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/core/snapshot"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/infra/buildinfo"
	"github.com/calderhale/keepsake-go/internal/storage"
	"github.com/calderhale/keepsake-go/internal/telemetry/logger"
	"github.com/calderhale/keepsake-go/pkg/crypto/aead"
)

// runtime bundles everything a command needs to operate on one saves
// directory. Close releases it in reverse assembly order.
type runtime struct {
	cfg     *config.Config
	engine  *service.Engine
	store   *storage.FileStore
	backups *storage.BackupManager
	journal *history.Journal
	logger  *slog.Logger
}

// Close shuts the engine down and then the journal under it.
func (r *runtime) Close() {
	if r.engine != nil {
		r.engine.Close()
	}
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.logger.Warn("journal close failed", "error", err)
		}
	}
}

// engineOptions selects optional parts of the assembly.
type engineOptions struct {
	// journal opens the operation journal when history is enabled.
	// Commands that never touch history leave it closed so a running
	// game keeps its lock on the journal directory.
	journal bool
}

// loadConfig builds the effective configuration for a command:
// defaults, config file, environment, then the --saves-dir override,
// verified as a whole.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("saves-dir"); dir != "" {
		cfg.Saves.Dir = dir
	}
	if err := config.Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cliLogger builds the stderr logger for one-shot commands. Quiet by
// default; --verbose switches to debug.
func cliLogger(c *cli.Context) *slog.Logger {
	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text", Output: os.Stderr})
	if err != nil {
		return slog.Default()
	}
	return l
}

// keyConfig translates the codec configuration section into key
// material. A key file wins over a passphrase.
func keyConfig(cfg *config.CodecSection) (codec.KeyConfig, error) {
	kc := codec.KeyConfig{
		KDF:       codec.KDF(cfg.KDF),
		Algorithm: aead.Algorithm(cfg.Algorithm),
	}
	if cfg.KeyFile != "" {
		raw, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return kc, domain.ErrConfigInvalid.WithDetailsf("codec.key_file %s", cfg.KeyFile).WithCause(err)
		}
		kc.Key = bytes.TrimSpace(raw)
		return kc, nil
	}
	if cfg.Passphrase != "" {
		kc.Passphrase = []byte(cfg.Passphrase)
	}
	return kc, nil
}

// formatVersion resolves the version stamped onto written artifacts.
func formatVersion(cfg *config.Config) string {
	if cfg.Saves.FormatVersion != "" {
		return cfg.Saves.FormatVersion
	}
	return buildinfo.Version
}

// historyDir resolves the journal directory, defaulting to the
// history subdirectory of the saves directory.
func historyDir(cfg *config.Config, store *storage.FileStore) string {
	if cfg.History.Dir != "" {
		return cfg.History.Dir
	}
	return store.Layout().HistoryDir()
}

// openEngine assembles the engine over the configured saves directory.
// The aggregator carries no collaborators; commands built on it only
// read, validate, repair, or delete artifacts and never collect or
// apply game state.
func openEngine(c *cli.Context, opt engineOptions) (*runtime, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, opt, cliLogger(c))
}

// assemble builds the runtime from an already verified configuration.
func assemble(cfg *config.Config, opt engineOptions, log *slog.Logger) (*runtime, error) {
	store, err := storage.NewFileStore(storage.FileStoreConfig{
		Dir:      cfg.Saves.Dir,
		MaxSlots: cfg.Saves.MaxSlots,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	var backups *storage.BackupManager
	if cfg.Backup.Enabled {
		backups, err = storage.NewBackupManager(storage.BackupManagerConfig{
			Layout:     store.Layout(),
			MaxPerSlot: cfg.Backup.MaxPerSlot,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
	}

	kc, err := keyConfig(&cfg.Codec)
	if err != nil {
		return nil, err
	}
	cd, err := codec.New(codec.Config{Key: kc})
	if err != nil {
		return nil, err
	}

	agg, err := snapshot.NewAggregator(snapshot.Config{
		FormatVersion: formatVersion(cfg),
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	var journal *history.Journal
	if opt.journal && cfg.History.Enabled {
		journal, err = history.Open(history.Config{
			Dir:        historyDir(cfg, store),
			MaxEntries: cfg.History.MaxEntries,
			GCInterval: cfg.History.GCInterval,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
	}

	engineCfg := service.EngineConfig{
		Aggregator: agg,
		Codec:      cd,
		Options: codec.Options{
			Compress: cfg.Codec.Compress,
			Encrypt:  cfg.Codec.Encrypt,
		},
		Store:         store,
		CreateBackups: cfg.Backup.Enabled && backups != nil,
		Logger:        log,
	}
	if backups != nil {
		engineCfg.Backups = backups
	}
	if journal != nil {
		engineCfg.Journal = journal
	}

	engine, err := service.NewEngine(engineCfg)
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		engine:  engine,
		store:   store,
		backups: backups,
		journal: journal,
		logger:  log,
	}, nil
}
