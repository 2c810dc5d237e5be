package command

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/codec"
	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/core/snapshot"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/storage"
)

const (
	testMaxSlots      = 5
	testFormatVersion = "2.0.0"
)

// staticCollaborator returns a fixed section on every snapshot.
type staticCollaborator struct {
	section string
}

func (s staticCollaborator) Snapshot() (json.RawMessage, error) {
	return json.RawMessage(s.section), nil
}

func (s staticCollaborator) Restore(json.RawMessage) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeConfig writes a configuration file over a fresh saves dir and
// returns the config path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()

	body := fmt.Sprintf(`saves:
  dir: %s
  max_slots: %d
  format_version: "%s"
log:
  level: warn
  format: text
%s`, filepath.Join(dir, "saves"), testMaxSlots, testFormatVersion, extra)

	path := filepath.Join(dir, "keepsake.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// savesDir extracts the saves directory a writeConfig file points at.
func savesDir(cfgPath string) string {
	return filepath.Join(filepath.Dir(cfgPath), "saves")
}

// seedEngine assembles an engine over the config's saves directory the
// same way the commands do, with one registered collaborator so saves
// carry a section. The returned closer releases the journal lock so a
// subsequent CLI invocation can reopen it.
func seedEngine(t *testing.T, cfgPath string, withJournal bool) (*service.Engine, func()) {
	t.Helper()
	log := discardLogger()

	store, err := storage.NewFileStore(storage.FileStoreConfig{
		Dir:      savesDir(cfgPath),
		MaxSlots: testMaxSlots,
		Logger:   log,
	})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	backups, err := storage.NewBackupManager(storage.BackupManagerConfig{
		Layout:     store.Layout(),
		MaxPerSlot: 3,
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("NewBackupManager: %v", err)
	}
	cd, err := codec.New(codec.Config{})
	if err != nil {
		t.Fatalf("codec.New: %v", err)
	}
	agg, err := snapshot.NewAggregator(snapshot.Config{
		FormatVersion: testFormatVersion,
		Logger:        log,
	})
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	if err := agg.RegisterEssential("player", staticCollaborator{`{"level":4,"scene":"dock"}`}); err != nil {
		t.Fatalf("RegisterEssential: %v", err)
	}

	cfg := service.EngineConfig{
		Aggregator:    agg,
		Codec:         cd,
		Options:       codec.Options{Compress: true},
		Store:         store,
		Backups:       backups,
		CreateBackups: true,
		Logger:        log,
	}
	var journal *history.Journal
	if withJournal {
		journal, err = history.Open(history.Config{
			Dir:    store.Layout().HistoryDir(),
			Logger: log,
		})
		if err != nil {
			t.Fatalf("history.Open: %v", err)
		}
		cfg.Journal = journal
	}

	engine, err := service.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	closeAll := func() {
		engine.Close()
		if journal != nil {
			journal.Close()
		}
	}
	t.Cleanup(closeAll)
	return engine, closeAll
}

// seedSlots saves the given slots through a temporary engine.
func seedSlots(t *testing.T, cfgPath string, withJournal bool, slots ...int) {
	t.Helper()
	engine, closeAll := seedEngine(t, cfgPath, withJournal)
	defer closeAll()

	for _, slot := range slots {
		if _, err := engine.Save(context.Background(), &service.SaveRequest{Slot: slot, Reason: "manual"}); err != nil {
			t.Fatalf("seed save slot %d: %v", slot, err)
		}
	}
}

// run executes the CLI with a config flag prepended.
func run(t *testing.T, cfgPath string, args ...string) error {
	t.Helper()
	full := append([]string{"keepsake", "--config", cfgPath}, args...)
	return App().Run(full)
}

// testContext builds a cli.Context carrying only the global flags.
func testContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := App()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range globalFlags() {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(app, set, nil)
}

// subcommand finds a subcommand by name.
func subcommand(t *testing.T, cmd *cli.Command, name string) *cli.Command {
	t.Helper()
	for _, sub := range cmd.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	t.Fatalf("subcommand %q not found under %q", name, cmd.Name)
	return nil
}

// flagNames collects the primary names of a command's flags.
func flagNames(cmd *cli.Command) map[string]bool {
	names := make(map[string]bool)
	for _, f := range cmd.Flags {
		names[f.Names()[0]] = true
	}
	return names
}
