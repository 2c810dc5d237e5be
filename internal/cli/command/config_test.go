package command

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calderhale/keepsake-go/internal/config"
	"github.com/calderhale/keepsake-go/internal/core/domain"
)

func TestConfigCommand(t *testing.T) {
	cmd := ConfigCommand()
	if cmd.Name != "config" {
		t.Errorf("Name = %q, want %q", cmd.Name, "config")
	}

	show := subcommand(t, cmd, "show")
	if !flagNames(show)["reveal"] {
		t.Error("show command is missing the reveal flag")
	}
	subcommand(t, cmd, "validate")

	initCmd := subcommand(t, cmd, "init")
	names := flagNames(initCmd)
	for _, flag := range []string{"out", "force"} {
		if !names[flag] {
			t.Errorf("init command is missing the %s flag", flag)
		}
	}
}

func TestNewConfigView(t *testing.T) {
	view := newConfigView(config.Default())

	if view.Saves.MaxSlots != config.DefaultMaxSlots {
		t.Errorf("MaxSlots = %d, want %d", view.Saves.MaxSlots, config.DefaultMaxSlots)
	}
	if view.Autosave.Interval != "5m0s" {
		t.Errorf("Autosave.Interval = %q, want %q", view.Autosave.Interval, "5m0s")
	}
	if view.History.GCInterval != "10m0s" {
		t.Errorf("History.GCInterval = %q, want %q", view.History.GCInterval, "10m0s")
	}
}

func TestConfigShow(t *testing.T) {
	cfgPath := writeConfig(t, "")
	if err := run(t, cfgPath, "config", "show"); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if err := run(t, cfgPath, "--output", "json", "config", "show"); err != nil {
		t.Fatalf("config show --output json: %v", err)
	}
}

func TestConfigShow_BrokenConfigStillRenders(t *testing.T) {
	// show skips verification so a bad file can be inspected.
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	body := fmt.Sprintf("saves:\n  dir: %s\n  max_slots: 99\n", filepath.Join(dir, "saves"))
	if err := os.WriteFile(bad, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := run(t, bad, "config", "show"); err != nil {
		t.Fatalf("config show on invalid config: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfgPath := writeConfig(t, "")
	if err := run(t, cfgPath, "config", "validate"); err != nil {
		t.Fatalf("config validate: %v", err)
	}
}

func TestConfigValidate_Invalid(t *testing.T) {
	cfgPath := writeConfig(t, "")

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	body := fmt.Sprintf("saves:\n  dir: %s\n  max_slots: 99\n", filepath.Join(dir, "saves"))
	if err := os.WriteFile(bad, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// The positional FILE wins over the global --config flag.
	err := run(t, cfgPath, "config", "validate", bad)
	if !domain.IsDomainError(err, domain.ErrConfigInvalid.Code) {
		t.Fatalf("config validate on bad file = %v, want %s", err, domain.ErrConfigInvalid.Code)
	}
}

func TestConfigInit(t *testing.T) {
	cfgPath := writeConfig(t, "")
	out := filepath.Join(t.TempDir(), "keepsake.yaml")

	if err := run(t, cfgPath, "config", "init", "--out", out); err != nil {
		t.Fatalf("config init: %v", err)
	}

	// The starter file must load back with the default values.
	cfg, err := config.Load(out)
	if err != nil {
		t.Fatalf("load starter config: %v", err)
	}
	if cfg.Saves.MaxSlots != config.DefaultMaxSlots {
		t.Errorf("MaxSlots = %d, want %d", cfg.Saves.MaxSlots, config.DefaultMaxSlots)
	}
	if cfg.Autosave.Interval != 5*time.Minute {
		t.Errorf("Autosave.Interval = %v, want 5m", cfg.Autosave.Interval)
	}
	if cfg.Server.Addr != config.DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, config.DefaultServerAddr)
	}
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	cfgPath := writeConfig(t, "")
	out := filepath.Join(t.TempDir(), "keepsake.yaml")

	if err := os.WriteFile(out, []byte("saves: {}\n"), 0o600); err != nil {
		t.Fatalf("write existing file: %v", err)
	}

	err := run(t, cfgPath, "config", "init", "--out", out)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("config init over existing file = %v, want overwrite refusal", err)
	}

	if err := run(t, cfgPath, "config", "init", "--force", "--out", out); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}
