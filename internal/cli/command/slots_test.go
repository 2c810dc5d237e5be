package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/storage"
)

func TestSlotsCommand(t *testing.T) {
	cmd := SlotsCommand()
	if cmd.Name != "slots" {
		t.Errorf("Name = %q, want %q", cmd.Name, "slots")
	}

	for _, name := range []string{"list", "show", "delete", "export"} {
		subcommand(t, cmd, name)
	}

	list := subcommand(t, cmd, "list")
	if len(list.Aliases) == 0 || list.Aliases[0] != "ls" {
		t.Errorf("list aliases = %v, want [ls]", list.Aliases)
	}
	if !flagNames(subcommand(t, cmd, "delete"))["force"] {
		t.Error("delete command is missing the force flag")
	}
	if !flagNames(subcommand(t, cmd, "export"))["out"] {
		t.Error("export command is missing the out flag")
	}
}

func TestNewSlotRow(t *testing.T) {
	savedAt := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	info := service.SlotInfo{
		Slot:     2,
		Occupied: true,
		Backups:  3,
		Metadata: &domain.SlotMetadata{
			Slot:            2,
			PlayerLevel:     12,
			SceneName:       "harbor",
			PlayTimeSeconds: 90.4,
			FileSize:        2048,
			Valid:           true,
			SavedAt:         savedAt,
			FormatVersion:   "2.0.0",
		},
	}

	row := newSlotRow(info)
	if row.PlayerLevel == nil || *row.PlayerLevel != 12 {
		t.Errorf("PlayerLevel = %v, want 12", row.PlayerLevel)
	}
	if row.SceneName != "harbor" {
		t.Errorf("SceneName = %q, want %q", row.SceneName, "harbor")
	}
	if row.PlayTime != "1m30s" {
		t.Errorf("PlayTime = %q, want %q", row.PlayTime, "1m30s")
	}
	if row.Size != "2.0 KB" {
		t.Errorf("Size = %q, want %q", row.Size, "2.0 KB")
	}
	if row.SavedAt == nil || !row.SavedAt.Equal(savedAt) {
		t.Errorf("SavedAt = %v, want %v", row.SavedAt, savedAt)
	}
	if row.Valid == nil || !*row.Valid {
		t.Errorf("Valid = %v, want true", row.Valid)
	}
	if row.Backups != 3 {
		t.Errorf("Backups = %d, want 3", row.Backups)
	}
}

func TestNewSlotRow_Empty(t *testing.T) {
	row := newSlotRow(service.SlotInfo{Slot: 4})
	if row.PlayerLevel != nil || row.SavedAt != nil || row.Valid != nil {
		t.Errorf("empty slot row carries metadata: %+v", row)
	}
	if row.Occupied {
		t.Error("Occupied = true, want false")
	}
}

func TestSlotsList_EmptyDir(t *testing.T) {
	cfgPath := writeConfig(t, "")
	if err := run(t, cfgPath, "slots", "list"); err != nil {
		t.Fatalf("slots list: %v", err)
	}
}

func TestSlotsList_JSON(t *testing.T) {
	cfgPath := writeConfig(t, "")
	seedSlots(t, cfgPath, false, 0, 2)

	if err := run(t, cfgPath, "--output", "json", "slots", "list"); err != nil {
		t.Fatalf("slots list --output json: %v", err)
	}
}

func TestSlotsShow_EmptySlot(t *testing.T) {
	cfgPath := writeConfig(t, "")
	if err := run(t, cfgPath, "slots", "show", "3"); err != nil {
		t.Fatalf("slots show on empty slot: %v", err)
	}
}

func TestSlotsShow_OutOfRange(t *testing.T) {
	cfgPath := writeConfig(t, "")
	err := run(t, cfgPath, "slots", "show", "99")
	if !domain.IsDomainError(err, domain.ErrInvalidSlot.Code) {
		t.Fatalf("slots show 99 = %v, want %s", err, domain.ErrInvalidSlot.Code)
	}
}

func TestSlotsDelete_Force(t *testing.T) {
	cfgPath := writeConfig(t, "")
	seedSlots(t, cfgPath, false, 1, 1) // second save creates a backup

	layout := storage.Layout{Dir: savesDir(cfgPath)}
	if _, err := os.Stat(layout.SlotPath(1)); err != nil {
		t.Fatalf("seeded slot missing: %v", err)
	}

	if err := run(t, cfgPath, "slots", "delete", "--force", "1"); err != nil {
		t.Fatalf("slots delete: %v", err)
	}

	if _, err := os.Stat(layout.SlotPath(1)); !os.IsNotExist(err) {
		t.Errorf("slot artifact still present after delete: %v", err)
	}
	if _, err := os.Stat(layout.MetadataPath(1)); !os.IsNotExist(err) {
		t.Errorf("metadata still present after delete: %v", err)
	}
}

func TestSlotsDelete_AlreadyEmpty(t *testing.T) {
	cfgPath := writeConfig(t, "")
	// Without --force the empty check answers before any prompt.
	if err := run(t, cfgPath, "slots", "delete", "2"); err != nil {
		t.Fatalf("slots delete on empty slot: %v", err)
	}
}

func TestSlotsExport_File(t *testing.T) {
	cfgPath := writeConfig(t, "")
	seedSlots(t, cfgPath, false, 2)

	out := filepath.Join(t.TempDir(), "slot2.json")
	if err := run(t, cfgPath, "slots", "export", "--out", out, "2"); err != nil {
		t.Fatalf("slots export: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var record domain.RootSaveRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if record.FormatVersion != testFormatVersion {
		t.Errorf("FormatVersion = %q, want %q", record.FormatVersion, testFormatVersion)
	}
	if _, ok := record.Sections["player"]; !ok {
		t.Errorf("Sections = %v, want player section", record.Sections)
	}
}

func TestSlotsExport_EmptySlot(t *testing.T) {
	cfgPath := writeConfig(t, "")
	err := run(t, cfgPath, "slots", "export", "1")
	if !domain.IsDomainError(err, domain.ErrSlotEmpty.Code) {
		t.Fatalf("slots export on empty slot = %v, want %s", err, domain.ErrSlotEmpty.Code)
	}
}

func TestSlotArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr string
	}{
		{name: "valid", args: []string{"7"}, want: 7},
		{name: "missing", args: nil, wantErr: "slot number required"},
		{name: "garbage", args: []string{"x7"}, wantErr: "invalid slot"},
		{name: "trailing junk", args: []string{"3abc"}, wantErr: "invalid slot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := slotArg(testContext(t, tt.args...))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("slotArg(%v) error = %v, want containing %q", tt.args, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("slotArg(%v): %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("slotArg(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
