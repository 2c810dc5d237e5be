package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/calderhale/keepsake-go/internal/core/domain"
)

// fakeCollaborator is a scripted test subsystem.
type fakeCollaborator struct {
	snapshot    json.RawMessage
	snapshotErr error
	restored    []json.RawMessage
	restoreErr  error
}

func (f *fakeCollaborator) Snapshot() (json.RawMessage, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeCollaborator) Restore(section json.RawMessage) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restored = append(f.restored, section)
	return nil
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(Config{FormatVersion: "1.4.2"})
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg
}

func TestNewAggregator_RequiresFormatVersion(t *testing.T) {
	_, err := NewAggregator(Config{})
	if !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("NewAggregator without format version = %v, want ErrConfigInvalid", err)
	}
}

func TestAggregator_Register(t *testing.T) {
	agg := newTestAggregator(t)
	c := &fakeCollaborator{}

	tests := []struct {
		name    string
		section string
		c       Collaborator
		wantErr bool
	}{
		{"valid", "player", c, false},
		{"duplicate", "player", c, true},
		{"empty name", "", c, true},
		{"name too long", strings.Repeat("x", domain.MaxSectionNameLength+1), c, true},
		{"nil collaborator", "world", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := agg.Register(tt.section, tt.c)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfigInvalid) {
					t.Errorf("Register() = %v, want ErrConfigInvalid", err)
				}
			} else if err != nil {
				t.Errorf("Register() = %v, want nil", err)
			}
		})
	}
}

func TestAggregator_RegistryFull(t *testing.T) {
	agg := newTestAggregator(t)
	c := &fakeCollaborator{}

	for i := 0; i < domain.MaxSections; i++ {
		if err := agg.Register(fmt.Sprintf("section-%d", i), c); err != nil {
			t.Fatalf("Register(%d): %v", i, err)
		}
	}

	if err := agg.Register("one-too-many", c); !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("Register past cap = %v, want ErrConfigInvalid", err)
	}
}

func TestAggregator_Unregister(t *testing.T) {
	agg := newTestAggregator(t)

	if err := agg.Register(domain.SectionPlayer, &fakeCollaborator{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	agg.Unregister(domain.SectionPlayer)
	if names := agg.Names(); len(names) != 0 {
		t.Errorf("Names() after Unregister = %v, want empty", names)
	}

	// Unregistering an unknown name is a no-op.
	agg.Unregister("never-registered")
}

func TestAggregator_Names(t *testing.T) {
	agg := newTestAggregator(t)
	c := &fakeCollaborator{}

	for _, name := range []string{domain.SectionWorld, domain.SectionPlayer, domain.SectionQuests} {
		if err := agg.Register(name, c); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	names := agg.Names()
	want := []string{domain.SectionPlayer, domain.SectionQuests, domain.SectionWorld}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestAggregator_Collect(t *testing.T) {
	agg, err := NewAggregator(Config{
		FormatVersion: "1.4.2",
		PlayTime:      func() float64 { return 3600.5 },
	})
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	player := &fakeCollaborator{snapshot: json.RawMessage(`{"level":7}`)}
	world := &fakeCollaborator{snapshot: json.RawMessage(`{"scene":"harbor"}`)}
	settings := &fakeCollaborator{snapshot: nil} // nothing to persist

	if err := agg.Register(domain.SectionPlayer, player); err != nil {
		t.Fatal(err)
	}
	if err := agg.Register(domain.SectionWorld, world); err != nil {
		t.Fatal(err)
	}
	if err := agg.Register(domain.SectionSettings, settings); err != nil {
		t.Fatal(err)
	}

	record, err := agg.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if record.FormatVersion != "1.4.2" {
		t.Errorf("FormatVersion = %q, want 1.4.2", record.FormatVersion)
	}
	if record.PlayTimeSeconds != 3600.5 {
		t.Errorf("PlayTimeSeconds = %v, want 3600.5", record.PlayTimeSeconds)
	}
	if record.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}

	playerRaw, _ := record.Section(domain.SectionPlayer)
	if got := string(playerRaw); got != `{"level":7}` {
		t.Errorf("player section = %s", got)
	}
	worldRaw, _ := record.Section(domain.SectionWorld)
	if got := string(worldRaw); got != `{"scene":"harbor"}` {
		t.Errorf("world section = %s", got)
	}

	// A collaborator with nothing to persist is omitted, not an error.
	if settingsRaw, _ := record.Section(domain.SectionSettings); settingsRaw != nil {
		t.Error("settings section should be omitted")
	}
	if names := record.SectionNames(); len(names) != 2 {
		t.Errorf("SectionNames() = %v, want 2 entries", names)
	}
}

func TestAggregator_Collect_EmptyRegistry(t *testing.T) {
	agg := newTestAggregator(t)

	record, err := agg.Collect()
	if err != nil {
		t.Fatalf("Collect with no collaborators: %v", err)
	}
	if len(record.Sections) != 0 {
		t.Errorf("Sections = %v, want empty", record.Sections)
	}
}

func TestAggregator_Collect_SnapshotError(t *testing.T) {
	agg := newTestAggregator(t)

	bad := &fakeCollaborator{snapshotErr: errors.New("inventory iterator broken")}
	if err := agg.Register(domain.SectionInventory, bad); err != nil {
		t.Fatal(err)
	}

	_, err := agg.Collect()
	if !errors.Is(err, domain.ErrSerialization) {
		t.Fatalf("Collect = %v, want ErrSerialization", err)
	}
	if !strings.Contains(err.Error(), domain.SectionInventory) {
		t.Errorf("error should name the failing section: %v", err)
	}
}

func TestAggregator_Collect_InvalidSectionJSON(t *testing.T) {
	agg := newTestAggregator(t)

	bad := &fakeCollaborator{snapshot: json.RawMessage(`{"level":`)}
	if err := agg.Register(domain.SectionPlayer, bad); err != nil {
		t.Fatal(err)
	}

	_, err := agg.Collect()
	if !errors.Is(err, domain.ErrSerialization) {
		t.Errorf("Collect with invalid JSON = %v, want ErrSerialization", err)
	}
}

func TestAggregator_CollectMinimal(t *testing.T) {
	agg := newTestAggregator(t)

	player := &fakeCollaborator{snapshot: json.RawMessage(`{"hp":20}`)}
	world := &fakeCollaborator{snapshot: json.RawMessage(`{"scene":"keep"}`)}
	quests := &fakeCollaborator{snapshot: json.RawMessage(`{"active":[]}`)}

	if err := agg.RegisterEssential(domain.SectionPlayer, player); err != nil {
		t.Fatal(err)
	}
	if err := agg.RegisterEssential(domain.SectionWorld, world); err != nil {
		t.Fatal(err)
	}
	if err := agg.Register(domain.SectionQuests, quests); err != nil {
		t.Fatal(err)
	}

	record, err := agg.CollectMinimal()
	if err != nil {
		t.Fatalf("CollectMinimal: %v", err)
	}

	if playerRaw, _ := record.Section(domain.SectionPlayer); playerRaw == nil {
		t.Error("essential player section missing from minimal record")
	}
	if worldRaw, _ := record.Section(domain.SectionWorld); worldRaw == nil {
		t.Error("essential world section missing from minimal record")
	}
	if questsRaw, _ := record.Section(domain.SectionQuests); questsRaw != nil {
		t.Error("non-essential quests section should be excluded from minimal record")
	}

	// A full collect still includes everything.
	full, err := agg.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(full.Sections) != 3 {
		t.Errorf("full record has %d sections, want 3", len(full.Sections))
	}
}

func TestAggregator_Apply(t *testing.T) {
	var restoredPlayTime float64
	agg, err := NewAggregator(Config{
		FormatVersion:   "1.4.2",
		RestorePlayTime: func(s float64) { restoredPlayTime = s },
	})
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	player := &fakeCollaborator{}
	world := &fakeCollaborator{}
	if err := agg.Register(domain.SectionPlayer, player); err != nil {
		t.Fatal(err)
	}
	if err := agg.Register(domain.SectionWorld, world); err != nil {
		t.Fatal(err)
	}

	record := domain.NewRootSaveRecord("1.4.2")
	record.PlayTimeSeconds = 120
	record.SetSection(domain.SectionPlayer, json.RawMessage(`{"level":3}`))
	record.SetSection("modded-extension", json.RawMessage(`{"v":1}`)) // unknown

	if err := agg.Apply(record); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(player.restored) != 1 || string(player.restored[0]) != `{"level":3}` {
		t.Errorf("player restored = %v", player.restored)
	}

	// Absent section leaves the collaborator untouched.
	if len(world.restored) != 0 {
		t.Errorf("world should not be restored, got %v", world.restored)
	}

	if restoredPlayTime != 120 {
		t.Errorf("restored play time = %v, want 120", restoredPlayTime)
	}
}

func TestAggregator_Apply_RestoreError(t *testing.T) {
	agg := newTestAggregator(t)

	bad := &fakeCollaborator{restoreErr: errors.New("unknown item id")}
	if err := agg.Register(domain.SectionInventory, bad); err != nil {
		t.Fatal(err)
	}

	record := domain.NewRootSaveRecord("1.4.2")
	record.SetSection(domain.SectionInventory, json.RawMessage(`{"items":[99]}`))

	err := agg.Apply(record)
	if !errors.Is(err, domain.ErrSerialization) {
		t.Fatalf("Apply = %v, want ErrSerialization", err)
	}
	if !strings.Contains(err.Error(), domain.SectionInventory) {
		t.Errorf("error should name the failing section: %v", err)
	}
}

func TestAggregator_Apply_NilRecord(t *testing.T) {
	agg := newTestAggregator(t)

	if err := agg.Apply(nil); !errors.Is(err, domain.ErrSerialization) {
		t.Errorf("Apply(nil) = %v, want ErrSerialization", err)
	}
}

func TestAggregator_RoundTrip(t *testing.T) {
	source := newTestAggregator(t)
	sink := newTestAggregator(t)

	sections := map[string]string{
		domain.SectionPlayer:    `{"level":11,"hp":64}`,
		domain.SectionInventory: `{"items":[1,2,3]}`,
		domain.SectionQuests:    `{"done":["intro"]}`,
	}

	sinkCollaborators := make(map[string]*fakeCollaborator)
	for name, data := range sections {
		if err := source.Register(name, &fakeCollaborator{snapshot: json.RawMessage(data)}); err != nil {
			t.Fatal(err)
		}
		c := &fakeCollaborator{}
		sinkCollaborators[name] = c
		if err := sink.Register(name, c); err != nil {
			t.Fatal(err)
		}
	}

	record, err := source.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if err := sink.Apply(record); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for name, want := range sections {
		c := sinkCollaborators[name]
		if len(c.restored) != 1 || string(c.restored[0]) != want {
			t.Errorf("section %q restored = %v, want %s", name, c.restored, want)
		}
	}
}
