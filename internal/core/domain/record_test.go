package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewRootSaveRecord(t *testing.T) {
	r := NewRootSaveRecord("1.4.0")

	if r.FormatVersion != "1.4.0" {
		t.Errorf("FormatVersion = %q, want %q", r.FormatVersion, "1.4.0")
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if r.Sections == nil {
		t.Error("Sections should be initialized")
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestRootSaveRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RootSaveRecord)
		wantErr bool
	}{
		{
			name:    "valid record",
			mutate:  func(r *RootSaveRecord) {},
			wantErr: false,
		},
		{
			name:    "empty format version",
			mutate:  func(r *RootSaveRecord) { r.FormatVersion = "" },
			wantErr: true,
		},
		{
			name:    "negative play time",
			mutate:  func(r *RootSaveRecord) { r.PlayTimeSeconds = -1 },
			wantErr: true,
		},
		{
			name: "empty section name",
			mutate: func(r *RootSaveRecord) {
				r.SetSection("", json.RawMessage(`{}`))
			},
			wantErr: true,
		},
		{
			name: "section name too long",
			mutate: func(r *RootSaveRecord) {
				r.SetSection(strings.Repeat("x", MaxSectionNameLength+1), json.RawMessage(`{}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRootSaveRecord("1.0.0")
			r.SetSection(SectionPlayer, json.RawMessage(`{"level":3}`))
			tt.mutate(r)

			err := r.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if tt.wantErr && !errors.Is(err, ErrSerialization) {
				t.Errorf("Validate() error code = %q, want %q", GetErrorCode(err), ErrSerialization.Code)
			}
		})
	}
}

func TestRootSaveRecord_Sections(t *testing.T) {
	r := NewRootSaveRecord("1.0.0")
	r.SetSection(SectionWorld, json.RawMessage(`{"scene":"harbor"}`))
	r.SetSection(SectionPlayer, json.RawMessage(`{"level":7}`))

	raw, ok := r.Section(SectionWorld)
	if !ok {
		t.Fatal("Section(world) not found")
	}
	if !bytes.Equal(raw, []byte(`{"scene":"harbor"}`)) {
		t.Errorf("Section(world) = %s", raw)
	}

	if _, ok := r.Section("unknown"); ok {
		t.Error("Section(unknown) should not be found")
	}

	names := r.SectionNames()
	want := []string{SectionPlayer, SectionWorld}
	if len(names) != len(want) {
		t.Fatalf("SectionNames() len = %d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("SectionNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRootSaveRecord_SetSectionOnNilMap(t *testing.T) {
	var r RootSaveRecord
	r.SetSection(SectionPlayer, json.RawMessage(`{}`))

	if _, ok := r.Section(SectionPlayer); !ok {
		t.Error("SetSection on zero-value record should initialize the map")
	}
}

func TestRootSaveRecord_Clone(t *testing.T) {
	r := NewRootSaveRecord("1.0.0")
	r.PlayTimeSeconds = 321.5
	r.SetSection(SectionPlayer, json.RawMessage(`{"level":9}`))

	clone := r.Clone()

	if clone.FormatVersion != r.FormatVersion || clone.PlayTimeSeconds != r.PlayTimeSeconds {
		t.Error("Clone should copy scalar fields")
	}

	// Mutating the clone's section bytes must not leak into the original.
	raw, _ := clone.Section(SectionPlayer)
	raw[0] = 'X'
	orig, _ := r.Section(SectionPlayer)
	if orig[0] == 'X' {
		t.Error("Clone should deep-copy section bytes")
	}

	var nilRecord *RootSaveRecord
	if nilRecord.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestRootSaveRecord_JSONRoundTrip(t *testing.T) {
	r := NewRootSaveRecord("2.1.0")
	r.PlayTimeSeconds = 88.25
	r.SetSection(SectionQuests, json.RawMessage(`[{"id":"q1","done":true}]`))

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// The artifact wire format uses stable camelCase keys.
	for _, key := range []string{`"formatVersion"`, `"createdAt"`, `"playTimeSeconds"`, `"sections"`} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("encoded record missing %s", key)
		}
	}

	var back RootSaveRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.FormatVersion != r.FormatVersion {
		t.Errorf("FormatVersion = %q, want %q", back.FormatVersion, r.FormatVersion)
	}
	raw, ok := back.Section(SectionQuests)
	if !ok || !bytes.Equal(raw, []byte(`[{"id":"q1","done":true}]`)) {
		t.Errorf("quests section = %s", raw)
	}
}

func TestRootSaveRecord_UnknownFieldsIgnored(t *testing.T) {
	// Records written by newer builds may carry extra top-level fields.
	data := []byte(`{"formatVersion":"9.0.0","playTimeSeconds":1,"sections":{},"futureField":{"a":1}}`)

	var r RootSaveRecord
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.FormatVersion != "9.0.0" {
		t.Errorf("FormatVersion = %q, want %q", r.FormatVersion, "9.0.0")
	}
}
