package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Record constraints.
const (
	// MaxSectionNameLength bounds subsystem names so file listings and logs
	// stay readable. Real games use short names ("player", "quests").
	MaxSectionNameLength = 64

	// MaxSections bounds how many subsystems one record may carry.
	MaxSections = 256
)

// Conventional section names. Collaborators may register under any name;
// these are the ones the metadata summary knows how to peek into.
const (
	SectionPlayer    = "player"
	SectionInventory = "inventory"
	SectionEquipment = "equipment"
	SectionSkills    = "skills"
	SectionQuests    = "quests"
	SectionWorld     = "world"
	SectionSettings  = "settings"
	SectionProgress  = "progress"
)

// RootSaveRecord is the unit of persistence: a complete snapshot of game
// state at a moment in time. Sections map subsystem names to opaque,
// independently serialized sub-records; the engine forwards them without
// ever interpreting their contents.
type RootSaveRecord struct {
	// FormatVersion identifies the build that produced the record.
	FormatVersion string `json:"formatVersion"`

	// CreatedAt is the snapshot timestamp.
	CreatedAt time.Time `json:"createdAt"`

	// PlayTimeSeconds is the accumulated session play time. Never negative.
	PlayTimeSeconds float64 `json:"playTimeSeconds"`

	// Sections holds one opaque sub-record per registered subsystem.
	// Decoders ignore names they do not recognize.
	Sections map[string]json.RawMessage `json:"sections"`
}

// NewRootSaveRecord creates an empty record stamped with the given format
// version and the current time.
func NewRootSaveRecord(formatVersion string) *RootSaveRecord {
	return &RootSaveRecord{
		FormatVersion: formatVersion,
		CreatedAt:     time.Now().UTC(),
		Sections:      make(map[string]json.RawMessage),
	}
}

// Validate checks the record's structural invariants before encoding.
func (r *RootSaveRecord) Validate() error {
	if r.FormatVersion == "" {
		return ErrSerialization.WithDetails("format version is empty")
	}
	if r.PlayTimeSeconds < 0 {
		return ErrSerialization.WithDetails("negative play time")
	}
	if len(r.Sections) > MaxSections {
		return ErrSerialization.WithDetailsf("%d sections exceeds limit %d", len(r.Sections), MaxSections)
	}
	for name := range r.Sections {
		if name == "" {
			return ErrSerialization.WithDetails("empty section name")
		}
		if len(name) > MaxSectionNameLength {
			return ErrSerialization.WithDetailsf("section name %q exceeds %d bytes", name, MaxSectionNameLength)
		}
	}
	return nil
}

// Section returns the raw sub-record stored under name.
func (r *RootSaveRecord) Section(name string) (json.RawMessage, bool) {
	raw, ok := r.Sections[name]
	return raw, ok
}

// SetSection stores a raw sub-record under name, replacing any previous one.
func (r *RootSaveRecord) SetSection(name string, raw json.RawMessage) {
	if r.Sections == nil {
		r.Sections = make(map[string]json.RawMessage)
	}
	r.Sections[name] = raw
}

// SectionNames returns the section names in sorted order.
func (r *RootSaveRecord) SectionNames() []string {
	names := make([]string, 0, len(r.Sections))
	for name := range r.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy; section bytes are duplicated so mutating the
// copy cannot alias the original.
func (r *RootSaveRecord) Clone() *RootSaveRecord {
	if r == nil {
		return nil
	}
	clone := &RootSaveRecord{
		FormatVersion:   r.FormatVersion,
		CreatedAt:       r.CreatedAt,
		PlayTimeSeconds: r.PlayTimeSeconds,
		Sections:        make(map[string]json.RawMessage, len(r.Sections)),
	}
	for name, raw := range r.Sections {
		dup := make(json.RawMessage, len(raw))
		copy(dup, raw)
		clone.Sections[name] = dup
	}
	return clone
}
