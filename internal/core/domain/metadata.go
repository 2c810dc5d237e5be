package domain

import (
	"encoding/json"
	"time"
)

// SlotMetadata is the denormalized summary stored next to a slot's primary
// artifact so listings never need a full decode. The primary artifact is the
// source of truth; metadata can always be regenerated from it.
type SlotMetadata struct {
	// Slot is the index this summary describes.
	Slot int `json:"slot"`

	// PlayerLevel and SceneName are display fields supplied by the caller
	// (or peeked best-effort from conventional sections). Zero values when
	// unknown.
	PlayerLevel int    `json:"playerLevel"`
	SceneName   string `json:"sceneName"`

	// PlayTimeSeconds mirrors the record's accumulated play time.
	PlayTimeSeconds float64 `json:"playTimeSeconds"`

	// FileSize is the primary artifact size in bytes.
	FileSize int64 `json:"fileSize"`

	// Valid records the outcome of the last integrity check or write.
	Valid bool `json:"valid"`

	// SavedAt is when the primary artifact was written.
	SavedAt time.Time `json:"savedAt"`

	// FormatVersion mirrors the record's producing build.
	FormatVersion string `json:"formatVersion,omitempty"`

	// Synthesized marks a low-confidence summary rebuilt from file
	// attributes because the metadata file was missing. Display fields are
	// zero in that case.
	Synthesized bool `json:"synthesized,omitempty"`
}

// PlayTime returns the play time as a duration for display.
func (m *SlotMetadata) PlayTime() time.Duration {
	return time.Duration(m.PlayTimeSeconds * float64(time.Second))
}

// SaveSummary carries the display fields a caller may attach to a save when
// it knows them. When absent, SummaryFromRecord fills in what it can.
type SaveSummary struct {
	PlayerLevel int
	SceneName   string
}

// playerPeek and worldPeek name the conventional fields the summary peek
// understands. Sections remain opaque to every other code path; this decode
// is best-effort and failure-tolerant.
type playerPeek struct {
	Level int    `json:"level"`
	Scene string `json:"scene"`
}

type worldPeek struct {
	Scene        string `json:"scene"`
	CurrentScene string `json:"currentScene"`
}

// SummaryFromRecord extracts display fields from the conventional "player"
// and "world" sections. Any malformed or absent section yields zero values,
// never an error.
func SummaryFromRecord(r *RootSaveRecord) SaveSummary {
	var s SaveSummary
	if r == nil {
		return s
	}
	if raw, ok := r.Sections[SectionPlayer]; ok {
		var p playerPeek
		if err := json.Unmarshal(raw, &p); err == nil {
			s.PlayerLevel = p.Level
			s.SceneName = p.Scene
		}
	}
	if raw, ok := r.Sections[SectionWorld]; ok {
		var w worldPeek
		if err := json.Unmarshal(raw, &w); err == nil {
			switch {
			case w.Scene != "":
				s.SceneName = w.Scene
			case w.CurrentScene != "":
				s.SceneName = w.CurrentScene
			}
		}
	}
	return s
}

// BuildMetadata assembles the summary written alongside a primary artifact.
// An explicit summary wins over the record peek.
func BuildMetadata(slot int, r *RootSaveRecord, fileSize int64, summary *SaveSummary) *SlotMetadata {
	s := SummaryFromRecord(r)
	if summary != nil {
		s = *summary
	}
	return &SlotMetadata{
		Slot:            slot,
		PlayerLevel:     s.PlayerLevel,
		SceneName:       s.SceneName,
		PlayTimeSeconds: r.PlayTimeSeconds,
		FileSize:        fileSize,
		Valid:           true,
		SavedAt:         r.CreatedAt,
		FormatVersion:   r.FormatVersion,
	}
}

// SynthesizedMetadata rebuilds a low-confidence summary from file attributes
// for slots whose metadata file is missing. Callers see real size and mtime
// but zeroed display fields.
func SynthesizedMetadata(slot int, fileSize int64, modTime time.Time) *SlotMetadata {
	return &SlotMetadata{
		Slot:        slot,
		FileSize:    fileSize,
		Valid:       true,
		SavedAt:     modTime,
		Synthesized: true,
	}
}
