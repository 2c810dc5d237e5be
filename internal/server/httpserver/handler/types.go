package handler

import (
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/storage"
)

// errorView is the body of every non-2xx response.
type errorView struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// healthView is the body of GET /healthz.
type healthView struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// slotListView is the body of GET /api/v1/slots.
type slotListView struct {
	Slots        []slotView `json:"slots"`
	HasQuicksave bool       `json:"has_quicksave"`
}

// slotView summarizes one slot. Metadata is omitted for unoccupied
// slots and for occupied slots whose metadata file is unreadable.
type slotView struct {
	Slot          int           `json:"slot"`
	Occupied      bool          `json:"occupied"`
	Backups       int           `json:"backups"`
	HasScreenshot bool          `json:"has_screenshot"`
	Metadata      *metadataView `json:"metadata,omitempty"`
}

// metadataView mirrors the on-disk slot metadata with wire-stable
// field names.
type metadataView struct {
	PlayerLevel     int       `json:"player_level"`
	SceneName       string    `json:"scene_name"`
	PlayTimeSeconds float64   `json:"play_time_seconds"`
	FileSize        int64     `json:"file_size"`
	Valid           bool      `json:"valid"`
	SavedAt         time.Time `json:"saved_at"`
	FormatVersion   string    `json:"format_version,omitempty"`
	Synthesized     bool      `json:"synthesized,omitempty"`
}

// backupListView is the body of GET /api/v1/slots/{slot}/backups.
type backupListView struct {
	Slot    int          `json:"slot"`
	Backups []backupView `json:"backups"`
}

// backupView describes one backup file, newest first in listings.
type backupView struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// historyView is the body of GET /api/v1/history. Entries already
// carry wire-stable tags.
type historyView struct {
	Entries []history.Entry `json:"entries"`
}

func newSlotView(info service.SlotInfo) slotView {
	return slotView{
		Slot:          info.Slot,
		Occupied:      info.Occupied,
		Backups:       info.Backups,
		HasScreenshot: info.HasScreenshot,
		Metadata:      newMetadataView(info.Metadata),
	}
}

func newMetadataView(md *domain.SlotMetadata) *metadataView {
	if md == nil {
		return nil
	}
	return &metadataView{
		PlayerLevel:     md.PlayerLevel,
		SceneName:       md.SceneName,
		PlayTimeSeconds: md.PlayTimeSeconds,
		FileSize:        md.FileSize,
		Valid:           md.Valid,
		SavedAt:         md.SavedAt,
		FormatVersion:   md.FormatVersion,
		Synthesized:     md.Synthesized,
	}
}

func newBackupView(info storage.BackupInfo) backupView {
	return backupView{
		Name:      info.Name,
		Size:      info.Size,
		CreatedAt: info.CreatedAt,
	}
}
