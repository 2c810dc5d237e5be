package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/calderhale/keepsake-go/internal/core/domain"
)

// Store is the slot-addressed persistence surface the save service runs on.
// Implementations enforce the slot range and keep writes atomic; artifact
// bytes are opaque to them.
type Store interface {
	// MaxSlots returns the exclusive upper bound of valid slot indices.
	MaxSlots() int

	// Write replaces the primary artifact of a slot.
	Write(slot int, data []byte) error

	// Read returns the primary artifact of a slot. ErrSlotEmpty when the
	// slot has never been written.
	Read(slot int) ([]byte, error)

	// Exists reports whether a primary artifact is present. Out-of-range
	// slots report false.
	Exists(slot int) bool

	// Delete removes the primary artifact, metadata, and screenshot.
	// Deleting an empty slot is a no-op.
	Delete(slot int) error

	// WriteMetadata replaces the slot summary.
	WriteMetadata(slot int, md *domain.SlotMetadata) error

	// ReadMetadata returns the slot summary. When the summary file is
	// missing or unreadable but a primary exists, a low-confidence summary
	// is synthesized from file attributes. (nil, nil) when the slot is
	// empty.
	ReadMetadata(slot int) (*domain.SlotMetadata, error)

	// WriteScreenshot, ReadScreenshot, and HasScreenshot manage the
	// optional companion image.
	WriteScreenshot(slot int, png []byte) error
	ReadScreenshot(slot int) ([]byte, error)
	HasScreenshot(slot int) bool

	// WriteQuicksave, ReadQuicksave, and HasQuicksave manage the single
	// quicksave artifact. ReadQuicksave returns ErrSlotEmpty when absent.
	WriteQuicksave(data []byte) error
	ReadQuicksave() ([]byte, error)
	HasQuicksave() bool
}

// FileStoreConfig assembles a FileStore.
type FileStoreConfig struct {
	// Dir is the saves directory. Created if missing.
	Dir string

	// MaxSlots bounds valid slot indices to [0, MaxSlots).
	MaxSlots int

	// Logger receives storage-level warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// FileStore keeps slots as files in one directory. Not safe for concurrent
// writers to the same slot; the service layer serializes per slot.
type FileStore struct {
	layout   Layout
	maxSlots int
	logger   *slog.Logger
}

// NewFileStore creates the directories and returns a ready store.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.MaxSlots <= 0 {
		return nil, domain.ErrConfigInvalid.WithDetailsf("max slots must be positive, got %d", cfg.MaxSlots)
	}
	layout := Layout{Dir: cfg.Dir}
	if err := layout.EnsureDirs(); err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		layout:   layout,
		maxSlots: cfg.MaxSlots,
		logger:   logger,
	}, nil
}

// Layout exposes the path resolver for collaborators that share the
// directory (backup manager, history journal).
func (s *FileStore) Layout() Layout {
	return s.layout
}

// MaxSlots returns the exclusive upper bound of valid slot indices.
func (s *FileStore) MaxSlots() int {
	return s.maxSlots
}

func (s *FileStore) checkSlot(slot int) error {
	if slot < 0 || slot >= s.maxSlots {
		return domain.ErrInvalidSlot.WithDetailsf("slot %d not in [0, %d)", slot, s.maxSlots)
	}
	return nil
}

// Write replaces the primary artifact of a slot.
func (s *FileStore) Write(slot int, data []byte) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	return s.writeAtomic(s.layout.SlotPath(slot), data)
}

// Read returns the primary artifact of a slot.
func (s *FileStore) Read(slot int) ([]byte, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.layout.SlotPath(slot))
	if os.IsNotExist(err) {
		return nil, domain.ErrSlotEmpty.WithDetailsf("slot %d", slot)
	}
	if err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}
	return data, nil
}

// Exists reports whether a primary artifact is present.
func (s *FileStore) Exists(slot int) bool {
	if s.checkSlot(slot) != nil {
		return false
	}
	_, err := os.Stat(s.layout.SlotPath(slot))
	return err == nil
}

// Delete removes the primary artifact, metadata, and screenshot. Backups
// are owned by the backup manager and removed by the service layer.
func (s *FileStore) Delete(slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	var firstErr error
	for _, path := range []string{
		s.layout.SlotPath(slot),
		s.layout.MetadataPath(slot),
		s.layout.ScreenshotPath(slot),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return domain.ErrIO.WithCause(firstErr)
	}
	return nil
}

// WriteMetadata replaces the slot summary. Written indented; players and
// tools inspect these files by hand.
func (s *FileStore) WriteMetadata(slot int, md *domain.SlotMetadata) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	if md == nil {
		return domain.ErrSerialization.WithDetails("nil metadata")
	}
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return domain.ErrSerialization.WithCause(err)
	}
	return s.writeAtomic(s.layout.MetadataPath(slot), data)
}

// ReadMetadata returns the slot summary, synthesizing one from file
// attributes when the summary file is missing or damaged.
func (s *FileStore) ReadMetadata(slot int) (*domain.SlotMetadata, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.layout.MetadataPath(slot))
	if err == nil {
		var md domain.SlotMetadata
		if jerr := json.Unmarshal(data, &md); jerr == nil {
			return &md, nil
		}
		s.logger.Warn("metadata file damaged, synthesizing summary",
			"slot", slot, "path", s.layout.MetadataPath(slot))
	} else if !os.IsNotExist(err) {
		return nil, domain.ErrIO.WithCause(err)
	}

	// Metadata missing or damaged: fall back to the primary's attributes.
	info, err := os.Stat(s.layout.SlotPath(slot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}
	return domain.SynthesizedMetadata(slot, info.Size(), info.ModTime()), nil
}

// WriteScreenshot stores the companion image for a slot.
func (s *FileStore) WriteScreenshot(slot int, png []byte) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	return s.writeAtomic(s.layout.ScreenshotPath(slot), png)
}

// ReadScreenshot returns the companion image for a slot.
func (s *FileStore) ReadScreenshot(slot int) ([]byte, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.layout.ScreenshotPath(slot))
	if os.IsNotExist(err) {
		return nil, domain.ErrSlotEmpty.WithDetailsf("slot %d screenshot", slot)
	}
	if err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}
	return data, nil
}

// HasScreenshot reports whether a companion image is present.
func (s *FileStore) HasScreenshot(slot int) bool {
	if s.checkSlot(slot) != nil {
		return false
	}
	_, err := os.Stat(s.layout.ScreenshotPath(slot))
	return err == nil
}

// WriteQuicksave replaces the quicksave artifact.
func (s *FileStore) WriteQuicksave(data []byte) error {
	return s.writeAtomic(s.layout.QuicksavePath(), data)
}

// ReadQuicksave returns the quicksave artifact.
func (s *FileStore) ReadQuicksave() ([]byte, error) {
	data, err := os.ReadFile(s.layout.QuicksavePath())
	if os.IsNotExist(err) {
		return nil, domain.ErrSlotEmpty.WithDetails("quicksave")
	}
	if err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}
	return data, nil
}

// HasQuicksave reports whether a quicksave artifact is present.
func (s *FileStore) HasQuicksave() bool {
	_, err := os.Stat(s.layout.QuicksavePath())
	return err == nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it,
// and renames it into place. A crash mid-write leaves the previous file
// untouched.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".keepsake-*.tmp")
	if err != nil {
		return domain.ErrIO.WithCause(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.ErrIO.WithCause(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.ErrIO.WithCause(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return domain.ErrIO.WithCause(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return domain.ErrIO.WithCause(fmt.Errorf("rename into place: %w", err))
	}
	return nil
}
