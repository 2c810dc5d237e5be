// Package memory provides an in-process implementation of the slot
// store contract. It backs unit tests and ephemeral engines whose
// saves should not outlive the process; the on-disk layout lives in
// the parent storage package.
package memory

import (
	"bytes"
	"sync"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/storage"
	"github.com/calderhale/keepsake-go/pkg/cmap"
)

// DefaultMaxSlots matches the configuration default for saves.max_slots.
const DefaultMaxSlots = 10

// artifact is a stored primary with its write time, kept so metadata
// synthesis mirrors the file store's stat-based fallback.
type artifact struct {
	data    []byte
	savedAt time.Time
}

// Store keeps a whole saves directory in process memory. It follows
// the storage.FileStore contract: slot range checks, copy-on-read
// artifacts, and synthesized summaries when metadata is absent.
type Store struct {
	maxSlots int

	slots       *cmap.Map[int, artifact]
	metadata    *cmap.Map[int, domain.SlotMetadata]
	screenshots *cmap.Map[int, []byte]

	mu        sync.RWMutex
	quicksave []byte
	hasQuick  bool
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxSlots bounds valid slot indices to [0, n).
func WithMaxSlots(n int) Option {
	return func(s *Store) { s.maxSlots = n }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		maxSlots:    DefaultMaxSlots,
		slots:       cmap.New[int, artifact](),
		metadata:    cmap.New[int, domain.SlotMetadata](),
		screenshots: cmap.New[int, []byte](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxSlots returns the exclusive upper bound of valid slot indices.
func (s *Store) MaxSlots() int {
	return s.maxSlots
}

func (s *Store) checkSlot(slot int) error {
	if slot < 0 || slot >= s.maxSlots {
		return domain.ErrInvalidSlot.WithDetailsf("slot %d not in [0, %d)", slot, s.maxSlots)
	}
	return nil
}

// Write replaces the primary artifact of a slot.
func (s *Store) Write(slot int, data []byte) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	s.slots.Set(slot, artifact{data: bytes.Clone(data), savedAt: time.Now()})
	return nil
}

// Read returns the primary artifact of a slot.
func (s *Store) Read(slot int) ([]byte, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	art, ok := s.slots.Get(slot)
	if !ok {
		return nil, domain.ErrSlotEmpty.WithDetailsf("slot %d", slot)
	}
	return bytes.Clone(art.data), nil
}

// Exists reports whether a primary artifact is present.
func (s *Store) Exists(slot int) bool {
	if s.checkSlot(slot) != nil {
		return false
	}
	return s.slots.Has(slot)
}

// Delete removes the primary artifact, metadata, and screenshot.
// Deleting an empty slot is a no-op.
func (s *Store) Delete(slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	s.slots.Delete(slot)
	s.metadata.Delete(slot)
	s.screenshots.Delete(slot)
	return nil
}

// WriteMetadata replaces the slot summary.
func (s *Store) WriteMetadata(slot int, md *domain.SlotMetadata) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	if md == nil {
		return domain.ErrSerialization.WithDetails("nil metadata")
	}
	s.metadata.Set(slot, *md)
	return nil
}

// ReadMetadata returns the slot summary, synthesizing one from the
// stored artifact when no summary was written.
func (s *Store) ReadMetadata(slot int) (*domain.SlotMetadata, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	if md, ok := s.metadata.Get(slot); ok {
		out := md
		return &out, nil
	}
	art, ok := s.slots.Get(slot)
	if !ok {
		return nil, nil
	}
	return domain.SynthesizedMetadata(slot, int64(len(art.data)), art.savedAt), nil
}

// WriteScreenshot stores the companion image for a slot.
func (s *Store) WriteScreenshot(slot int, png []byte) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	s.screenshots.Set(slot, bytes.Clone(png))
	return nil
}

// ReadScreenshot returns the companion image for a slot.
func (s *Store) ReadScreenshot(slot int) ([]byte, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	png, ok := s.screenshots.Get(slot)
	if !ok {
		return nil, domain.ErrSlotEmpty.WithDetailsf("slot %d screenshot", slot)
	}
	return bytes.Clone(png), nil
}

// HasScreenshot reports whether a companion image is present.
func (s *Store) HasScreenshot(slot int) bool {
	if s.checkSlot(slot) != nil {
		return false
	}
	return s.screenshots.Has(slot)
}

// WriteQuicksave replaces the quicksave artifact.
func (s *Store) WriteQuicksave(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quicksave = bytes.Clone(data)
	s.hasQuick = true
	return nil
}

// ReadQuicksave returns the quicksave artifact.
func (s *Store) ReadQuicksave() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasQuick {
		return nil, domain.ErrSlotEmpty.WithDetails("quicksave")
	}
	return bytes.Clone(s.quicksave), nil
}

// HasQuicksave reports whether a quicksave artifact is present.
func (s *Store) HasQuicksave() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasQuick
}
