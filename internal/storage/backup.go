package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
)

// BackupInfo describes one rotated copy of a slot's primary artifact.
type BackupInfo struct {
	Slot      int       `json:"slot"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// BackupManagerConfig assembles a BackupManager.
type BackupManagerConfig struct {
	// Layout locates the saves directory and its backups/ subdirectory.
	Layout Layout

	// MaxPerSlot caps retained backups per slot; oldest pruned first.
	MaxPerSlot int

	// Logger receives prune and skip notices. Defaults to slog.Default().
	Logger *slog.Logger
}

// BackupManager rotates copies of slot primaries under backups/. One writer
// process is assumed, same as the rest of the directory.
type BackupManager struct {
	layout     Layout
	maxPerSlot int
	logger     *slog.Logger
}

// NewBackupManager ensures the backup directory exists and returns the
// manager.
func NewBackupManager(cfg BackupManagerConfig) (*BackupManager, error) {
	if cfg.MaxPerSlot <= 0 {
		return nil, domain.ErrConfigInvalid.WithDetailsf("max backups must be positive, got %d", cfg.MaxPerSlot)
	}
	if err := os.MkdirAll(cfg.Layout.BackupDir(), dirPerm); err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupManager{
		layout:     cfg.Layout,
		maxPerSlot: cfg.MaxPerSlot,
		logger:     logger,
	}, nil
}

// MaxPerSlot returns the retention cap.
func (m *BackupManager) MaxPerSlot() int {
	return m.maxPerSlot
}

// Create copies the slot's current primary into the backup directory.
// ErrSlotEmpty when there is no primary to copy. Retention is separate:
// callers pair Create with Prune so they can account for removals.
func (m *BackupManager) Create(slot int) (*BackupInfo, error) {
	data, err := os.ReadFile(m.layout.SlotPath(slot))
	if os.IsNotExist(err) {
		return nil, domain.ErrSlotEmpty.WithDetailsf("slot %d", slot)
	}
	if err != nil {
		return nil, domain.ErrIO.WithCause(err)
	}

	name, err := m.nextName(slot)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(m.layout.BackupDir(), name)
	if err := m.writeAtomic(path, data); err != nil {
		return nil, err
	}

	_, at, _ := parseBackupName(name)
	return &BackupInfo{
		Slot:      slot,
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: at,
	}, nil
}

// List returns the slot's backups newest-first.
func (m *BackupManager) List(slot int) ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.layout.BackupDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.ErrIO.WithCause(err)
	}

	prefix := fmt.Sprintf("%s%d_", backupFilePrefix, slot)
	var infos []BackupInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupFileSuffix) {
			continue
		}
		parsedSlot, at, ok := parseBackupName(name)
		if !ok || parsedSlot != slot {
			continue
		}
		info := BackupInfo{
			Slot:      slot,
			Name:      name,
			Path:      filepath.Join(m.layout.BackupDir(), name),
			CreatedAt: at,
		}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
		}
		infos = append(infos, info)
	}

	// Names embed the creation time, so reverse-lexicographic is
	// newest-first.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

// Restore walks the slot's backups newest-first and returns the bytes of
// the first one the caller's check accepts. Unreadable or undecodable
// entries are skipped, never deleted.
func (m *BackupManager) Restore(slot int, decodable func([]byte) bool) ([]byte, *BackupInfo, error) {
	infos, err := m.List(slot)
	if err != nil {
		return nil, nil, err
	}
	if len(infos) == 0 {
		return nil, nil, domain.ErrNoBackups.WithDetailsf("slot %d", slot)
	}

	for i := range infos {
		info := infos[i]
		data, err := os.ReadFile(info.Path)
		if err != nil {
			m.logger.Warn("backup unreadable, trying older entry",
				"slot", slot, "backup", info.Name, "error", err)
			continue
		}
		if decodable != nil && !decodable(data) {
			m.logger.Warn("backup undecodable, trying older entry",
				"slot", slot, "backup", info.Name)
			continue
		}
		return data, &info, nil
	}
	return nil, nil, domain.ErrNoValidBackup.WithDetailsf("slot %d, %d entries tried", slot, len(infos))
}

// Prune removes the oldest backups beyond the cap and returns how many were
// removed. The newest entry is never a prune candidate.
func (m *BackupManager) Prune(slot int) (int, error) {
	infos, err := m.List(slot)
	if err != nil {
		return 0, err
	}
	if len(infos) <= m.maxPerSlot {
		return 0, nil
	}

	removed := 0
	for _, info := range infos[m.maxPerSlot:] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return removed, domain.ErrIO.WithCause(err)
		}
		removed++
		m.logger.Debug("pruned backup", "slot", slot, "backup", info.Name)
	}
	return removed, nil
}

// RemoveAll deletes every backup of a slot and returns how many were
// removed. Used when the slot itself is deleted.
func (m *BackupManager) RemoveAll(slot int) (int, error) {
	infos, err := m.List(slot)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return removed, domain.ErrIO.WithCause(err)
		}
		removed++
	}
	return removed, nil
}

// nextName picks a backup file name for now, bumping the sequence until it
// is free so several backups within one second stay ordered.
func (m *BackupManager) nextName(slot int) (string, error) {
	now := time.Now().UTC()
	for seq := 1; seq <= 9999; seq++ {
		name := m.layout.BackupName(slot, now, seq)
		if _, err := os.Stat(filepath.Join(m.layout.BackupDir(), name)); os.IsNotExist(err) {
			return name, nil
		}
	}
	return "", domain.ErrIO.WithDetailsf("slot %d: backup name space exhausted for %s", slot, now.Format(backupTimeLayout))
}

func (m *BackupManager) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".keepsake-*.tmp")
	if err != nil {
		return domain.ErrIO.WithCause(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.ErrIO.WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.ErrIO.WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return domain.ErrIO.WithCause(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return domain.ErrIO.WithCause(err)
	}
	return nil
}
