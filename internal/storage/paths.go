package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// File and directory naming. These names are load-bearing: external tools
// and older installations address slots by them.
const (
	slotFilePattern       = "save_slot_%d.json"
	metadataFilePattern   = "metadata_%d.json"
	screenshotFilePattern = "save_screenshot_%d.png"
	quicksaveFileName     = "quicksave.json"
	backupDirName         = "backups"
	historyDirName        = "history"
	backupFilePrefix      = "backup_slot"
	backupFileSuffix      = ".json"

	// backupTimeLayout orders names lexicographically by creation time.
	backupTimeLayout = "20060102150405"

	dirPerm = 0o750
)

// Layout resolves every path inside one saves directory.
type Layout struct {
	// Dir is the saves directory root.
	Dir string
}

// SlotPath returns the primary artifact path for a slot.
func (l Layout) SlotPath(slot int) string {
	return filepath.Join(l.Dir, fmt.Sprintf(slotFilePattern, slot))
}

// MetadataPath returns the summary path for a slot.
func (l Layout) MetadataPath(slot int) string {
	return filepath.Join(l.Dir, fmt.Sprintf(metadataFilePattern, slot))
}

// ScreenshotPath returns the companion image path for a slot.
func (l Layout) ScreenshotPath(slot int) string {
	return filepath.Join(l.Dir, fmt.Sprintf(screenshotFilePattern, slot))
}

// QuicksavePath returns the quicksave artifact path.
func (l Layout) QuicksavePath() string {
	return filepath.Join(l.Dir, quicksaveFileName)
}

// BackupDir returns the backup directory path.
func (l Layout) BackupDir() string {
	return filepath.Join(l.Dir, backupDirName)
}

// HistoryDir returns the operation journal directory path.
func (l Layout) HistoryDir() string {
	return filepath.Join(l.Dir, historyDirName)
}

// BackupName builds a backup file name whose lexicographic order equals
// creation order. seq disambiguates multiple backups within one second.
func (l Layout) BackupName(slot int, at time.Time, seq int) string {
	return fmt.Sprintf("%s%d_%s-%04d%s",
		backupFilePrefix, slot, at.UTC().Format(backupTimeLayout), seq, backupFileSuffix)
}

// EnsureDirs creates the saves directory and the backup subdirectory.
func (l Layout) EnsureDirs() error {
	if l.Dir == "" {
		return fmt.Errorf("storage: saves directory not configured")
	}
	if err := os.MkdirAll(l.Dir, dirPerm); err != nil {
		return fmt.Errorf("storage: create saves dir: %w", err)
	}
	if err := os.MkdirAll(l.BackupDir(), dirPerm); err != nil {
		return fmt.Errorf("storage: create backup dir: %w", err)
	}
	return nil
}

// parseBackupName extracts slot and creation time from a backup file name.
// Returns ok=false for names this package did not produce.
func parseBackupName(name string) (int, time.Time, bool) {
	if !strings.HasPrefix(name, backupFilePrefix) || !strings.HasSuffix(name, backupFileSuffix) {
		return 0, time.Time{}, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, backupFilePrefix), backupFileSuffix)

	slotPart, tsPart, found := strings.Cut(body, "_")
	if !found {
		return 0, time.Time{}, false
	}
	slot, err := strconv.Atoi(slotPart)
	if err != nil || slot < 0 {
		return 0, time.Time{}, false
	}

	tsOnly, _, _ := strings.Cut(tsPart, "-")
	at, err := time.ParseInLocation(backupTimeLayout, tsOnly, time.UTC)
	if err != nil {
		return 0, time.Time{}, false
	}
	return slot, at, true
}
