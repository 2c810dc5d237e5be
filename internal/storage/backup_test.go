package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/calderhale/keepsake-go/internal/core/domain"
)

func newTestBackupManager(t *testing.T, maxPerSlot int) (*FileStore, *BackupManager) {
	t.Helper()
	store, err := NewFileStore(FileStoreConfig{Dir: t.TempDir(), MaxSlots: 5})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	mgr, err := NewBackupManager(BackupManagerConfig{Layout: store.Layout(), MaxPerSlot: maxPerSlot})
	if err != nil {
		t.Fatalf("NewBackupManager: %v", err)
	}
	return store, mgr
}

func TestNewBackupManager_BadCap(t *testing.T) {
	_, err := NewBackupManager(BackupManagerConfig{Layout: Layout{Dir: t.TempDir()}, MaxPerSlot: 0})
	if !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("NewBackupManager(cap 0) = %v, want ErrConfigInvalid", err)
	}
}

func TestBackupManager_CreateAndList(t *testing.T) {
	store, mgr := newTestBackupManager(t, 3)

	if err := store.Write(1, []byte("version-1")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := mgr.Create(1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.Slot != 1 {
		t.Errorf("Slot = %d, want 1", info.Slot)
	}
	if info.Size != int64(len("version-1")) {
		t.Errorf("Size = %d, want %d", info.Size, len("version-1"))
	}
	if _, _, ok := parseBackupName(info.Name); !ok {
		t.Errorf("backup name %q should parse", info.Name)
	}

	infos, err := mgr.List(1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("List len = %d, want 1", len(infos))
	}
	data, err := os.ReadFile(infos[0].Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, []byte("version-1")) {
		t.Errorf("backup content = %s, want version-1", data)
	}
}

func TestBackupManager_CreateEmptySlot(t *testing.T) {
	_, mgr := newTestBackupManager(t, 3)

	if _, err := mgr.Create(0); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Errorf("Create(empty) = %v, want ErrSlotEmpty", err)
	}
}

func TestBackupManager_ListNewestFirst(t *testing.T) {
	store, mgr := newTestBackupManager(t, 10)

	for i := 1; i <= 4; i++ {
		if err := store.Write(0, []byte(fmt.Sprintf("version-%d", i))); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if _, err := mgr.Create(0); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	infos, err := mgr.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 4 {
		t.Fatalf("List len = %d, want 4", len(infos))
	}

	// Newest first: the first entry holds the latest content.
	data, _ := os.ReadFile(infos[0].Path)
	if !bytes.Equal(data, []byte("version-4")) {
		t.Errorf("newest backup = %s, want version-4", data)
	}
	data, _ = os.ReadFile(infos[len(infos)-1].Path)
	if !bytes.Equal(data, []byte("version-1")) {
		t.Errorf("oldest backup = %s, want version-1", data)
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Name <= infos[i].Name {
			t.Errorf("List order broken: %q before %q", infos[i-1].Name, infos[i].Name)
		}
	}
}

func TestBackupManager_PruneEnforcesCap(t *testing.T) {
	store, mgr := newTestBackupManager(t, 2)

	for i := 1; i <= 5; i++ {
		if err := store.Write(2, []byte(fmt.Sprintf("version-%d", i))); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if _, err := mgr.Create(2); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
	}

	// Create alone does not enforce retention.
	infos, err := mgr.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 5 {
		t.Fatalf("after 5 creates, len = %d, want 5", len(infos))
	}

	removed, err := mgr.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("Prune removed %d, want 3", removed)
	}

	infos, err = mgr.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("after prune with cap 2, len = %d, want 2", len(infos))
	}

	// The survivors are the most recent two.
	newest, _ := os.ReadFile(infos[0].Path)
	older, _ := os.ReadFile(infos[1].Path)
	if !bytes.Equal(newest, []byte("version-5")) || !bytes.Equal(older, []byte("version-4")) {
		t.Errorf("survivors = (%s, %s), want (version-5, version-4)", newest, older)
	}

	// Pruning again removes nothing.
	removed, err = mgr.Prune(2)
	if err != nil {
		t.Fatalf("second Prune: %v", err)
	}
	if removed != 0 {
		t.Errorf("second Prune removed %d, want 0", removed)
	}
}

func TestBackupManager_PruneIsolatedPerSlot(t *testing.T) {
	store, mgr := newTestBackupManager(t, 2)

	for slot := 0; slot <= 1; slot++ {
		for i := 0; i < 3; i++ {
			if err := store.Write(slot, []byte(fmt.Sprintf("s%d-v%d", slot, i))); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if _, err := mgr.Create(slot); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
	}

	// Pruning slot 0 must not touch slot 1's backups.
	if _, err := mgr.Prune(0); err != nil {
		t.Fatalf("Prune(0): %v", err)
	}

	infos, err := mgr.List(0)
	if err != nil {
		t.Fatalf("List(0): %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("List(0) len = %d, want 2", len(infos))
	}

	infos, err = mgr.List(1)
	if err != nil {
		t.Fatalf("List(1): %v", err)
	}
	if len(infos) != 3 {
		t.Errorf("List(1) len = %d, want 3", len(infos))
	}
}

func TestBackupManager_Restore(t *testing.T) {
	store, mgr := newTestBackupManager(t, 5)

	for i := 1; i <= 3; i++ {
		if err := store.Write(0, []byte(fmt.Sprintf("version-%d", i))); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if _, err := mgr.Create(0); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	// Accept everything: newest wins.
	data, info, err := mgr.Restore(0, func([]byte) bool { return true })
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !bytes.Equal(data, []byte("version-3")) {
		t.Errorf("Restore = %s, want version-3", data)
	}
	if info == nil || info.Slot != 0 {
		t.Errorf("info = %+v", info)
	}

	// Reject the newest: the next one is returned, nothing is deleted.
	data, _, err = mgr.Restore(0, func(b []byte) bool {
		return !bytes.Equal(b, []byte("version-3"))
	})
	if err != nil {
		t.Fatalf("Restore(skip newest): %v", err)
	}
	if !bytes.Equal(data, []byte("version-2")) {
		t.Errorf("Restore = %s, want version-2", data)
	}
	infos, _ := mgr.List(0)
	if len(infos) != 3 {
		t.Errorf("skipped entries must not be deleted, len = %d, want 3", len(infos))
	}
}

func TestBackupManager_RestoreNoBackups(t *testing.T) {
	_, mgr := newTestBackupManager(t, 3)

	if _, _, err := mgr.Restore(0, nil); !errors.Is(err, domain.ErrNoBackups) {
		t.Errorf("Restore(none) = %v, want ErrNoBackups", err)
	}
}

func TestBackupManager_RestoreNoneDecodable(t *testing.T) {
	store, mgr := newTestBackupManager(t, 3)

	if err := store.Write(0, []byte("corrupted")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := mgr.Create(0); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, _, err := mgr.Restore(0, func([]byte) bool { return false })
	if !errors.Is(err, domain.ErrNoValidBackup) {
		t.Errorf("Restore = %v, want ErrNoValidBackup", err)
	}

	// Undecodable entries stay on disk.
	infos, _ := mgr.List(0)
	if len(infos) != 1 {
		t.Errorf("List len = %d, want 1", len(infos))
	}
}

func TestBackupManager_RemoveAll(t *testing.T) {
	store, mgr := newTestBackupManager(t, 5)

	for i := 0; i < 3; i++ {
		if err := store.Write(1, []byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if _, err := mgr.Create(1); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	removed, err := mgr.RemoveAll(1)
	if err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	infos, _ := mgr.List(1)
	if len(infos) != 0 {
		t.Errorf("List after RemoveAll = %d entries, want 0", len(infos))
	}

	// Idempotent.
	removed, err = mgr.RemoveAll(1)
	if err != nil || removed != 0 {
		t.Errorf("RemoveAll(again) = (%d, %v), want (0, nil)", removed, err)
	}
}
