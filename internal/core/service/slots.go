package service

import (
	"context"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/storage"
)

// ============================================================================
// Delete Operation
// ============================================================================

// DeleteResponse contains the result of a slot deletion.
type DeleteResponse struct {
	Slot           int
	BackupsRemoved int
}

// Delete removes a slot's primary artifact, metadata, screenshot, and
// every backup. Deleting while a save or load holds the slot fails
// with ErrSlotBusy instead of waiting; an operation mid-flight on a
// slot being deleted is a caller mistake worth surfacing.
func (e *Engine) Delete(ctx context.Context, slot int) (*DeleteResponse, error) {
	// 1. Refuse closed engines and out-of-range slots outright.
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}

	// 2. Claim the slot without waiting.
	mu := e.guard(slot)
	if !mu.TryLock() {
		return nil, domain.ErrSlotBusy.WithDetailsf("slot %d", slot)
	}
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Deleting a slot that holds neither a primary nor backups is
	//    reported, not silently absorbed.
	hasBackups := false
	if e.backups != nil {
		if infos, err := e.backups.List(slot); err == nil && len(infos) > 0 {
			hasBackups = true
		}
	}
	if !e.store.Exists(slot) && !hasBackups {
		return nil, domain.ErrSlotEmpty.WithDetailsf("slot %d", slot)
	}

	// 4. Remove primary, metadata, and screenshot together.
	err := e.store.Delete(slot)

	// 5. Remove the backup set even if the store delete failed; a
	//    partial delete should still reclaim what it can.
	removed := 0
	if e.backups != nil {
		n, backupErr := e.backups.RemoveAll(slot)
		removed = n
		if backupErr != nil && err == nil {
			err = backupErr
		}
	}

	e.record(ctx, history.Entry{
		Op:      history.OpDelete,
		Slot:    slot,
		Outcome: outcome(err),
		Detail:  errDetail(err),
	})

	if err != nil {
		e.logger.Error("delete failed", "slot", slot, "error", err)
		return nil, err
	}

	e.logger.Info("slot deleted", "slot", slot, "backups_removed", removed)
	return &DeleteResponse{Slot: slot, BackupsRemoved: removed}, nil
}

// ============================================================================
// Listing
// ============================================================================

// SlotInfo describes one slot for display.
type SlotInfo struct {
	Slot          int
	Occupied      bool
	Metadata      *domain.SlotMetadata
	Backups       int
	HasScreenshot bool
}

// ListResponse contains one entry per slot index.
type ListResponse struct {
	Slots        []SlotInfo
	HasQuicksave bool
}

// List summarizes every slot from metadata alone; no artifact is
// decoded. Slots whose metadata is unreadable still appear, marked
// occupied with nil metadata.
func (e *Engine) List(ctx context.Context) (*ListResponse, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &ListResponse{
		Slots:        make([]SlotInfo, 0, e.store.MaxSlots()),
		HasQuicksave: e.store.HasQuicksave(),
	}

	for slot := 0; slot < e.store.MaxSlots(); slot++ {
		resp.Slots = append(resp.Slots, e.slotInfo(slot))
	}

	return resp, nil
}

// Slot summarizes a single slot the same way List does.
func (e *Engine) Slot(ctx context.Context, slot int) (*SlotInfo, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := e.slotInfo(slot)
	return &info, nil
}

func (e *Engine) slotInfo(slot int) SlotInfo {
	info := SlotInfo{
		Slot:          slot,
		Occupied:      e.store.Exists(slot),
		HasScreenshot: e.store.HasScreenshot(slot),
	}
	if info.Occupied {
		md, err := e.store.ReadMetadata(slot)
		if err != nil {
			e.logger.Warn("metadata unreadable",
				"slot", slot,
				"error", err)
		} else {
			info.Metadata = md
		}
	}
	if e.backups != nil {
		if infos, err := e.backups.List(slot); err == nil {
			info.Backups = len(infos)
		}
	}
	return info
}

// Backups returns a slot's backup inventory, newest first.
func (e *Engine) Backups(ctx context.Context, slot int) ([]storage.BackupInfo, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.backups == nil {
		return nil, nil
	}
	return e.backups.List(slot)
}

// ============================================================================
// Validate Operation
// ============================================================================

// ValidateResponse contains the result of an integrity check.
type ValidateResponse struct {
	Slot int

	// Valid reports whether the primary artifact survives the full
	// read path.
	Valid bool

	// Reason explains an invalid result.
	Reason string

	// Warning carries non-fatal findings on a valid artifact,
	// currently only a format version mismatch.
	Warning string
}

// Validate runs the full read path against a slot without mutating
// anything. An empty slot is an error, not an invalid artifact.
func (e *Engine) Validate(ctx context.Context, slot int) (*ValidateResponse, error) {
	// 1. Refuse closed engines and out-of-range slots outright.
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Read and decode. No lock is taken: writes are atomic, so this
	//    sees either the previous or the next complete artifact.
	data, err := e.store.Read(slot)
	if err != nil {
		return nil, err
	}

	resp := &ValidateResponse{Slot: slot}
	record, decErr := e.codec.Decode(data, e.opts)
	if decErr != nil {
		e.metrics.IncCorruptionDetected()
		resp.Reason = decErr.Error()
	} else {
		resp.Valid = true
		if v := e.agg.FormatVersion(); v != "" && record.FormatVersion != v {
			resp.Warning = domain.ErrVersionMismatch.WithDetailsf(
				"artifact %s, engine %s", record.FormatVersion, v).Error()
		}
	}

	e.record(ctx, history.Entry{
		Op:      history.OpValidate,
		Slot:    slot,
		Outcome: validateOutcome(resp.Valid),
		Detail:  resp.Reason,
		Bytes:   int64(len(data)),
	})

	return resp, nil
}

func validateOutcome(valid bool) string {
	if valid {
		return history.OutcomeOK
	}
	return history.OutcomeFailed
}

// ============================================================================
// Repair Operation
// ============================================================================

// RepairResponse contains the result of an explicit repair.
type RepairResponse struct {
	Slot int

	// Repaired is set when a backup was promoted over the primary.
	// False with AlreadyValid set means there was nothing to do.
	Repaired     bool
	AlreadyValid bool

	// BackupUsed names the promoted backup.
	BackupUsed string

	Duration time.Duration
}

// Repair promotes the newest decodable backup over a corrupt or
// missing primary, regenerates the metadata, and re-validates the
// on-disk result before reporting success. A still-valid primary is
// left untouched.
func (e *Engine) Repair(ctx context.Context, slot int) (*RepairResponse, error) {
	// 1. Refuse closed engines and out-of-range slots outright.
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}

	// 2. Claim the slot without waiting.
	mu := e.guard(slot)
	if !mu.TryLock() {
		return nil, domain.ErrSlotBusy.WithDetailsf("slot %d", slot)
	}
	defer mu.Unlock()

	start := time.Now()
	resp, err := e.repairSlot(ctx, slot)
	elapsed := time.Since(start)

	detail := errDetail(err)
	if resp != nil && resp.Repaired {
		detail = "promoted " + resp.BackupUsed
	}
	e.record(ctx, history.Entry{
		Op:         history.OpRepair,
		Slot:       slot,
		Outcome:    outcome(err),
		Detail:     detail,
		DurationMs: elapsed.Milliseconds(),
	})

	if err != nil {
		e.logger.Error("repair failed", "slot", slot, "error", err)
		return nil, err
	}

	resp.Duration = elapsed
	return resp, nil
}

func (e *Engine) repairSlot(ctx context.Context, slot int) (*RepairResponse, error) {
	defer e.setPhase(slot, PhaseIdle)
	e.setPhase(slot, PhaseRepairing)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &RepairResponse{Slot: slot}

	// 1. A primary that already decodes needs no repair. A missing
	//    primary is repairable when backups remain.
	data, readErr := e.store.Read(slot)
	if readErr == nil && e.decodable(data) {
		resp.AlreadyValid = true
		e.logger.Info("repair skipped, primary valid", "slot", slot)
		return resp, nil
	}
	if readErr != nil && !domain.IsDomainError(readErr, domain.ErrSlotEmpty.Code) {
		return nil, readErr
	}
	if readErr == nil {
		e.metrics.IncCorruptionDetected()
	}

	if e.backups == nil {
		return nil, domain.ErrNoBackups.WithDetails("backup rotation disabled")
	}

	// 2. Promote the newest backup that survives a full decode.
	name, _, err := e.promoteNewestBackup(ctx, slot)
	if err != nil {
		e.metrics.RecordRepair("failed")
		return nil, err
	}

	e.metrics.RecordRepair("ok")
	e.logger.Info("slot repaired from backup",
		"slot", slot,
		"backup", name)

	resp.Repaired = true
	resp.BackupUsed = name
	return resp, nil
}

// promoteNewestBackup copies the newest decodable backup over the
// primary, regenerates the metadata from the promoted record, and
// verifies the on-disk result. Shared by Repair and RestoreBackup.
func (e *Engine) promoteNewestBackup(ctx context.Context, slot int) (string, int64, error) {
	if e.backups == nil {
		return "", 0, domain.ErrNoBackups.WithDetails("backup rotation disabled")
	}

	restored, info, err := e.backups.Restore(slot, e.decodable)
	if err != nil {
		return "", 0, err
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	if err := e.store.Write(slot, restored); err != nil {
		return "", 0, err
	}

	// Re-validate what actually landed on disk. A promotion must never
	// report success while the primary is still corrupt.
	written, err := e.store.Read(slot)
	if err != nil {
		return "", 0, domain.ErrRepairFailed.WithDetails("primary unreadable after promotion").WithCause(err)
	}
	record, err := e.codec.Decode(written, e.opts)
	if err != nil {
		return "", 0, domain.ErrRepairFailed.WithDetailsf("backup %s undecodable after promotion", info.Name).WithCause(err)
	}

	md := domain.BuildMetadata(slot, record, int64(len(written)), nil)
	if err := e.store.WriteMetadata(slot, md); err != nil {
		e.logger.Warn("metadata write failed after promotion",
			"slot", slot,
			"error", err)
	}
	return info.Name, int64(len(written)), nil
}

// ============================================================================
// Backup Restore Operation
// ============================================================================

// RestoreResponse contains the result of an explicit backup rollback.
type RestoreResponse struct {
	Slot       int
	BackupUsed string
	Bytes      int64
	Duration   time.Duration
}

// RestoreBackup rolls a slot back to its newest decodable backup. The
// current primary is overwritten whether or not it is valid, so
// callers gate this behind explicit confirmation. Metadata is
// regenerated from the promoted record.
func (e *Engine) RestoreBackup(ctx context.Context, slot int) (*RestoreResponse, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}

	mu := e.guard(slot)
	if !mu.TryLock() {
		return nil, domain.ErrSlotBusy.WithDetailsf("slot %d", slot)
	}
	defer mu.Unlock()

	start := time.Now()
	resp, err := e.restoreSlot(ctx, slot)
	elapsed := time.Since(start)

	detail := errDetail(err)
	entry := history.Entry{
		Op:         history.OpRestore,
		Slot:       slot,
		Outcome:    outcome(err),
		DurationMs: elapsed.Milliseconds(),
	}
	if resp != nil {
		detail = "promoted " + resp.BackupUsed
		entry.Bytes = resp.Bytes
	}
	entry.Detail = detail
	e.record(ctx, entry)

	if err != nil {
		e.logger.Error("restore failed", "slot", slot, "error", err)
		return nil, err
	}

	resp.Duration = elapsed
	return resp, nil
}

func (e *Engine) restoreSlot(ctx context.Context, slot int) (*RestoreResponse, error) {
	defer e.setPhase(slot, PhaseIdle)
	e.setPhase(slot, PhaseRepairing)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, size, err := e.promoteNewestBackup(ctx, slot)
	if err != nil {
		return nil, err
	}

	e.logger.Info("backup restored over primary",
		"slot", slot,
		"backup", name)

	return &RestoreResponse{Slot: slot, BackupUsed: name, Bytes: size}, nil
}

// ============================================================================
// Backup pruning
// ============================================================================

// PruneBackups enforces the retention cap on a slot's backup set and
// returns how many entries were removed.
func (e *Engine) PruneBackups(ctx context.Context, slot int) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	if err := e.checkSlot(slot); err != nil {
		return 0, err
	}
	if e.backups == nil {
		return 0, nil
	}

	mu := e.guard(slot)
	if !mu.TryLock() {
		return 0, domain.ErrSlotBusy.WithDetailsf("slot %d", slot)
	}
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed, err := e.backups.Prune(slot)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		e.metrics.AddBackupsPruned(removed)
		e.logger.Info("backups pruned", "slot", slot, "removed", removed)
	}
	return removed, nil
}

// ============================================================================
// Export
// ============================================================================

// Export decodes a slot's primary artifact and returns the record
// without applying it to any collaborator. Used for inspection.
func (e *Engine) Export(ctx context.Context, slot int) (*domain.RootSaveRecord, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := e.store.Read(slot)
	if err != nil {
		return nil, err
	}
	return e.codec.Decode(data, e.opts)
}

// ExportQuicksave decodes the quicksave artifact without applying it.
func (e *Engine) ExportQuicksave(ctx context.Context) (*domain.RootSaveRecord, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := e.store.ReadQuicksave()
	if err != nil {
		return nil, err
	}
	return e.codec.Decode(data, e.opts)
}
