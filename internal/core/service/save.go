package service

import (
	"context"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/event"
	"github.com/calderhale/keepsake-go/internal/history"
)

// ============================================================================
// Save Operation
// ============================================================================

// SaveRequest contains parameters for a full save.
type SaveRequest struct {
	// Slot is the target slot index.
	Slot int

	// Reason describes what initiated the save ("manual", "autosave",
	// a trigger topic). Carried on events and journal entries.
	Reason string

	// Summary optionally supplies the display fields for the slot
	// metadata. When nil they are peeked from conventional sections.
	Summary *domain.SaveSummary
}

// SaveResponse contains the result of a successful save.
type SaveResponse struct {
	Slot          int
	Bytes         int64
	Duration      time.Duration
	Metadata      *domain.SlotMetadata
	BackupCreated bool
}

// Save snapshots all registered collaborators and writes the artifact
// to the requested slot. The previous primary is rotated into the
// backup set first (when enabled), so a failed save never damages the
// last good artifact.
func (e *Engine) Save(ctx context.Context, req *SaveRequest) (*SaveResponse, error) {
	// 1. Refuse closed engines and out-of-range slots outright.
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := e.checkSlot(req.Slot); err != nil {
		return nil, err
	}

	// 2. Serialize against other operations on the same slot.
	mu := e.guard(req.Slot)
	mu.Lock()
	defer mu.Unlock()

	e.publish(event.TopicSaveStarted, req.Slot, req.Reason)
	start := time.Now()

	resp, err := e.saveSlot(ctx, req)

	elapsed := time.Since(start)
	e.metrics.RecordSave(resultLabel(err))
	e.metrics.ObserveSaveDuration(elapsed.Seconds())

	entry := history.Entry{
		Op:         history.OpSave,
		Slot:       req.Slot,
		Outcome:    outcome(err),
		Detail:     errDetail(err),
		DurationMs: elapsed.Milliseconds(),
	}
	if resp != nil {
		entry.Bytes = resp.Bytes
	}
	e.record(ctx, entry)

	if err != nil {
		e.logger.Error("save failed",
			"slot", req.Slot,
			"reason", req.Reason,
			"error", err)
		e.publish(event.TopicSaveFailed, req.Slot, err.Error())
		return nil, err
	}

	resp.Duration = elapsed
	e.logger.Info("save completed",
		"slot", req.Slot,
		"reason", req.Reason,
		"bytes", resp.Bytes,
		"duration", elapsed)
	e.publish(event.TopicSaveCompleted, req.Slot, req.Reason)
	return resp, nil
}

// saveSlot runs the collect, encode, rotate, write pipeline while the
// slot guard is held.
func (e *Engine) saveSlot(ctx context.Context, req *SaveRequest) (*SaveResponse, error) {
	defer e.setPhase(req.Slot, PhaseIdle)

	// 1. Collect a snapshot from every registered collaborator.
	e.setPhase(req.Slot, PhaseCollecting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := e.agg.Collect()
	if err != nil {
		return nil, err
	}

	// 2. Build the complete artifact in memory. Nothing touches disk
	//    until the encode has fully succeeded.
	e.setPhase(req.Slot, PhaseEncoding)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := e.codec.Encode(record, e.opts)
	if err != nil {
		return nil, err
	}

	// 3. Rotate the current primary into the backup set before it is
	//    overwritten. Rotation failure degrades to a warning; the save
	//    itself proceeds.
	backupCreated := false
	if e.createBackups && e.backups != nil && e.store.Exists(req.Slot) {
		if _, err := e.backups.Create(req.Slot); err != nil {
			e.logger.Warn("backup rotation failed",
				"slot", req.Slot,
				"error", err)
		} else {
			backupCreated = true
			e.metrics.IncBackupCreated()
			if removed, err := e.backups.Prune(req.Slot); err != nil {
				e.logger.Warn("backup prune failed",
					"slot", req.Slot,
					"error", err)
			} else if removed > 0 {
				e.metrics.AddBackupsPruned(removed)
			}
		}
	}

	// 4. Commit the new primary. Past this point the save is no longer
	//    cancellable; it completes or fails outright.
	e.setPhase(req.Slot, PhaseWriting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.store.Write(req.Slot, data); err != nil {
		return nil, err
	}

	// 5. Refresh the slot summary. The primary is the source of truth,
	//    so a metadata failure degrades to a warning.
	md := domain.BuildMetadata(req.Slot, record, int64(len(data)), req.Summary)
	if err := e.store.WriteMetadata(req.Slot, md); err != nil {
		e.logger.Warn("metadata write failed",
			"slot", req.Slot,
			"error", err)
	}

	// 6. Capture the companion screenshot, best effort.
	if e.screenshot != nil {
		if png, err := e.screenshot(ctx); err != nil {
			e.logger.Warn("screenshot capture failed",
				"slot", req.Slot,
				"error", err)
		} else if len(png) > 0 {
			if err := e.store.WriteScreenshot(req.Slot, png); err != nil {
				e.logger.Warn("screenshot write failed",
					"slot", req.Slot,
					"error", err)
			}
		}
	}

	return &SaveResponse{
		Slot:          req.Slot,
		Bytes:         int64(len(data)),
		Metadata:      md,
		BackupCreated: backupCreated,
	}, nil
}

// ============================================================================
// Quicksave Operation
// ============================================================================

// QuickSave snapshots only the essential collaborators and writes the
// single rotating quicksave artifact. No metadata, backups, or
// screenshot accompany it.
func (e *Engine) QuickSave(ctx context.Context) (*SaveResponse, error) {
	// 1. Refuse closed engines.
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	// 2. The quicksave artifact has its own guard under the pseudo-slot.
	mu := e.guard(QuicksaveSlot)
	mu.Lock()
	defer mu.Unlock()

	e.publish(event.TopicSaveStarted, QuicksaveSlot, "quicksave")
	start := time.Now()

	resp, err := e.quickSave(ctx)

	elapsed := time.Since(start)
	e.metrics.RecordSave(resultLabel(err))
	e.metrics.ObserveSaveDuration(elapsed.Seconds())

	entry := history.Entry{
		Op:         history.OpQuicksave,
		Slot:       QuicksaveSlot,
		Outcome:    outcome(err),
		Detail:     errDetail(err),
		DurationMs: elapsed.Milliseconds(),
	}
	if resp != nil {
		entry.Bytes = resp.Bytes
	}
	e.record(ctx, entry)

	if err != nil {
		e.logger.Error("quicksave failed", "error", err)
		e.publish(event.TopicSaveFailed, QuicksaveSlot, err.Error())
		return nil, err
	}

	resp.Duration = elapsed
	e.logger.Info("quicksave completed",
		"bytes", resp.Bytes,
		"duration", elapsed)
	e.publish(event.TopicSaveCompleted, QuicksaveSlot, "quicksave")
	return resp, nil
}

func (e *Engine) quickSave(ctx context.Context) (*SaveResponse, error) {
	defer e.setPhase(QuicksaveSlot, PhaseIdle)

	// 1. Collect only the essential sections.
	e.setPhase(QuicksaveSlot, PhaseCollecting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := e.agg.CollectMinimal()
	if err != nil {
		return nil, err
	}

	// 2. Encode fully in memory.
	e.setPhase(QuicksaveSlot, PhaseEncoding)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := e.codec.Encode(record, e.opts)
	if err != nil {
		return nil, err
	}

	// 3. Replace the quicksave artifact.
	e.setPhase(QuicksaveSlot, PhaseWriting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.store.WriteQuicksave(data); err != nil {
		return nil, err
	}

	return &SaveResponse{
		Slot:  QuicksaveSlot,
		Bytes: int64(len(data)),
	}, nil
}
