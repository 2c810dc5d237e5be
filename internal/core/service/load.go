package service

import (
	"context"
	"fmt"
	"time"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/event"
	"github.com/calderhale/keepsake-go/internal/history"
)

// ============================================================================
// Load Operation
// ============================================================================

// LoadRequest contains parameters for a load.
type LoadRequest struct {
	// Slot is the source slot index.
	Slot int

	// Reason describes what initiated the load. Carried on events and
	// journal entries.
	Reason string
}

// LoadResponse contains the result of a successful load.
type LoadResponse struct {
	Slot     int
	Bytes    int64
	Duration time.Duration

	// Repaired is set when the primary was undecodable and a backup
	// was promoted in its place. RepairedFrom names the backup used.
	Repaired     bool
	RepairedFrom string

	// Warning carries non-fatal findings, currently only
	// domain.ErrVersionMismatch when the artifact was produced by a
	// different build. The load still completed.
	Warning error
}

// Load reads the slot's primary artifact, decodes it, and applies the
// sections to the registered collaborators. An undecodable primary
// triggers one repair cycle through the newest valid backup before the
// load is reported failed.
func (e *Engine) Load(ctx context.Context, req *LoadRequest) (*LoadResponse, error) {
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

	e.publish(event.TopicLoadStarted, req.Slot, req.Reason)
	start := time.Now()

	resp, err := e.loadSlot(ctx, req)

	elapsed := time.Since(start)
	result := resultLabel(err)
	if err == nil && resp.Repaired {
		result = "repaired"
	}
	e.metrics.RecordLoad(result)
	e.metrics.ObserveLoadDuration(elapsed.Seconds())

	entry := history.Entry{
		Op:         history.OpLoad,
		Slot:       req.Slot,
		Outcome:    outcome(err),
		Detail:     errDetail(err),
		DurationMs: elapsed.Milliseconds(),
	}
	if resp != nil {
		entry.Bytes = resp.Bytes
		if resp.Repaired {
			entry.Detail = fmt.Sprintf("repaired from %s", resp.RepairedFrom)
		}
	}
	e.record(ctx, entry)

	if err != nil {
		e.logger.Error("load failed",
			"slot", req.Slot,
			"reason", req.Reason,
			"error", err)
		e.publish(event.TopicLoadFailed, req.Slot, err.Error())
		return nil, err
	}

	resp.Duration = elapsed
	e.logger.Info("load completed",
		"slot", req.Slot,
		"reason", req.Reason,
		"bytes", resp.Bytes,
		"repaired", resp.Repaired,
		"duration", elapsed)
	e.publish(event.TopicLoadCompleted, req.Slot, req.Reason)
	return resp, nil
}

// loadSlot runs the read, decode, apply pipeline while the slot guard
// is held, with one repair retry on decode failure.
func (e *Engine) loadSlot(ctx context.Context, req *LoadRequest) (*LoadResponse, error) {
	defer e.setPhase(req.Slot, PhaseIdle)

	// 1. Read the primary artifact. An empty slot is not a corruption;
	//    there is nothing a backup could restore the caller did not
	//    already delete.
	e.setPhase(req.Slot, PhaseReading)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := e.store.Read(req.Slot)
	if err != nil {
		return nil, err
	}

	resp := &LoadResponse{Slot: req.Slot}

	// 2. Decode. A failure here means the primary is corrupt; run the
	//    single repair cycle through the backup set.
	e.setPhase(req.Slot, PhaseDecoding)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, decErr := e.codec.Decode(data, e.opts)
	if decErr != nil {
		e.metrics.IncCorruptionDetected()
		record, data, err = e.repairForLoad(ctx, req.Slot, decErr, resp)
		if err != nil {
			return nil, err
		}
	}
	resp.Bytes = int64(len(data))

	// 3. A format version from another build is a warning, never a
	//    failure; the decode was schema-tolerant.
	if v := e.agg.FormatVersion(); v != "" && record.FormatVersion != v {
		resp.Warning = domain.ErrVersionMismatch.WithDetailsf(
			"artifact %s, engine %s", record.FormatVersion, v)
		e.logger.Warn("save format version differs",
			"slot", req.Slot,
			"artifact_version", record.FormatVersion,
			"engine_version", v)
	}

	// 4. Dispatch the sections to their collaborators.
	e.setPhase(req.Slot, PhaseApplying)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.agg.Apply(record); err != nil {
		return nil, err
	}

	return resp, nil
}

// repairForLoad promotes the newest decodable backup over a corrupt
// primary. On success it returns the recovered record and bytes and
// marks the response; on failure it surfaces the original decode error
// as the load's cause.
func (e *Engine) repairForLoad(ctx context.Context, slot int, decErr error, resp *LoadResponse) (*domain.RootSaveRecord, []byte, error) {
	if e.backups == nil {
		return nil, nil, decErr
	}

	e.setPhase(slot, PhaseRepairing)
	e.logger.Warn("primary artifact undecodable, trying backups",
		"slot", slot,
		"error", decErr)

	restored, info, err := e.backups.Restore(slot, e.decodable)
	if err != nil {
		e.metrics.RecordRepair("failed")
		e.logger.Error("backup restore failed",
			"slot", slot,
			"error", err)
		return nil, nil, decErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if err := e.store.Write(slot, restored); err != nil {
		e.metrics.RecordRepair("failed")
		return nil, nil, err
	}
	record, err := e.codec.Decode(restored, e.opts)
	if err != nil {
		// Restore already decode-checked these bytes; failing now
		// means the write path mangled them.
		e.metrics.RecordRepair("failed")
		return nil, nil, domain.ErrRepairFailed.WithDetailsf("backup %s undecodable after promotion", info.Name).WithCause(err)
	}

	// The promoted primary gets fresh metadata; the old summary
	// described the corrupt bytes.
	md := domain.BuildMetadata(slot, record, int64(len(restored)), nil)
	if err := e.store.WriteMetadata(slot, md); err != nil {
		e.logger.Warn("metadata write failed after repair",
			"slot", slot,
			"error", err)
	}

	e.metrics.RecordRepair("ok")
	e.logger.Info("slot repaired from backup",
		"slot", slot,
		"backup", info.Name)

	resp.Repaired = true
	resp.RepairedFrom = info.Name
	return record, restored, nil
}

// ============================================================================
// Quickload Operation
// ============================================================================

// QuickLoad decodes the quicksave artifact and applies it. There is no
// backup set behind the quicksave, so a corrupt artifact fails without
// a repair cycle.
func (e *Engine) QuickLoad(ctx context.Context) (*LoadResponse, error) {
	// 1. Refuse closed engines.
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	// 2. The quicksave artifact has its own guard under the pseudo-slot.
	mu := e.guard(QuicksaveSlot)
	mu.Lock()
	defer mu.Unlock()

	e.publish(event.TopicLoadStarted, QuicksaveSlot, "quickload")
	start := time.Now()

	resp, err := e.quickLoad(ctx)

	elapsed := time.Since(start)
	e.metrics.RecordLoad(resultLabel(err))
	e.metrics.ObserveLoadDuration(elapsed.Seconds())

	entry := history.Entry{
		Op:         history.OpQuickload,
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
		e.logger.Error("quickload failed", "error", err)
		e.publish(event.TopicLoadFailed, QuicksaveSlot, err.Error())
		return nil, err
	}

	resp.Duration = elapsed
	e.logger.Info("quickload completed",
		"bytes", resp.Bytes,
		"duration", elapsed)
	e.publish(event.TopicLoadCompleted, QuicksaveSlot, "quickload")
	return resp, nil
}

func (e *Engine) quickLoad(ctx context.Context) (*LoadResponse, error) {
	defer e.setPhase(QuicksaveSlot, PhaseIdle)

	// 1. Read the quicksave artifact.
	e.setPhase(QuicksaveSlot, PhaseReading)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := e.store.ReadQuicksave()
	if err != nil {
		return nil, err
	}

	// 2. Decode.
	e.setPhase(QuicksaveSlot, PhaseDecoding)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := e.codec.Decode(data, e.opts)
	if err != nil {
		e.metrics.IncCorruptionDetected()
		return nil, err
	}

	resp := &LoadResponse{Slot: QuicksaveSlot, Bytes: int64(len(data))}
	if v := e.agg.FormatVersion(); v != "" && record.FormatVersion != v {
		resp.Warning = domain.ErrVersionMismatch.WithDetailsf(
			"artifact %s, engine %s", record.FormatVersion, v)
	}

	// 3. Apply.
	e.setPhase(QuicksaveSlot, PhaseApplying)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.agg.Apply(record); err != nil {
		return nil, err
	}

	return resp, nil
}
