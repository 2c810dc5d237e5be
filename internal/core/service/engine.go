package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/calderhale/keepsake-go/internal/codec"
	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/event"
	"github.com/calderhale/keepsake-go/internal/core/snapshot"
	"github.com/calderhale/keepsake-go/internal/history"
	"github.com/calderhale/keepsake-go/internal/storage"
	"github.com/calderhale/keepsake-go/internal/telemetry/metric"
	"github.com/calderhale/keepsake-go/pkg/cmap"
)

// QuicksaveSlot is the pseudo-slot index reported in events, journal
// entries, and phase queries for operations on the single quicksave
// artifact. It is never a valid argument to slot-addressed operations.
const QuicksaveSlot = -1

// Phase names the pipeline stage a slot operation is currently in.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseEncoding   Phase = "encoding"
	PhaseWriting    Phase = "writing"
	PhaseReading    Phase = "reading"
	PhaseDecoding   Phase = "decoding"
	PhaseApplying   Phase = "applying"
	PhaseRepairing  Phase = "repairing"
)

// BackupRotator is the backup surface the engine drives. Satisfied by
// *storage.BackupManager. A nil rotator disables both rotation on save
// and backup-based repair.
type BackupRotator interface {
	// Create duplicates the slot's current primary into the backup set.
	Create(slot int) (*storage.BackupInfo, error)

	// List returns the slot's backups newest-first.
	List(slot int) ([]storage.BackupInfo, error)

	// Restore returns the newest backup bytes the decodable check
	// accepts, skipping entries that fail it.
	Restore(slot int, decodable func([]byte) bool) ([]byte, *storage.BackupInfo, error)

	// Prune removes the oldest backups beyond the retention cap.
	Prune(slot int) (int, error)

	// RemoveAll deletes every backup of a slot.
	RemoveAll(slot int) (int, error)

	// MaxPerSlot returns the retention cap.
	MaxPerSlot() int
}

// Recorder receives one journal entry per completed operation.
// Satisfied by *history.Journal. Append failures are logged and
// swallowed; the journal is diagnostics, never a dependency of the
// operation that feeds it.
type Recorder interface {
	Append(ctx context.Context, e history.Entry) error
}

// ScreenshotFunc captures the companion image written after a
// successful save. It runs outside the save's critical path; errors
// and empty captures only skip the screenshot.
type ScreenshotFunc func(ctx context.Context) ([]byte, error)

// EngineConfig assembles an Engine.
type EngineConfig struct {
	// Aggregator collects snapshots from and applies them to the
	// registered collaborators. Required.
	Aggregator *snapshot.Aggregator

	// Codec encodes records into artifact bytes and back. Required.
	Codec *codec.Codec

	// Options selects the codec stages. The same options decode every
	// artifact the engine ever wrote, so changing them invalidates
	// existing saves.
	Options codec.Options

	// Store holds primary artifacts, metadata, screenshots, and the
	// quicksave. Required.
	Store storage.Store

	// Backups rotates and restores per-slot backups. Nil disables
	// rotation and repair.
	Backups BackupRotator

	// CreateBackups gates rotation on save. Repair still works when
	// false as long as Backups is set.
	CreateBackups bool

	// Bus receives save and load lifecycle events. Optional.
	Bus *event.Bus

	// Journal records completed operations. Optional.
	Journal Recorder

	// Metrics defaults to the process-wide registry.
	Metrics *metric.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Screenshot captures the post-save companion image. Optional.
	Screenshot ScreenshotFunc
}

// Engine orchestrates every persistence operation. Safe for concurrent
// use; operations against the same slot are serialized.
type Engine struct {
	agg           *snapshot.Aggregator
	codec         *codec.Codec
	opts          codec.Options
	store         storage.Store
	backups       BackupRotator
	createBackups bool
	bus           *event.Bus
	journal       Recorder
	metrics       *metric.Registry
	logger        *slog.Logger
	screenshot    ScreenshotFunc

	// guards serialize operations per slot; phases mirror the stage
	// each slot is in for diagnostics.
	guards *cmap.Map[int, *sync.Mutex]
	phases *cmap.Map[int, Phase]

	closed atomic.Bool
}

// NewEngine validates the configuration and assembles an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Aggregator == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("aggregator is required")
	}
	if cfg.Codec == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("codec is required")
	}
	if cfg.Store == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("store is required")
	}
	if cfg.CreateBackups && cfg.Backups == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("backup rotation enabled without a rotator")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		agg:           cfg.Aggregator,
		codec:         cfg.Codec,
		opts:          cfg.Options,
		store:         cfg.Store,
		backups:       cfg.Backups,
		createBackups: cfg.CreateBackups,
		bus:           cfg.Bus,
		journal:       cfg.Journal,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		screenshot:    cfg.Screenshot,
		guards:        cmap.New[int, *sync.Mutex](),
		phases:        cmap.New[int, Phase](),
	}, nil
}

// MaxSlots returns the exclusive upper bound of valid slot indices.
func (e *Engine) MaxSlots() int {
	return e.store.MaxSlots()
}

// SlotPhase reports the pipeline stage the slot is currently in.
// Slots with no operation in flight report PhaseIdle.
func (e *Engine) SlotPhase(slot int) Phase {
	if p, ok := e.phases.Get(slot); ok {
		return p
	}
	return PhaseIdle
}

// Close blocks new operations. Operations already in flight run to
// completion; Close does not wait for them.
func (e *Engine) Close() error {
	e.closed.CompareAndSwap(false, true)
	return nil
}

// SlotStats reports per-slot sizes and backup counts for the metrics
// collector. Unreadable slots are skipped.
func (e *Engine) SlotStats() []metric.SlotStat {
	stats := make([]metric.SlotStat, 0, e.store.MaxSlots())
	for slot := 0; slot < e.store.MaxSlots(); slot++ {
		md, err := e.store.ReadMetadata(slot)
		if err != nil || md == nil {
			continue
		}
		stat := metric.SlotStat{Slot: slot, Bytes: md.FileSize}
		if e.backups != nil {
			if infos, err := e.backups.List(slot); err == nil {
				stat.Backups = len(infos)
			}
		}
		stats = append(stats, stat)
	}
	return stats
}

// ============================================================================
// Shared operation plumbing
// ============================================================================

// checkOpen refuses operations on a closed engine.
func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return domain.ErrClosed
	}
	return nil
}

// checkSlot enforces the slot range.
func (e *Engine) checkSlot(slot int) error {
	if slot < 0 || slot >= e.store.MaxSlots() {
		return domain.ErrInvalidSlot.WithDetailsf("slot %d not in [0, %d)", slot, e.store.MaxSlots())
	}
	return nil
}

// guard returns the slot's operation mutex, creating it on first use.
func (e *Engine) guard(slot int) *sync.Mutex {
	mu, _ := e.guards.GetOrSet(slot, &sync.Mutex{})
	return mu
}

// setPhase records the slot's current pipeline stage.
func (e *Engine) setPhase(slot int, p Phase) {
	e.phases.Set(slot, p)
}

// publish emits a lifecycle event when a bus is wired.
func (e *Engine) publish(topic event.Topic, slot int, reason string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(event.Event{Topic: topic, Slot: slot, Reason: reason})
}

// record journals a completed operation. Journal failures degrade to a
// warning so diagnostics can never fail the operation they describe.
func (e *Engine) record(ctx context.Context, entry history.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(ctx, entry); err != nil {
		e.logger.Warn("history append failed",
			"op", entry.Op,
			"slot", entry.Slot,
			"error", err)
	}
}

// decodable reports whether artifact bytes survive a full decode with
// the engine's options. Used as the backup restore check.
func (e *Engine) decodable(data []byte) bool {
	_, err := e.codec.Decode(data, e.opts)
	return err == nil
}

// outcome maps an operation error to a journal outcome string.
func outcome(err error) string {
	if err != nil {
		return history.OutcomeFailed
	}
	return history.OutcomeOK
}

// resultLabel maps an operation error to a metrics result label.
func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// errDetail returns the error text for journal details, empty on nil.
func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
