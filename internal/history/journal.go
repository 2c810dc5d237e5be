package history

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
)

// Common errors
var (
	ErrClosed = errors.New("history: journal closed")
)

// Op identifies the kind of persistence operation an Entry records.
type Op string

const (
	OpSave      Op = "save"
	OpLoad      Op = "load"
	OpQuicksave Op = "quicksave"
	OpQuickload Op = "quickload"
	OpDelete    Op = "delete"
	OpBackup    Op = "backup"
	OpRepair    Op = "repair"
	OpRestore   Op = "restore"
	OpValidate  Op = "validate"
)

// Entry outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Entry is one journaled persistence operation.
type Entry struct {
	// ID is the ULID key of the entry. Assigned on append when empty.
	ID string `json:"id"`

	// Time is when the operation finished. Stamped on append when zero.
	Time time.Time `json:"time"`

	// Op is the operation kind.
	Op Op `json:"op"`

	// Slot is the slot the operation targeted. Negative for the
	// quicksave pseudo-slot and for operations without a slot.
	Slot int `json:"slot"`

	// Outcome is OutcomeOK or OutcomeFailed.
	Outcome string `json:"outcome"`

	// Detail carries a short human-readable note, typically the error
	// text of a failed operation or the backup used by a repair.
	Detail string `json:"detail,omitempty"`

	// Bytes is the size of the artifact written or read, when known.
	Bytes int64 `json:"bytes,omitempty"`

	// DurationMs is the wall time of the operation in milliseconds.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// Config controls journal behavior.
type Config struct {
	// Dir is the Badger directory, usually <saves>/history.
	Dir string

	// MaxEntries is the retention cap enforced by the background loop
	// and by explicit Prune calls. Zero keeps everything.
	// Default: 1000
	MaxEntries int

	// GCInterval is the interval between background maintenance runs
	// (retention pruning followed by value-log GC).
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the Badger value-log GC discard ratio (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// Logger receives journal lifecycle and maintenance logs.
	Logger *slog.Logger
}

// DefaultConfig returns the default journal configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		MaxEntries:  1000,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// Journal is a Badger-backed, time-ordered operation journal.
type Journal struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	// entropy feeds ULID generation; guarded by mu because the
	// monotonic reader is not safe for concurrent use.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	lastGC   atomic.Int64 // Unix milliseconds, 0 until first cycle
	gcCycles atomic.Uint64

	closed atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// Stats describes journal size and maintenance state.
type Stats struct {
	// Entries is the number of journaled operations.
	Entries int

	// LSMBytes and ValueLogBytes are Badger's on-disk sizes.
	LSMBytes      int64
	ValueLogBytes int64

	// LastGC is the completion time of the most recent maintenance
	// cycle. Zero if none has run.
	LastGC time.Time

	// GCCycles counts completed maintenance cycles.
	GCCycles uint64
}

// Open opens (or creates) the journal at cfg.Dir and starts the
// background maintenance loop.
func Open(cfg Config) (*Journal, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("history: dir is required")
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = 0.5
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	// Journal entries are tiny; the default 1GB value log segment
	// would pin far more disk than the data warrants.
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	j := &Journal{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		entropy: ulid.Monotonic(rand.Reader, 0),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go j.maintenanceLoop()

	logger.Info("history journal opened",
		"dir", cfg.Dir,
		"max_entries", cfg.MaxEntries,
		"gc_interval", cfg.GCInterval)

	return j, nil
}

// Append journals one entry.
//
// A zero Time is stamped with the current time and an empty ID gets a
// fresh ULID derived from that time. A caller-supplied ID is kept
// verbatim, which lets imports preserve original ordering.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if j.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.ID == "" {
		id, err := j.nextID(e.Time)
		if err != nil {
			return fmt.Errorf("history: generate id: %w", err)
		}
		e.ID = id
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: encode entry: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(e.ID), data)
	})
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recent first. A limit of
// zero or less returns everything.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}

			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			var e Entry
			if err := json.Unmarshal(value, &e); err != nil {
				// A malformed record should not hide the rest of
				// the journal.
				j.logger.Warn("skipping malformed history entry",
					"key", string(it.Item().Key()),
					"error", err)
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan: %w", err)
	}

	return entries, nil
}

// Prune deletes all but the keep most recent entries and returns how
// many were removed. keep <= 0 removes nothing.
func (j *Journal) Prune(ctx context.Context, keep int) (int, error) {
	if j.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keep <= 0 {
		return 0, nil
	}

	removed := 0

	err := j.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		for it.Rewind(); it.Valid(); it.Next() {
			seen++
			if seen <= keep {
				continue
			}
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}

	if removed > 0 {
		j.logger.Info("pruned history entries",
			"removed", removed,
			"kept", keep)
	}
	return removed, nil
}

// Stats returns journal size and maintenance statistics.
func (j *Journal) Stats(ctx context.Context) (*Stats, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}

	lsm, vlog := j.db.Size()

	var lastGC time.Time
	if ms := j.lastGC.Load(); ms > 0 {
		lastGC = time.UnixMilli(ms)
	}

	return &Stats{
		Entries:       count,
		LSMBytes:      lsm,
		ValueLogBytes: vlog,
		LastGC:        lastGC,
		GCCycles:      j.gcCycles.Load(),
	}, nil
}

// Close stops the maintenance loop and closes the database. It is
// safe to call more than once.
func (j *Journal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(j.stopCh)
	<-j.doneCh

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("history: close db: %w", err)
	}

	j.logger.Info("history journal closed")
	return nil
}

// nextID generates a ULID for t.
func (j *Journal) nextID(t time.Time) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), j.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// maintenanceLoop periodically prunes past the retention cap and runs
// Badger value-log GC.
func (j *Journal) maintenanceLoop() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.maintain()
		case <-j.stopCh:
			return
		}
	}
}

// maintain runs one maintenance cycle.
func (j *Journal) maintain() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if j.cfg.MaxEntries > 0 {
		if _, err := j.Prune(ctx, j.cfg.MaxEntries); err != nil {
			j.logger.Error("history retention prune failed", "error", err)
		}
	}

	// Run value-log GC until nothing more can be reclaimed.
	for {
		err := j.db.RunValueLogGC(j.cfg.GCThreshold)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				j.logger.Error("history value-log gc failed", "error", err)
			}
			break
		}
	}

	j.lastGC.Store(time.Now().UnixMilli())
	j.gcCycles.Add(1)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
