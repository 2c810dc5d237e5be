package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/calderhale/keepsake-go/internal/codec"
	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/service"
	"github.com/calderhale/keepsake-go/internal/core/snapshot"
	"github.com/calderhale/keepsake-go/internal/storage"
	"github.com/calderhale/keepsake-go/internal/telemetry/metric"
)

// SectionSizes are the section payload sizes benchmarked.
var SectionSizes = []int{4 << 10, 64 << 10, 1 << 20}

func sizeLabel(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// sectionPayload builds a JSON section of roughly n bytes. The body
// repeats game-like tokens so compression sees realistic redundancy.
func sectionPayload(n int) json.RawMessage {
	const chunk = `"inventory-slot","potion-minor","quest-flag",`
	body := make([]byte, 0, n+len(chunk))
	body = append(body, `{"items":[`...)
	for len(body) < n-16 {
		body = append(body, chunk...)
	}
	body = append(body, `"end"]}`...)
	return json.RawMessage(body)
}

// blobCollaborator serves a fixed pre-built section.
type blobCollaborator struct {
	section json.RawMessage
}

func (c *blobCollaborator) Snapshot() (json.RawMessage, error) { return c.section, nil }

func (c *blobCollaborator) Restore(json.RawMessage) error { return nil }

func benchLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// makeRecord builds a save record carrying one section of roughly n
// bytes, for codec-only benchmarks.
func makeRecord(n int) *domain.RootSaveRecord {
	record := domain.NewRootSaveRecord("1.0.0")
	record.Sections["world"] = sectionPayload(n)
	return record
}

// newBenchEngine assembles a full engine over dir with one registered
// collaborator of roughly n section bytes.
func newBenchEngine(b *testing.B, dir string, n int, opts codec.Options) *service.Engine {
	b.Helper()
	log := benchLogger()

	store, err := storage.NewFileStore(storage.FileStoreConfig{
		Dir:      dir,
		MaxSlots: 3,
		Logger:   log,
	})
	if err != nil {
		b.Fatalf("NewFileStore: %v", err)
	}
	backups, err := storage.NewBackupManager(storage.BackupManagerConfig{
		Layout:     store.Layout(),
		MaxPerSlot: 3,
		Logger:     log,
	})
	if err != nil {
		b.Fatalf("NewBackupManager: %v", err)
	}

	cfg := codec.Config{}
	if opts.Encrypt {
		cfg.Key = codec.KeyConfig{
			Passphrase: []byte("benchmark-passphrase"),
			KDF:        codec.KDFRepeat,
		}
	}
	cd, err := codec.New(cfg)
	if err != nil {
		b.Fatalf("codec.New: %v", err)
	}

	agg, err := snapshot.NewAggregator(snapshot.Config{
		FormatVersion: "1.0.0",
		Logger:        log,
	})
	if err != nil {
		b.Fatalf("NewAggregator: %v", err)
	}
	if err := agg.RegisterEssential("world", &blobCollaborator{section: sectionPayload(n)}); err != nil {
		b.Fatalf("RegisterEssential: %v", err)
	}

	engine, err := service.NewEngine(service.EngineConfig{
		Aggregator:    agg,
		Codec:         cd,
		Options:       opts,
		Store:         store,
		Backups:       backups,
		CreateBackups: true,
		Metrics:       metric.NewRegistry(),
		Logger:        log,
	})
	if err != nil {
		b.Fatalf("NewEngine: %v", err)
	}
	b.Cleanup(func() { engine.Close() })
	return engine
}
