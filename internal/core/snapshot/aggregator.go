package snapshot

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/calderhale/keepsake-go/internal/core/domain"
)

// Collaborator is a game subsystem that contributes one section to
// the root save record.
type Collaborator interface {
	// Snapshot returns the subsystem's current state as an opaque
	// JSON value, or nil when there is nothing to persist right now.
	Snapshot() (json.RawMessage, error)
	// Restore applies a previously captured section.
	Restore(section json.RawMessage) error
}

// registration pairs a collaborator with its collection tier.
type registration struct {
	collaborator Collaborator
	essential    bool
}

// Config holds aggregator construction parameters.
type Config struct {
	// FormatVersion stamps every collected record. Required.
	FormatVersion string
	// PlayTime reports accumulated play time in seconds at collect
	// time. Optional; records carry zero without it.
	PlayTime func() float64
	// RestorePlayTime receives the record's play time after a
	// successful Apply. Optional.
	RestorePlayTime func(float64)
	// Logger is the structured logger.
	Logger *slog.Logger
}

// Aggregator maintains the collaborator registry and moves state
// between subsystems and root save records.
type Aggregator struct {
	mu            sync.RWMutex
	registry      map[string]registration
	formatVersion string

	playTime        func() float64
	restorePlayTime func(float64)
	logger          *slog.Logger
}

// NewAggregator creates an aggregator with an empty registry.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if cfg.FormatVersion == "" {
		return nil, domain.ErrConfigInvalid.WithDetails("format version must not be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Aggregator{
		registry:        make(map[string]registration),
		formatVersion:   cfg.FormatVersion,
		playTime:        cfg.PlayTime,
		restorePlayTime: cfg.RestorePlayTime,
		logger:          cfg.Logger,
	}, nil
}

// Register adds a collaborator under the given section name. The
// section is included by full saves but skipped by quick saves.
func (a *Aggregator) Register(name string, c Collaborator) error {
	return a.register(name, c, false)
}

// RegisterEssential adds a collaborator whose section is included by
// both full and quick saves (player identity, vital stats, current
// scene).
func (a *Aggregator) RegisterEssential(name string, c Collaborator) error {
	return a.register(name, c, true)
}

func (a *Aggregator) register(name string, c Collaborator, essential bool) error {
	if name == "" {
		return domain.ErrConfigInvalid.WithDetails("section name must not be empty")
	}
	if len(name) > domain.MaxSectionNameLength {
		return domain.ErrConfigInvalid.WithDetailsf("section name %q exceeds %d characters", name, domain.MaxSectionNameLength)
	}
	if c == nil {
		return domain.ErrConfigInvalid.WithDetailsf("collaborator for section %q is nil", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.registry[name]; exists {
		return domain.ErrConfigInvalid.WithDetailsf("section %q already registered", name)
	}
	if len(a.registry) >= domain.MaxSections {
		return domain.ErrConfigInvalid.WithDetailsf("registry full: %d sections", domain.MaxSections)
	}

	a.registry[name] = registration{collaborator: c, essential: essential}
	return nil
}

// Unregister removes the named collaborator. Removing an unknown name
// is a no-op, so scene teardown can unregister unconditionally.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.registry, name)
}

// FormatVersion returns the version stamped onto collected records.
func (a *Aggregator) FormatVersion() string {
	return a.formatVersion
}

// Names returns all registered section names, sorted.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.registry))
	for name := range a.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collect queries every registered collaborator and assembles the
// aggregate record. Collaborators that report nothing are omitted.
func (a *Aggregator) Collect() (*domain.RootSaveRecord, error) {
	return a.collect(false)
}

// CollectMinimal assembles a record from essential sections only, for
// low-latency quick saves.
func (a *Aggregator) CollectMinimal() (*domain.RootSaveRecord, error) {
	return a.collect(true)
}

func (a *Aggregator) collect(minimal bool) (*domain.RootSaveRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	record := domain.NewRootSaveRecord(a.formatVersion)
	if a.playTime != nil {
		record.PlayTimeSeconds = a.playTime()
	}

	for name, reg := range a.registry {
		if minimal && !reg.essential {
			continue
		}

		section, err := reg.collaborator.Snapshot()
		if err != nil {
			return nil, domain.ErrSerialization.
				WithDetailsf("section %q snapshot failed", name).
				WithCause(err)
		}
		if section == nil {
			a.logger.Debug("section has nothing to persist", "section", name)
			continue
		}
		if !json.Valid(section) {
			return nil, domain.ErrSerialization.WithDetailsf("section %q produced invalid JSON", name)
		}

		record.SetSection(name, section)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Apply dispatches each section of record to the collaborator that
// owns it. Unknown sections are skipped; registered collaborators
// whose sections are absent keep their current state. Sections are
// applied in name order and the first restore failure aborts, so a
// failed load can leave earlier sections applied.
func (a *Aggregator) Apply(record *domain.RootSaveRecord) error {
	if record == nil {
		return domain.ErrSerialization.WithDetails("record is nil")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, name := range record.SectionNames() {
		reg, known := a.registry[name]
		if !known {
			a.logger.Debug("skipping unknown section", "section", name)
			continue
		}

		section, _ := record.Section(name)
		if err := reg.collaborator.Restore(section); err != nil {
			return domain.ErrSerialization.
				WithDetailsf("section %q restore failed", name).
				WithCause(err)
		}
	}

	if a.restorePlayTime != nil {
		a.restorePlayTime(record.PlayTimeSeconds)
	}
	return nil
}
