package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/core/event"
)

// Autosave defaults.
const (
	// DefaultAutosaveDebounce coalesces bursts of triggers (a scene
	// transition immediately followed by a pause) into one save.
	DefaultAutosaveDebounce = 2 * time.Second

	// DefaultAutosaveMinGap is the minimum spacing between
	// event-triggered saves.
	DefaultAutosaveMinGap = 30 * time.Second

	// autosaveTimeout bounds one autosave so a hung disk cannot wedge
	// the scheduler loop.
	autosaveTimeout = 30 * time.Second
)

// AutosaverConfig assembles an Autosaver.
type AutosaverConfig struct {
	// Engine performs the saves. Required.
	Engine *Engine

	// Slot is the reserved autosave slot.
	Slot int

	// Interval drives the timer path. Zero or negative disables it,
	// leaving only event triggers.
	Interval time.Duration

	// Debounce delays an event-triggered save so a burst of triggers
	// produces one save. Defaults to DefaultAutosaveDebounce.
	Debounce time.Duration

	// MinGap is the minimum spacing between event-triggered saves.
	// Defaults to DefaultAutosaveMinGap.
	MinGap time.Duration

	// Bus supplies the gameplay triggers. Nil leaves only the
	// interval path.
	Bus *event.Bus

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Autosaver drives the save path on an interval timer and on gameplay
// triggers (level-up, quest completion, scene transition, pause, focus
// loss). Triggers are debounced and rate-limited; the interval path is
// not. All saves target the reserved autosave slot.
type Autosaver struct {
	engine   *Engine
	slot     int
	interval time.Duration
	debounce time.Duration
	limiter  *rate.Limiter
	bus      *event.Bus
	logger   *slog.Logger

	sub       *event.Subscription
	triggerCh chan event.Event

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewAutosaver validates the configuration and assembles an Autosaver.
// It does not start saving until Start is called.
func NewAutosaver(cfg AutosaverConfig) (*Autosaver, error) {
	if cfg.Engine == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("engine is required")
	}
	if err := cfg.Engine.checkSlot(cfg.Slot); err != nil {
		return nil, domain.ErrConfigInvalid.WithDetailsf("autosave slot %d out of range", cfg.Slot)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultAutosaveDebounce
	}
	if cfg.MinGap <= 0 {
		cfg.MinGap = DefaultAutosaveMinGap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Autosaver{
		engine:   cfg.Engine,
		slot:     cfg.Slot,
		interval: cfg.Interval,
		debounce: cfg.Debounce,
		// Burst 1: the first trigger after a quiet stretch saves
		// immediately after its debounce; followers wait out MinGap.
		limiter:   rate.NewLimiter(rate.Every(cfg.MinGap), 1),
		bus:       cfg.Bus,
		logger:    cfg.Logger,
		triggerCh: make(chan event.Event, 16),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start subscribes to the gameplay triggers and launches the scheduler
// loop. Starting twice is an error.
func (a *Autosaver) Start() error {
	if !a.running.CompareAndSwap(false, true) {
		return domain.ErrConfigInvalid.WithDetails("autosaver already started")
	}

	if a.bus != nil {
		a.sub = a.bus.Subscribe(a.onTrigger, event.AutosaveTriggers()...)
	}

	go a.run()

	a.logger.Info("autosaver started",
		"slot", a.slot,
		"interval", a.interval,
		"debounce", a.debounce,
		"min_gap", a.limiter.Limit())
	return nil
}

// Stop halts both the interval and trigger paths and waits for the
// scheduler loop to exit. A save already in flight completes; Stop
// never cancels it. Safe to call more than once.
func (a *Autosaver) Stop() {
	if !a.running.Load() {
		return
	}
	a.stopOnce.Do(func() {
		if a.sub != nil {
			a.sub.Close()
		}
		close(a.stopCh)
		<-a.doneCh
		a.logger.Info("autosaver stopped")
	})
}

// onTrigger receives bus events. It never blocks the bus; when the
// buffer is full the trigger is dropped, which is safe because any
// queued trigger already schedules the same save.
func (a *Autosaver) onTrigger(e event.Event) {
	select {
	case a.triggerCh <- e:
	default:
	}
}

// run is the scheduler loop: interval ticks save immediately, triggers
// arm the debounce timer, and the debounce firing saves if the rate
// guard allows.
func (a *Autosaver) run() {
	defer close(a.doneCh)

	var tickerC <-chan time.Time
	if a.interval > 0 {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		tickerC = ticker.C
	}

	debounce := time.NewTimer(a.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	pendingReason := ""

	for {
		select {
		case <-a.stopCh:
			return

		case <-tickerC:
			a.save("interval")

		case e := <-a.triggerCh:
			pendingReason = string(e.Topic)
			// Each trigger in a burst pushes the save out again so
			// the burst coalesces into one.
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(a.debounce)

		case <-debounce.C:
			if !a.limiter.Allow() {
				a.logger.Debug("autosave trigger rate-limited",
					"trigger", pendingReason)
				continue
			}
			a.save(pendingReason)
		}
	}
}

// save performs one autosave. Failures are reported through the
// engine's events and logs; the scheduler keeps running.
func (a *Autosaver) save(trigger string) {
	a.engine.metrics.RecordAutosaveTrigger(trigger)

	// Independent of stopCh: stopping the autosaver must not cancel a
	// save already in flight.
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()

	if _, err := a.engine.Save(ctx, &SaveRequest{Slot: a.slot, Reason: trigger}); err != nil {
		a.logger.Error("autosave failed",
			"slot", a.slot,
			"trigger", trigger,
			"error", err)
	}
}
