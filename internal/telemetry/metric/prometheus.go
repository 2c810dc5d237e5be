package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric name.
const namespace = "keepsake"

// durationBuckets covers local disk writes up to slow encrypted saves
// of large worlds.
var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Persistence outcomes
	SavesTotal *prometheus.CounterVec
	LoadsTotal *prometheus.CounterVec

	// Persistence latency
	SaveDuration prometheus.Histogram
	LoadDuration prometheus.Histogram

	// Backup churn
	BackupsCreated prometheus.Counter
	BackupsPruned  prometheus.Counter

	// Integrity
	RepairsTotal        *prometheus.CounterVec
	CorruptionsDetected prometheus.Counter

	// Autosave triggers
	AutosavesTotal *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all application
// metrics registered, plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Registry{
		registry: reg,

		SavesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Total save operations by result.",
		}, []string{"result"}),

		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total load operations by result.",
		}, []string{"result"}),

		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Time to collect, encode and write a slot.",
			Buckets:   durationBuckets,
		}),

		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to read, decode and apply a slot.",
			Buckets:   durationBuckets,
		}),

		BackupsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_created_total",
			Help:      "Total backups created before slot overwrites.",
		}),

		BackupsPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_pruned_total",
			Help:      "Total backup files removed by retention.",
		}),

		RepairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Total slot repair attempts by result.",
		}, []string{"result"}),

		CorruptionsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corruptions_detected_total",
			Help:      "Total primary save files that failed validation.",
		}),

		AutosavesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosaves_total",
			Help:      "Total autosave runs by trigger.",
		}, []string{"trigger"}),
	}
}

// Handler returns an HTTP handler exposing this registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Register adds a custom collector to this registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// RecordSave counts a save operation outcome ("ok" or "error").
func (r *Registry) RecordSave(result string) {
	r.SavesTotal.WithLabelValues(result).Inc()
}

// RecordLoad counts a load operation outcome ("ok", "repaired" or "error").
func (r *Registry) RecordLoad(result string) {
	r.LoadsTotal.WithLabelValues(result).Inc()
}

// ObserveSaveDuration records the wall time of a save in seconds.
func (r *Registry) ObserveSaveDuration(seconds float64) {
	r.SaveDuration.Observe(seconds)
}

// ObserveLoadDuration records the wall time of a load in seconds.
func (r *Registry) ObserveLoadDuration(seconds float64) {
	r.LoadDuration.Observe(seconds)
}

// IncBackupCreated counts one rotated backup.
func (r *Registry) IncBackupCreated() {
	r.BackupsCreated.Inc()
}

// AddBackupsPruned counts n backup files removed by retention.
func (r *Registry) AddBackupsPruned(n int) {
	r.BackupsPruned.Add(float64(n))
}

// RecordRepair counts a repair attempt outcome ("ok" or "failed").
func (r *Registry) RecordRepair(result string) {
	r.RepairsTotal.WithLabelValues(result).Inc()
}

// IncCorruptionDetected counts one primary file that failed validation.
func (r *Registry) IncCorruptionDetected() {
	r.CorruptionsDetected.Inc()
}

// RecordAutosaveTrigger counts an autosave run by its trigger
// ("interval", "level-up", "quest-completed", ...).
func (r *Registry) RecordAutosaveTrigger(trigger string) {
	r.AutosavesTotal.WithLabelValues(trigger).Inc()
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide metrics registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry's /metrics
// endpoint.
func Handler() http.Handler {
	return Global().Handler()
}
