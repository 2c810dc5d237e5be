package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// SlotStat is one slot's on-disk occupancy at scrape time.
type SlotStat struct {
	Slot    int
	Bytes   int64
	Backups int
}

// StatsSource reports current slot occupancy. Implemented by the
// persistence engine over its store and backup manager.
type StatsSource interface {
	SlotStats() []SlotStat
}

// StatsFunc adapts a function to the StatsSource interface.
type StatsFunc func() []SlotStat

// SlotStats calls f.
func (f StatsFunc) SlotStats() []SlotStat { return f() }

var (
	slotBytesDesc = prometheus.NewDesc(
		namespace+"_slot_bytes",
		"Size of the primary save file per occupied slot.",
		[]string{"slot"}, nil,
	)
	slotBackupsDesc = prometheus.NewDesc(
		namespace+"_slot_backups",
		"Retained backup files per occupied slot.",
		[]string{"slot"}, nil,
	)
)

// SlotCollector reports slot occupancy gauges from a StatsSource at
// scrape time. Reading the store on each scrape keeps the gauges
// correct when files change outside the engine.
type SlotCollector struct {
	source StatsSource
}

// NewSlotCollector creates a collector over the given source.
func NewSlotCollector(source StatsSource) *SlotCollector {
	return &SlotCollector{source: source}
}

// Describe implements prometheus.Collector.
func (c *SlotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- slotBytesDesc
	ch <- slotBackupsDesc
}

// Collect implements prometheus.Collector.
func (c *SlotCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	for _, st := range c.source.SlotStats() {
		slot := strconv.Itoa(st.Slot)
		ch <- prometheus.MustNewConstMetric(
			slotBytesDesc, prometheus.GaugeValue, float64(st.Bytes), slot)
		ch <- prometheus.MustNewConstMetric(
			slotBackupsDesc, prometheus.GaugeValue, float64(st.Backups), slot)
	}
}
