package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Entry outcomes recorded by the consumer loop.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomePoison    = "poison"
	OutcomeMarker    = "marker"
)

// ConsumerMetrics records the batch consumer loop activity.
type ConsumerMetrics struct {
	tickDuration *prometheus.HistogramVec
	entries      *prometheus.CounterVec
	acked        *prometheus.CounterVec
	routed       *prometheus.CounterVec
	pending      prometheus.Gauge
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	tickDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_tick_duration_seconds",
		Help:    "Duration of a consumer tick in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_entries_total",
		Help: "Stream entries handled by the consumer, by outcome.",
	}, []string{"outcome"})
	acked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_acked_total",
		Help: "Stream entries acknowledged by the consumer.",
	}, []string{"consumer"})
	routed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_routed_total",
		Help: "Payments sent to a processor, by strategy.",
	}, []string{"strategy"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "consumer_group_pending_entries",
		Help: "Entries delivered to the consumer group but not yet acknowledged.",
	})
	reg.MustRegister(tickDuration, entries, acked, routed, pending)
	return &ConsumerMetrics{
		tickDuration: tickDuration,
		entries:      entries,
		acked:        acked,
		routed:       routed,
		pending:      pending,
	}
}

// ObserveTick records the duration of one tick for the named consumer.
func (c *ConsumerMetrics) ObserveTick(consumer string, duration time.Duration) {
	if c == nil || c.tickDuration == nil {
		return
	}
	c.tickDuration.WithLabelValues(normalizeLabel(consumer)).Observe(duration.Seconds())
}

// IncEntry increments the entry counter for the outcome.
func (c *ConsumerMetrics) IncEntry(outcome string) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddAcked adds n acknowledged entries for the named consumer.
func (c *ConsumerMetrics) AddAcked(consumer string, n int64) {
	if c == nil || c.acked == nil || n <= 0 {
		return
	}
	c.acked.WithLabelValues(normalizeLabel(consumer)).Add(float64(n))
}

// IncRouted increments the routed counter for the strategy.
func (c *ConsumerMetrics) IncRouted(strategy string) {
	if c == nil || c.routed == nil {
		return
	}
	c.routed.WithLabelValues(normalizeLabel(strategy)).Inc()
}

// SetPending records the group's pending entry count as last observed.
func (c *ConsumerMetrics) SetPending(n int64) {
	if c == nil || c.pending == nil {
		return
	}
	c.pending.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
