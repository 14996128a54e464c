package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsEmitted   prometheus.Counter
	RecordsDropped   prometheus.Counter
	RecordsSkipped   prometheus.Counter
	SinkErrors       prometheus.Counter
	QueueDepth       prometheus.Gauge
	BruteForceBlocks prometheus.Counter
	BruteForceDelays prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_audit_records_emitted_total",
			Help: "Total number of audit records handed to the sink",
		}),
		RecordsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_audit_records_dropped_total",
			Help: "Total number of audit records dropped due to queue overflow",
		}),
		RecordsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_audit_records_skipped_total",
			Help: "Total number of requests excluded by skip rules",
		}),
		SinkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_audit_sink_errors_total",
			Help: "Total number of sink append failures (logged and swallowed)",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "taskboard_audit_queue_depth",
			Help: "Current number of audit records waiting in the emit queue",
		}),
		BruteForceBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_bruteforce_blocks_total",
			Help: "Total number of requests rejected by an active security block",
		}),
		BruteForceDelays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_bruteforce_delays_total",
			Help: "Total number of progressive delays applied to auth attempts",
		}),
	}
}

func (m *Metrics) IncEmitted() {
	if m != nil {
		m.RecordsEmitted.Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.RecordsDropped.Inc()
	}
}

func (m *Metrics) IncSkipped() {
	if m != nil {
		m.RecordsSkipped.Inc()
	}
}

func (m *Metrics) IncSinkErrors() {
	if m != nil {
		m.SinkErrors.Inc()
	}
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m != nil {
		m.QueueDepth.Set(float64(depth))
	}
}

func (m *Metrics) IncBlocks() {
	if m != nil {
		m.BruteForceBlocks.Inc()
	}
}

func (m *Metrics) IncDelays() {
	if m != nil {
		m.BruteForceDelays.Inc()
	}
}
