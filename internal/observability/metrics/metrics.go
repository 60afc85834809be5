package metrics

import (
	"strings"
	"time"

	"github.com/marginfox/marginfox/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics captures sync pipeline health signals: page volume, ledger
// postings vs deduplications, and unit failures. A nil receiver is valid and
// records nothing, so tests can run without a registry.
type SyncMetrics struct {
	pagesFetched       *prometheus.CounterVec
	eventsPosted       *prometheus.CounterVec
	eventsDeduplicated *prometheus.CounterVec
	chunkFailures      *prometheus.CounterVec
	reportPolls        prometheus.Counter
	syncDuration       *prometheus.HistogramVec
}

func New(cfg config.Config) *SyncMetrics {
	return newSyncMetrics(prometheus.DefaultRegisterer, cfg)
}

func newSyncMetrics(registerer prometheus.Registerer, cfg config.Config) *SyncMetrics {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "marginfox"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     cfg.Environment,
	}

	m := &SyncMetrics{
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "marginfox_sync_pages_fetched_total",
			Help:        "Upstream API pages fetched by endpoint.",
			ConstLabels: constLabels,
		}, []string{"endpoint"}),
		eventsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "marginfox_ledger_events_posted_total",
			Help:        "Ledger rows inserted by event type.",
			ConstLabels: constLabels,
		}, []string{"event_type"}),
		eventsDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "marginfox_ledger_events_deduplicated_total",
			Help:        "Candidates skipped because an equivalent row existed.",
			ConstLabels: constLabels,
		}, []string{"event_type"}),
		chunkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "marginfox_sync_chunk_failures_total",
			Help:        "Chunk or marketplace units that failed and were skipped.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		reportPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "marginfox_sync_report_polls_total",
			Help:        "Report status poll attempts.",
			ConstLabels: constLabels,
		}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "marginfox_sync_duration_seconds",
			Help:        "End-to-end sync run latency by job type.",
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			ConstLabels: constLabels,
		}, []string{"job"}),
	}

	for _, c := range []prometheus.Collector{
		m.pagesFetched, m.eventsPosted, m.eventsDeduplicated,
		m.chunkFailures, m.reportPolls, m.syncDuration,
	} {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return m
}

func (m *SyncMetrics) PageFetched(endpoint string) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(endpoint).Inc()
}

func (m *SyncMetrics) EventPosted(eventType string) {
	if m == nil {
		return
	}
	m.eventsPosted.WithLabelValues(eventType).Inc()
}

func (m *SyncMetrics) EventDeduplicated(eventType string) {
	if m == nil {
		return
	}
	m.eventsDeduplicated.WithLabelValues(eventType).Inc()
}

func (m *SyncMetrics) ChunkFailed(job string) {
	if m == nil {
		return
	}
	m.chunkFailures.WithLabelValues(job).Inc()
}

func (m *SyncMetrics) ReportPoll() {
	if m == nil {
		return
	}
	m.reportPolls.Inc()
}

func (m *SyncMetrics) ObserveSyncDuration(job string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
