package recognition

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит метрики Prometheus для распознавания. Нулевой указатель допустим.
type Metrics struct {
	outcomesTotal     *prometheus.CounterVec
	failuresTotal     *prometheus.CounterVec
	lookupsTotal      *prometheus.CounterVec
	runDuration       prometheus.Histogram
	variantsGenerated prometheus.Histogram

	collectors []prometheus.Collector
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plate",
			Subsystem: "recognition",
			Name:      "outcomes_total",
			Help:      "Recognition runs by final status and resolution method.",
		}, []string{"status", "method"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plate",
			Subsystem: "recognition",
			Name:      "collaborator_failures_total",
			Help:      "Skipped candidates caused by collaborator failures.",
		}, []string{"collaborator", "op"}),
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plate",
			Subsystem: "recognition",
			Name:      "registry_lookups_total",
			Help:      "Registry lookups issued during recognition by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "plate",
			Subsystem: "recognition",
			Name:      "run_duration_seconds",
			Help:      "Duration of a full recognition run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		variantsGenerated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "plate",
			Subsystem: "recognition",
			Name:      "variants_generated",
			Help:      "Number of variants generated per variant search.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
	}
	m.collectors = []prometheus.Collector{
		m.outcomesTotal, m.failuresTotal, m.lookupsTotal, m.runDuration, m.variantsGenerated,
	}

	for _, c := range m.collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(out *Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(string(out.Status), string(out.Method)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeFailure(collaborator, op string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(collaborator, op).Inc()
}

func (m *Metrics) observeLookup(result string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeVariants(n int) {
	if m == nil {
		return
	}
	m.variantsGenerated.Observe(float64(n))
}
