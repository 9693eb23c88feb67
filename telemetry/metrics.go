package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "keyfade"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
)

// Metrics agrupa os coletores Prometheus do serviço.
// Um *Metrics nil é válido e não registra nada.
type Metrics struct {
	AbuseEventsTotal *prometheus.CounterVec
	ActiveSecrets    prometheus.Gauge
	SweepsTotal      *prometheus.CounterVec
	SweepDeleted     prometheus.Counter
	RateLimitTotal   *prometheus.CounterVec
	BusyRejected     prometheus.Counter
}

// NewMetrics cria os coletores e registra em reg (se reg != nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AbuseEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "abuse",
				Name:      "events_total",
				Help:      "Total number of recorded abuse events by type",
			},
			[]string{"type"},
		),
		ActiveSecrets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "inventory",
				Name:      "active_secrets",
				Help:      "Number of logical secrets currently believed to exist in the vault",
			},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "cleanup",
				Name:      "sweeps_total",
				Help:      "Total number of vault cleanup sweeps by result",
			},
			[]string{"result"},
		),
		SweepDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "cleanup",
				Name:      "deleted_items_total",
				Help:      "Total number of expired vault items deleted by cleanup sweeps",
			},
		),
		RateLimitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "ratelimit",
				Name:      "decisions_total",
				Help:      "Total number of rate limit decisions by result",
			},
			[]string{"result"},
		),
		BusyRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "concurrency",
				Name:      "rejected_total",
				Help:      "Total number of requests rejected because every in-flight slot was taken",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.AbuseEventsTotal,
			m.ActiveSecrets,
			m.SweepsTotal,
			m.SweepDeleted,
			m.RateLimitTotal,
			m.BusyRejected,
		)
	}
	return m
}

func (m *Metrics) observeAbuse(t EventType) {
	if m == nil {
		return
	}
	m.AbuseEventsTotal.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) setActiveSecrets(n int) {
	if m == nil {
		return
	}
	m.ActiveSecrets.Set(float64(n))
}

// ObserveSweep conta uma varredura e os itens removidos por ela.
func (m *Metrics) ObserveSweep(err error, deleted int) {
	if m == nil {
		return
	}
	if err != nil {
		m.SweepsTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	m.SweepsTotal.WithLabelValues(ResultSuccess).Inc()
	m.SweepDeleted.Add(float64(deleted))
}

// ObserveRateLimit conta uma decisão do rate limiter.
func (m *Metrics) ObserveRateLimit(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.RateLimitTotal.WithLabelValues(ResultAllowed).Inc()
		return
	}
	m.RateLimitTotal.WithLabelValues(ResultDenied).Inc()
}

// ObserveBusy conta uma recusa do limite de concorrência.
func (m *Metrics) ObserveBusy() {
	if m == nil {
		return
	}
	m.BusyRejected.Inc()
}
