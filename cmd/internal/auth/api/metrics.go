package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts auth outcomes. A nil *Metrics records nothing.
type Metrics struct {
	refresh     *prometheus.CounterVec
	reuse       prometheus.Counter
	login       *prometheus.CounterVec
	register    *prometheus.CounterVec
	rateLimits *prometheus.CounterVec
}

// NewMetrics registers the auth counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		refresh: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jotter",
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Refresh attempts by outcome (ok or error code).",
		}, []string{"outcome"}),
		reuse: f.NewCounter(prometheus.CounterOpts{
			Namespace: "jotter",
			Subsystem: "auth",
			Name:      "reuse_detected_total",
			Help:      "Refresh token reuse detections (ledger cleared).",
		}),
		login: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jotter",
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		register: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jotter",
			Subsystem: "auth",
			Name:      "register_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		rateLimits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jotter",
			Subsystem: "auth",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP limiter.",
		}, []string{"route"}),
	}
}

func (m *Metrics) refreshOutcome(outcome string) {
	if m == nil {
		return
	}
	m.refresh.WithLabelValues(outcome).Inc()
}

func (m *Metrics) reuseDetected() {
	if m == nil {
		return
	}
	m.reuse.Inc()
}

func (m *Metrics) loginResult(result string) {
	if m == nil {
		return
	}
	m.login.WithLabelValues(result).Inc()
}

func (m *Metrics) registerResult(result string) {
	if m == nil {
		return
	}
	m.register.WithLabelValues(result).Inc()
}

func (m *Metrics) rateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimits.WithLabelValues(route).Inc()
}
