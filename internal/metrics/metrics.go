// Package metrics exposes Prometheus instrumentation for tutoring sessions
package metrics

import "github.com/prometheus/client_golang/prometheus"

// TutorMetrics exposes counters/histograms for tutoring flows. A nil
// *TutorMetrics is valid and records nothing.
type TutorMetrics struct {
	turnsTotal        *prometheus.CounterVec
	starsTotal        prometheus.Counter
	badgesTotal       *prometheus.CounterVec
	difficultyChanges *prometheus.CounterVec
	safetyBlocks      prometheus.Counter
	activeSessions    prometheus.Gauge
	responderLatency  *prometheus.HistogramVec
}

func NewTutorMetrics(reg prometheus.Registerer) *TutorMetrics {
	m := &TutorMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alphabettutor",
			Subsystem: "session",
			Name:      "turns_total",
			Help:      "Conversation turns recorded, by detected intent",
		}, []string{"intent"}),
		starsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alphabettutor",
			Subsystem: "progress",
			Name:      "stars_total",
			Help:      "Stars awarded",
		}),
		badgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alphabettutor",
			Subsystem: "progress",
			Name:      "badges_total",
			Help:      "Badges awarded, by badge type",
		}, []string{"badge"}),
		difficultyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alphabettutor",
			Subsystem: "session",
			Name:      "difficulty_transitions_total",
			Help:      "Difficulty tier transitions",
		}, []string{"from", "to"}),
		safetyBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alphabettutor",
			Subsystem: "safety",
			Name:      "blocked_total",
			Help:      "Child messages blocked by the safety filter",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alphabettutor",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently held in memory",
		}),
		responderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alphabettutor",
			Subsystem: "responder",
			Name:      "latency_seconds",
			Help:      "Time taken to produce a tutor reply",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.starsTotal, m.badgesTotal, m.difficultyChanges,
		m.safetyBlocks, m.activeSessions, m.responderLatency)
	return m
}

func (m *TutorMetrics) ObserveTurn(intent string) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.turnsTotal.WithLabelValues(intent).Inc()
}

func (m *TutorMetrics) ObserveStar() {
	if m == nil {
		return
	}
	m.starsTotal.Inc()
}

func (m *TutorMetrics) ObserveBadge(badge string) {
	if m == nil {
		return
	}
	m.badgesTotal.WithLabelValues(badge).Inc()
}

func (m *TutorMetrics) ObserveDifficultyChange(from, to string) {
	if m == nil || from == to {
		return
	}
	m.difficultyChanges.WithLabelValues(from, to).Inc()
}

func (m *TutorMetrics) ObserveSafetyBlock() {
	if m == nil {
		return
	}
	m.safetyBlocks.Inc()
}

func (m *TutorMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *TutorMetrics) ObserveResponderLatency(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.responderLatency.WithLabelValues(backend).Observe(seconds)
}
