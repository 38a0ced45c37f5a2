package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

// Metrics records conversation and collaborator counters. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	turnsTotal         *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	interruptionsTotal *prometheus.CounterVec
	otpTotal           *prometheus.CounterVec
	transfersTotal     *prometheus.CounterVec
	textRequestsTotal  *prometheus.CounterVec
	textDuration       *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfa_turns_total",
				Help: "Conversation turns by resulting phase and status",
			},
			[]string{"phase", "status"},
		),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfa_phase_transitions_total",
				Help: "Phase changes made by a turn",
			},
			[]string{"from", "to"},
		),
		interruptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfa_interruptions_total",
				Help: "Interruptions detected by interrupted phase and new intent",
			},
			[]string{"phase", "intent"},
		),
		otpTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfa_otp_verifications_total",
				Help: "OTP verification outcomes",
			},
			[]string{"outcome"},
		),
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfa_transfers_total",
				Help: "Transfer flows by final status",
			},
			[]string{"status"},
		),
		textRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfa_text_service_requests_total",
				Help: "Text service calls by provider, operation and status",
			},
			[]string{"provider", "operation", "status"},
		),
		textDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vfa_text_service_duration_seconds",
				Help:    "Duration of text service calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
	}
}

func (m *Metrics) ObserveTurn(phase models.Phase, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(string(phase), status).Inc()
}

func (m *Metrics) ObserveTransition(from, to models.Phase) {
	if m == nil || from == to {
		return
	}
	m.transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ObserveInterruption(phase models.Phase, intent models.Intent) {
	if m == nil {
		return
	}
	m.interruptionsTotal.WithLabelValues(string(phase), string(intent)).Inc()
}

func (m *Metrics) ObserveOTP(outcome string) {
	if m == nil {
		return
	}
	m.otpTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTransfer(status string) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTextService(provider, operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.textRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.textDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}
