package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

// Activation outcomes recorded by LicenseMetrics.
const (
	OutcomeFirstActivation = "first_activation"
	OutcomeReactivation    = "reactivation"
	OutcomeRejected        = "rejected"
	OutcomeError           = "error"
)

// LicenseMetrics records license validation, issuance and activation activity.
// A nil *LicenseMetrics is valid and records nothing.
type LicenseMetrics struct {
	validations *prometheus.CounterVec
	activations *prometheus.CounterVec
	issued      prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewLicenseMetrics registers the license metrics on the provided registerer.
func NewLicenseMetrics(reg prometheus.Registerer) *LicenseMetrics {
	if reg == nil {
		return &LicenseMetrics{}
	}
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "license_validations_total",
		Help:      "License validations by resulting status.",
	}, []string{"status"})
	activations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "license_activations_total",
		Help:      "License activations by outcome.",
	}, []string{"outcome"})
	issued := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gymdesk",
		Name:      "licenses_issued_total",
		Help:      "License keys signed by the issuer.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gymdesk",
		Name:      "license_activation_duration_seconds",
		Help:      "Duration of license activation in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(validations, activations, issued, duration)
	return &LicenseMetrics{
		validations: validations,
		activations: activations,
		issued:      issued,
		duration:    duration,
	}
}

// ObserveValidation counts a validation result.
func (m *LicenseMetrics) ObserveValidation(status enums.LicenseValidation) {
	if m == nil || m.validations == nil {
		return
	}
	m.validations.WithLabelValues(normalizeLabel(string(status))).Inc()
}

// ObserveActivation counts an activation and records how long it took.
func (m *LicenseMetrics) ObserveActivation(outcome string, took time.Duration) {
	if m == nil || m.activations == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.activations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(took.Seconds())
}

// IncIssued counts a signed license.
func (m *LicenseMetrics) IncIssued() {
	if m == nil || m.issued == nil {
		return
	}
	m.issued.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
