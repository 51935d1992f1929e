package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

func TestLicenseMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLicenseMetrics(reg)

	m.ObserveValidation(enums.LicenseValid)
	m.ObserveValidation(enums.LicenseClockTamper)
	m.ObserveValidation(enums.LicenseClockTamper)
	m.ObserveActivation(OutcomeFirstActivation, 120*time.Millisecond)
	m.IncIssued()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "gymdesk_license_validations_total", "status", "clock-tamper"); err != nil {
		t.Fatalf("fetch validations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected clock-tamper=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "gymdesk_license_activations_total", "outcome", OutcomeFirstActivation); err != nil {
		t.Fatalf("fetch activations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected first_activation=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "gymdesk_license_activation_duration_seconds", "outcome", OutcomeFirstActivation); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "gymdesk_licenses_issued_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected issued counter of 1")
	}
}

func TestNilLicenseMetricsIsNoop(t *testing.T) {
	var m *LicenseMetrics
	m.ObserveValidation(enums.LicenseExpired)
	m.ObserveActivation(OutcomeRejected, time.Second)
	m.IncIssued()

	NewLicenseMetrics(nil).IncIssued()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
