package authengine

import (
	"testing"
	"time"

	"github.com/MrEthical07/authengine/internal/flows"
)

func TestMetricsDisabledIgnoresUpdates(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLockout)
	if m.Value(MetricLockout) != 0 {
		t.Fatal("disabled metrics counted")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot not empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLockout)
	nilMetrics.Observe(MetricAuthenticateLatency, time.Millisecond)
}

func TestMetricsObserverMapsEvents(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	observe := m.observer()
	observe(flows.EventLockout)
	observe(flows.EventLockout)
	observe(flows.EventTOTPFailure)
	observe(flows.EventAuthenticated)

	if m.Value(MetricLockout) != 2 || m.Value(MetricTOTPFailure) != 1 {
		t.Fatalf("unexpected counters: %+v", m.Snapshot().Counters)
	}
}

func TestLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricAuthenticateLatency, 3*time.Millisecond)
	m.Observe(MetricAuthenticateLatency, 200*time.Millisecond)
	m.Observe(MetricAuthenticateLatency, 2*time.Second)
	m.Observe(MetricLockout, time.Second)

	buckets := m.Snapshot().Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[5] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}
