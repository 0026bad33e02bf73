package otel

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/authengine"
	"github.com/MrEthical07/authengine/metrics/export/internaldefs"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authengine.MetricsSnapshot
	dropped  uint64
	failed   uint64
}

func (f *fakeSource) MetricsSnapshot() authengine.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authengine.MetricsSnapshot{
		Counters:   make(map[authengine.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[authengine.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) NotificationsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) NotificationsFailed() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.failed
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// collectSeries returns every int64 data point keyed as name{k=v,...}.
func collectSeries(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: unexpected data %T", m.Name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				out[m.Name+"{"+dp.Attributes.Encoded(attribute.DefaultEncoder())+"}"] = dp.Value
			}
		}
	}
	return out
}

func TestExporterPublishesLabelledFamilies(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: authengine.MetricsSnapshot{
			Counters: map[authengine.MetricID]uint64{
				authengine.MetricAuthenticateSuccess: 3,
				authengine.MetricTOTPFailure:         2,
				authengine.MetricLockout:             1,
			},
			Histograms: map[authengine.MetricID][]uint64{
				authengine.MetricAuthenticateLatency: {1, 1, 0, 0, 0, 0, 0, 2},
			},
		},
		dropped: 4,
		failed:  1,
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("authengine-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectSeries(t, reader)
	checks := map[string]int64{
		`authengine_authentications_total{outcome=succeeded}`:             3,
		`authengine_authentications_total{outcome=failed}`:                0,
		`authengine_factor_checks_total{factor=totp,result=rejected}`:     2,
		`authengine_factor_checks_total{factor=totp,result=accepted}`:     0,
		`authengine_account_transitions_total{transition=locked_out}`:    1,
		`authengine_notifications_undelivered_total{reason=queue_full}`:   4,
		`authengine_notifications_undelivered_total{reason=sender_error}`: 1,
		`authengine_authenticate_latency_seconds_bucket{le=0.01}`:         2,
		`authengine_authenticate_latency_seconds_bucket{le=+Inf}`:         4,
		`authengine_authenticate_latency_seconds_count{}`:                 4,
	}
	for key, want := range checks {
		v, ok := got[key]
		if !ok {
			t.Fatalf("series %s not collected", key)
		}
		if v != want {
			t.Fatalf("%s = %d, want %d", key, v, want)
		}
	}
}

func TestExporterSeriesCoverEveryCounter(t *testing.T) {
	reader, provider := newReader()
	exp, err := NewOTelExporterFromSource(provider.Meter("authengine-test"), &fakeSource{})
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	// two undelivered notification reasons
	want := 2 + len(internaldefs.HistogramDefs)*(len(internaldefs.HistogramBounds)+1)
	for _, fam := range internaldefs.CounterFamilies {
		want += len(fam.Series)
	}
	if got := collectSeries(t, reader); len(got) != want {
		t.Fatalf("collected %d series, want %d", len(got), want)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	if _, err := NewOTelExporterFromSource(provider.Meter("authengine-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: authengine.MetricsSnapshot{
			Counters: map[authengine.MetricID]uint64{authengine.MetricAuthenticateSuccess: 1},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("authengine-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[authengine.MetricAuthenticateSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
