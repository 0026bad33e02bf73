package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/authengine"
	"github.com/MrEthical07/authengine/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

const notificationsUndelivered = "authengine_notifications_undelivered_total"

type metricsSource interface {
	MetricsSnapshot() authengine.MetricsSnapshot
	NotificationsDropped() uint64
	NotificationsFailed() uint64
}

type observedSeries struct {
	id    authengine.MetricID
	attrs metric.ObserveOption
}

type observedFamily struct {
	instrument metric.Int64ObservableCounter
	series     []observedSeries
}

// observedLatency publishes a histogram the way Prometheus does: cumulative
// bucket counts labelled by their upper bound plus a total count.
type observedLatency struct {
	id      authengine.MetricID
	buckets metric.Int64ObservableCounter
	bounds  []metric.ObserveOption
	count   metric.Int64ObservableCounter
}

type OTelExporter struct {
	source        metricsSource
	registration  metric.Registration
	families      []observedFamily
	latencies     []observedLatency
	undelivered   metric.Int64ObservableCounter
	droppedAttrs  metric.ObserveOption
	rejectedAttrs metric.ObserveOption
}

// NewOTelExporter registers instruments reading from engine.
func NewOTelExporter(meter metric.Meter, engine *authengine.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:        source,
		droppedAttrs:  metric.WithAttributes(attribute.String("reason", "queue_full")),
		rejectedAttrs: metric.WithAttributes(attribute.String("reason", "sender_error")),
	}
	var observables []metric.Observable

	for _, fam := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(fam.Name, metric.WithDescription(fam.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", fam.Name, err)
		}
		of := observedFamily{instrument: ins}
		for _, s := range fam.Series {
			kvs := make([]attribute.KeyValue, 0, len(s.Labels))
			for _, l := range s.Labels {
				kvs = append(kvs, attribute.String(l.Key, l.Value))
			}
			of.series = append(of.series, observedSeries{id: s.ID, attrs: metric.WithAttributes(kvs...)})
		}
		exporter.families = append(exporter.families, of)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableCounter(def.Name+"_bucket", metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create histogram buckets %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableCounter(def.Name+"_count", metric.WithDescription("Authenticate calls timed."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count %s: %w", def.Name, err)
		}
		ol := observedLatency{id: def.ID, buckets: buckets, count: count}
		for _, le := range internaldefs.HistogramBounds {
			ol.bounds = append(ol.bounds, metric.WithAttributes(attribute.String("le", le)))
		}
		exporter.latencies = append(exporter.latencies, ol)
		observables = append(observables, buckets, count)
	}

	undelivered, err := meter.Int64ObservableCounter(notificationsUndelivered,
		metric.WithDescription("Notification emails that never reached the sender or that it rejected."))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", notificationsUndelivered, err)
	}
	exporter.undelivered = undelivered
	observables = append(observables, undelivered)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, fam := range e.families {
		for _, s := range fam.series {
			observer.ObserveInt64(fam.instrument, int64(snapshot.Counters[s.id]), s.attrs)
		}
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, attrs := range l.bounds {
			observer.ObserveInt64(l.buckets, int64(cumulative[i]), attrs)
		}
		observer.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.undelivered, int64(e.source.NotificationsDropped()), e.droppedAttrs)
	observer.ObserveInt64(e.undelivered, int64(e.source.NotificationsFailed()), e.rejectedAttrs)
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
