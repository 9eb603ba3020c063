package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names. Flow counters are named FlowPrefix + flow + FlowSuffix,
// e.g. goidentity.otp.events.
const (
	FlowPrefix          = "goidentity."
	FlowSuffix          = ".events"
	LatencyBucketName   = "goidentity.latency.bucket"
	LatencyCountName    = "goidentity.latency.count"
	AuditDroppedName    = "goidentity.audit.dropped"
	OutcomeKey          = attribute.Key("outcome")
	OperationKey        = attribute.Key("operation")
	BucketUpperBoundKey = attribute.Key("le")
)

type metricsSource interface {
	MetricsSnapshot() goIdentity.MetricsSnapshot
	AuditDropped() uint64
}

// flowPoint is one engine counter observed on its flow instrument.
type flowPoint struct {
	id    goIdentity.MetricID
	attrs metric.MeasurementOption
}

type flowInstrument struct {
	instrument metric.Int64ObservableCounter
	points     []flowPoint
}

type latencySeries struct {
	id      goIdentity.MetricID
	buckets [8]metric.MeasurementOption
	count   metric.MeasurementOption
}

// Exporter publishes engine metrics as OTel observable instruments: one
// counter per flow split by an outcome attribute, and latency histograms as
// cumulative bucket gauges keyed by operation and le. Values are read from
// one snapshot per collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	flows        []flowInstrument
	latency      []latencySeries
	bucketGauge  metric.Int64ObservableGauge
	countGauge   metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers observable instruments for engine on meter.
func NewExporter(meter metric.Meter, engine *goIdentity.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers instruments over any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, flow := range internaldefs.Flows() {
		name := FlowPrefix + flow + FlowSuffix
		ins, err := meter.Int64ObservableCounter(name,
			metric.WithDescription("goIdentity "+flow+" events by outcome."),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create flow counter %s: %w", name, err)
		}

		fi := flowInstrument{instrument: ins}
		for _, def := range internaldefs.CounterDefs {
			if def.Flow != flow {
				continue
			}
			fi.points = append(fi.points, flowPoint{
				id:    def.ID,
				attrs: metric.WithAttributeSet(attribute.NewSet(OutcomeKey.String(def.Outcome))),
			})
		}
		e.flows = append(e.flows, fi)
		observables = append(observables, ins)
	}

	var err error
	e.bucketGauge, err = meter.Int64ObservableGauge(LatencyBucketName,
		metric.WithDescription("Cumulative latency bucket count by operation and upper bound in seconds."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	e.countGauge, err = meter.Int64ObservableGauge(LatencyCountName,
		metric.WithDescription("Latency sample count by operation."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	observables = append(observables, e.bucketGauge, e.countGauge)

	for _, def := range internaldefs.HistogramDefs {
		series := latencySeries{
			id:    def.ID,
			count: metric.WithAttributeSet(attribute.NewSet(OperationKey.String(def.Operation))),
		}
		for i, le := range internaldefs.HistogramBoundLabels {
			series.buckets[i] = metric.WithAttributeSet(attribute.NewSet(
				OperationKey.String(def.Operation),
				BucketUpperBoundKey.String(le),
			))
		}
		e.latency = append(e.latency, series)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()

	for _, fi := range e.flows {
		for _, p := range fi.points {
			observer.ObserveInt64(fi.instrument, int64(snapshot.Counters[p.id]), p.attrs)
		}
	}
	for _, series := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[series.id]))
		for i := range cumulative {
			observer.ObserveInt64(e.bucketGauge, int64(cumulative[i]), series.buckets[i])
		}
		observer.ObserveInt64(e.countGauge, int64(cumulative[len(cumulative)-1]), series.count)
	}
	observer.ObserveInt64(e.auditDropped, int64(dropped))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
