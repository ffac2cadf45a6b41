// Package metrics records sqlstmt counters and histograms through the
// OpenTelemetry metric API and exposes them in Prometheus format.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Manager registers and updates named metrics. Labels are key/value pairs.
type Manager interface {
	NewCounter(name, desc string)
	NewUpDownCounter(name, desc string)
	NewHistogram(name, desc string, buckets ...float64)
	NewGauge(name, desc string)

	IncrementCounter(ctx context.Context, name string, labels ...string)
	DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

// Logger is what the manager reports misuse to.
type Logger interface {
	Error(args ...any)
	Errorf(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
}

type metricsManager struct {
	meter  metric.Meter
	store  store
	logger Logger
}

// NewMetricsManager builds a Manager on top of meter.
func NewMetricsManager(meter metric.Meter, logger Logger) Manager {
	return &metricsManager{meter: meter, store: newOtelStore(), logger: logger}
}

func (m *metricsManager) NewCounter(name, desc string) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error(err)
		return
	}

	if err = m.store.setCounter(name, counter); err != nil {
		m.logger.Error(err)
	}
}

func (m *metricsManager) NewUpDownCounter(name, desc string) {
	counter, err := m.meter.Float64UpDownCounter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error(err)
		return
	}

	if err = m.store.setUpDownCounter(name, counter); err != nil {
		m.logger.Error(err)
	}
}

func (m *metricsManager) NewHistogram(name, desc string, buckets ...float64) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}

	histogram, err := m.meter.Float64Histogram(name, opts...)
	if err != nil {
		m.logger.Error(err)
		return
	}

	if err = m.store.setHistogram(name, histogram); err != nil {
		m.logger.Error(err)
	}
}

func (m *metricsManager) NewGauge(name, desc string) {
	g := &float64Gauge{observations: make(map[attribute.Distinct]float64), sets: make(map[attribute.Distinct]attribute.Set)}

	_, err := m.meter.Float64ObservableGauge(name, metric.WithDescription(desc),
		metric.WithFloat64Callback(g.callback))
	if err != nil {
		m.logger.Error(err)
		return
	}

	if err = m.store.setGauge(name, g); err != nil {
		m.logger.Error(err)
	}
}

func (m *metricsManager) IncrementCounter(ctx context.Context, name string, labels ...string) {
	counter, err := m.store.getCounter(name)
	if err != nil {
		m.logger.Error(err)
		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string) {
	counter, err := m.store.getUpDownCounter(name)
	if err != nil {
		m.logger.Error(err)
		return
	}

	counter.Add(ctx, value, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) RecordHistogram(ctx context.Context, name string, value float64, labels ...string) {
	histogram, err := m.store.getHistogram(name)
	if err != nil {
		m.logger.Error(err)
		return
	}

	histogram.Record(ctx, value, metric.WithAttributes(m.attributes(name, labels)...))
}

func (m *metricsManager) SetGauge(name string, value float64, labels ...string) {
	g, err := m.store.getGauge(name)
	if err != nil {
		m.logger.Error(err)
		return
	}

	g.set(value, attribute.NewSet(m.attributes(name, labels)...))
}

// attributes pairs up labels; a trailing key without value is dropped.
func (m *metricsManager) attributes(name string, labels []string) []attribute.KeyValue {
	if len(labels)%2 != 0 {
		m.logger.Warnf("metric %v: odd number of labels, last one dropped", name)
	}

	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}

	return attrs
}

// float64Gauge keeps the last value per label set and reports it on collection.
type float64Gauge struct {
	mu           sync.Mutex
	observations map[attribute.Distinct]float64
	sets         map[attribute.Distinct]attribute.Set
}

func (g *float64Gauge) set(value float64, attrs attribute.Set) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := attrs.Equivalent()
	g.observations[key] = value
	g.sets[key] = attrs
}

func (g *float64Gauge) callback(_ context.Context, o metric.Float64Observer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, value := range g.observations {
		o.Observe(value, metric.WithAttributeSet(g.sets[key]))
	}

	return nil
}
