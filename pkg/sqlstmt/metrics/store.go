package metrics

import (
	"sync"

	"go.opentelemetry.io/otel/metric"
)

type store interface {
	getCounter(name string) (metric.Int64Counter, error)
	getUpDownCounter(name string) (metric.Float64UpDownCounter, error)
	getHistogram(name string) (metric.Float64Histogram, error)
	getGauge(name string) (*float64Gauge, error)

	setCounter(name string, m metric.Int64Counter) error
	setUpDownCounter(name string, m metric.Float64UpDownCounter) error
	setHistogram(name string, m metric.Float64Histogram) error
	setGauge(name string, m *float64Gauge) error
}

type otelStore struct {
	mu            sync.RWMutex
	counter       map[string]metric.Int64Counter
	upDownCounter map[string]metric.Float64UpDownCounter
	histogram     map[string]metric.Float64Histogram
	gauge         map[string]*float64Gauge
}

func newOtelStore() store {
	return &otelStore{
		counter:       make(map[string]metric.Int64Counter),
		upDownCounter: make(map[string]metric.Float64UpDownCounter),
		histogram:     make(map[string]metric.Float64Histogram),
		gauge:         make(map[string]*float64Gauge),
	}
}

func lookup[T any](mu *sync.RWMutex, m map[string]T, name string) (T, error) {
	mu.RLock()
	defer mu.RUnlock()

	v, ok := m[name]
	if !ok {
		var zero T
		return zero, errMetricDoesNotExist(name)
	}

	return v, nil
}

func register[T any](mu *sync.RWMutex, m map[string]T, name string, v T) error {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := m[name]; ok {
		return errMetricAlreadyRegistered(name)
	}

	m[name] = v

	return nil
}

func (s *otelStore) getCounter(name string) (metric.Int64Counter, error) {
	return lookup(&s.mu, s.counter, name)
}

func (s *otelStore) getUpDownCounter(name string) (metric.Float64UpDownCounter, error) {
	return lookup(&s.mu, s.upDownCounter, name)
}

func (s *otelStore) getHistogram(name string) (metric.Float64Histogram, error) {
	return lookup(&s.mu, s.histogram, name)
}

func (s *otelStore) getGauge(name string) (*float64Gauge, error) {
	return lookup(&s.mu, s.gauge, name)
}

func (s *otelStore) setCounter(name string, m metric.Int64Counter) error {
	return register(&s.mu, s.counter, name, m)
}

func (s *otelStore) setUpDownCounter(name string, m metric.Float64UpDownCounter) error {
	return register(&s.mu, s.upDownCounter, name, m)
}

func (s *otelStore) setHistogram(name string, m metric.Float64Histogram) error {
	return register(&s.mu, s.histogram, name, m)
}

func (s *otelStore) setGauge(name string, m *float64Gauge) error {
	return register(&s.mu, s.gauge, name, m)
}
