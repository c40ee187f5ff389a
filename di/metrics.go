package di

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the runtime collectors. A nil *metrics records nothing.
type metrics struct {
	// constructions counts instances built. Labels: lifetime
	constructions *prometheus.CounterVec

	// resolutionFailures counts failed resolutions. Labels: reason
	// (construction, dynamic, disposed, circular, lookup)
	resolutionFailures *prometheus.CounterVec

	// disposalFailures counts individual disposer failures.
	disposalFailures prometheus.Counter

	// activeScopes is the number of scopes not yet disposed, root included.
	activeScopes prometheus.Gauge
}

// newMetrics registers the runtime collectors with reg. Containers sharing a
// registerer share the collectors registered by the first of them.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	var err error
	m := &metrics{
		constructions: register(reg, &err, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odic",
			Subsystem: "container",
			Name:      "constructions_total",
			Help:      "Service instances constructed by lifetime.",
		}, []string{"lifetime"})),
		resolutionFailures: register(reg, &err, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odic",
			Subsystem: "container",
			Name:      "resolution_failures_total",
			Help:      "Failed service resolutions by reason.",
		}, []string{"reason"})),
		disposalFailures: register(reg, &err, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "odic",
			Subsystem: "container",
			Name:      "disposal_failures_total",
			Help:      "Disposers that returned an error or panicked.",
		})),
		activeScopes: register(reg, &err, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "odic",
			Subsystem: "container",
			Name:      "active_scopes",
			Help:      "Scopes created and not yet disposed.",
		})),
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, or returns the equivalent collector already there.
// The first failure is kept in *errp.
func register[C prometheus.Collector](reg prometheus.Registerer, errp *error, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	if *errp == nil {
		*errp = fmt.Errorf("di: register metrics: %w", err)
	}
	return c
}

func (m *metrics) constructed(lifetime string) {
	if m != nil {
		m.constructions.WithLabelValues(lifetime).Inc()
	}
}

func (m *metrics) failed(reason string) {
	if m != nil {
		m.resolutionFailures.WithLabelValues(reason).Inc()
	}
}

func (m *metrics) disposalFailed(n int) {
	if m != nil && n > 0 {
		m.disposalFailures.Add(float64(n))
	}
}

func (m *metrics) scopeOpened() {
	if m != nil {
		m.activeScopes.Inc()
	}
}

func (m *metrics) scopeClosed() {
	if m != nil {
		m.activeScopes.Dec()
	}
}
