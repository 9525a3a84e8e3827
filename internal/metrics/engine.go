package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine holds the engine request metrics registered on one registerer.
type Engine struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewEngine creates engine metrics and registers them on reg. Collectors
// already registered on reg are reused, so several connections can share one
// registerer.
func NewEngine(reg prometheus.Registerer) (*Engine, error) {
	m := &Engine{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docmap",
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total engine requests by connection, operation and status.",
		}, []string{"alias", "op", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docmap",
			Subsystem: "engine",
			Name:      "request_duration_seconds",
			Help:      "Engine request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"alias", "op"}),
	}
	if err := registerOrReuse(reg, &m.Requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.Duration); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records one request.
func (m *Engine) Observe(alias, op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(alias, op, status).Inc()
	m.Duration.WithLabelValues(alias, op).Observe(seconds)
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metrics: already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("metrics: register: %w", err)
	}
	return nil
}
