package events

import (
	"context"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/layer-3/rotor/core"
)

// DefaultNamespace is used when no metrics namespace is configured
const DefaultNamespace = "rotor"

// Result labels for cache refreshes
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Metrics holds the service counters and emits decisions into them
type Metrics struct {
	// Decisions counts refresh requests by decision and bounded reason
	Decisions *prometheus.CounterVec

	// CacheRefreshes counts upstream fetches performed by the key caches
	CacheRefreshes *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg
func NewMetrics(reg prometheus.Registerer, namespace string, constLabels prometheus.Labels) (*Metrics, error) {
	namespace = MetricNamespace(namespace)

	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "refresh_decisions_total",
				Help:        "Total number of refresh requests by decision",
				ConstLabels: constLabels,
			},
			[]string{"decision", "reason"},
		),
		CacheRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "cache_refresh_total",
				Help:        "Total number of key cache refreshes from upstream",
				ConstLabels: constLabels,
			},
			[]string{"cache", "result"},
		),
	}

	for _, c := range []prometheus.Collector{m.Decisions, m.CacheRefreshes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Emit counts event
func (m *Metrics) Emit(_ context.Context, event core.Event) error {
	m.Decisions.WithLabelValues(string(event.Decision), event.Kind).Inc()
	return nil
}

// CacheObserver returns a fetch observer that counts refreshes of the named cache
func (m *Metrics) CacheObserver(name string) func(key string, err error) {
	return func(_ string, err error) {
		result := ResultSuccess
		if err != nil {
			result = ResultFailure
		}
		m.CacheRefreshes.WithLabelValues(name, result).Inc()
	}
}

// MetricNamespace turns a configured namespace into a valid metric prefix
func MetricNamespace(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return invalidNameChars.ReplaceAllString(namespace, "_")
}
