/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counts the workflow outcomes that matter operationally: confirmed
  runs, reversed runs, and confirmations rejected for insufficient
  stock. Exposed at /metrics.

SEE ALSO:
  - handlers.go: Increments the counters
  - server.go: Mounts the /metrics endpoint
*/
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and engine counters.
type Metrics struct {
	registry *prometheus.Registry

	ProductionsConfirmed   prometheus.Counter
	ProductionsReversed    prometheus.Counter
	InsufficientRejections prometheus.Counter
}

// NewMetrics creates a registry with the engine counters plus the
// standard Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ProductionsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "materials_productions_confirmed_total",
			Help: "Production runs confirmed and debited from stock.",
		}),
		ProductionsReversed: factory.NewCounter(prometheus.CounterOpts{
			Name: "materials_productions_reversed_total",
			Help: "Production runs reversed and credited back to stock.",
		}),
		InsufficientRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "materials_productions_rejected_insufficient_total",
			Help: "Confirmations rejected because stock could not cover the formula.",
		}),
	}
}

// HTTPHandler serves the registry in the Prometheus text format.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
