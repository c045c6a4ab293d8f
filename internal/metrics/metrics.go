// Package metrics exposes the assistant's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups the counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	turns           *prometheus.CounterVec
	recommendations prometheus.Counter
	cartAdds        prometheus.Counter
	checkouts       prometheus.Counter
	speech          *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detalles",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Assistant turns by resolved intent.",
		}, []string{"intent"}),
		recommendations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "detalles",
			Subsystem: "assistant",
			Name:      "recommended_products_total",
			Help:      "Products attached to assistant messages.",
		}),
		cartAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "detalles",
			Subsystem: "assistant",
			Name:      "cart_additions_total",
			Help:      "Recommendations added to the cart from the chat.",
		}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "detalles",
			Subsystem: "checkout",
			Name:      "links_total",
			Help:      "WhatsApp checkout links generated.",
		}),
		speech: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detalles",
			Subsystem: "speech",
			Name:      "requests_total",
			Help:      "Speech requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	r.registry.MustRegister(r.turns, r.recommendations, r.cartAdds, r.checkouts, r.speech)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Turn counts one assistant reply.
func (r *Recorder) Turn(intent string, recommended int) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(intent).Inc()
	if recommended > 0 {
		r.recommendations.Add(float64(recommended))
	}
}

// CartAdd counts a recommendation moved into the cart.
func (r *Recorder) CartAdd() {
	if r == nil {
		return
	}
	r.cartAdds.Inc()
}

// Checkout counts a generated checkout link.
func (r *Recorder) Checkout() {
	if r == nil {
		return
	}
	r.checkouts.Inc()
}

// Speech counts a synthesis or recognition attempt.
func (r *Recorder) Speech(kind string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.speech.WithLabelValues(kind, outcome).Inc()
}
