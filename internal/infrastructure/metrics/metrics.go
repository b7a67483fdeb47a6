package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes lifecycle counters. A nil *Recorder is a no-op, so
// services may be built without metrics in tests.
type Recorder struct {
	registry       *prometheus.Registry
	outcomes       *prometheus.CounterVec
	deliveryFailed *prometheus.CounterVec
	cascadeFailed  prometheus.Counter
	orphansRemoved prometheus.Counter
}

// New registers the counters on a fresh registry together with the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskapp_auth_operations_total",
			Help: "Account lifecycle operations by operation and result kind.",
		}, []string{"op", "result"}),
		deliveryFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskapp_code_delivery_failures_total",
			Help: "One-time code notifications that could not be delivered.",
		}, []string{"op"}),
		cascadeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskapp_cascade_failures_total",
			Help: "Account deletions whose task cascade failed after retries.",
		}),
		orphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskapp_orphan_tasks_removed_total",
			Help: "Tasks removed by the sweeper because their owner no longer exists.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.outcomes, r.deliveryFailed, r.cascadeFailed, r.orphansRemoved,
	)
	return r
}

func (r *Recorder) Outcome(op, result string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(op, result).Inc()
}

func (r *Recorder) DeliveryFailed(op string) {
	if r == nil {
		return
	}
	r.deliveryFailed.WithLabelValues(op).Inc()
}

func (r *Recorder) CascadeFailed() {
	if r == nil {
		return
	}
	r.cascadeFailed.Inc()
}

func (r *Recorder) OrphansRemoved(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.orphansRemoved.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
