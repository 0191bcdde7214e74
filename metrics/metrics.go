// Package metrics exposes Prometheus metrics for orchestrator workflows.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workflow outcomes used as label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
)

// Recorder collects workflow metrics into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	workflowTotal    *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
	trialsLoaded     prometheus.Gauge
	trialsVerified   prometheus.Gauge
}

// NewRecorder registers the workflow metrics under namespace.
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		workflowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_total",
			Help:      "Workflow runs by workflow and outcome.",
		}, []string{"workflow", "outcome"}),
		workflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Workflow duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"workflow"}),
		trialsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trials_loaded",
			Help:      "Trials in the last loaded registry snapshot.",
		}),
		trialsVerified: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trials_verified",
			Help:      "Verified trials in the last loaded registry snapshot.",
		}),
	}
	r.registry.MustRegister(r.workflowTotal, r.workflowDuration, r.trialsLoaded, r.trialsVerified)
	return r
}

// ObserveWorkflow records one workflow run that took elapsed.
func (r *Recorder) ObserveWorkflow(workflow, outcome string, elapsed time.Duration) {
	r.workflowTotal.WithLabelValues(workflow, outcome).Inc()
	if outcome != OutcomeBusy {
		r.workflowDuration.WithLabelValues(workflow).Observe(elapsed.Seconds())
	}
}

// SetRegistrySize records the size of the loaded registry.
func (r *Recorder) SetRegistrySize(total, verified int) {
	r.trialsLoaded.Set(float64(total))
	r.trialsVerified.Set(float64(verified))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// MetricsServer serves /metrics on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for recorder on listenAddr.
func New(recorder *Recorder, listenAddr string) *MetricsServer {
	mux := chi.NewRouter()
	mux.Handle("/metrics", recorder.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
