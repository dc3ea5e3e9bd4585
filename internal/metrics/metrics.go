// Package metrics exposes prometheus instrumentation for the asyncop manager:
// one counter per lifecycle event, labeled by operation id, plus an in-flight
// gauge. It implements asyncop.Recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	started   *prometheus.CounterVec
	succeeded *prometheus.CounterVec
	failed    *prometheus.CounterVec
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	inFlight  *prometheus.GaugeVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_operations_started_total",
			Help: "Operation attempts started, including automatic retries.",
		}, []string{"operation"}),
		succeeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_operations_succeeded_total",
			Help: "Operation attempts that completed successfully.",
		}, []string{"operation"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_operations_failed_total",
			Help: "Operation attempts that failed or timed out.",
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_operations_retries_scheduled_total",
			Help: "Automatic retries scheduled after a failed attempt.",
		}, []string{"operation"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datahub_operations_retries_exhausted_total",
			Help: "Times an operation ran out of automatic retries.",
		}, []string{"operation"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "datahub_operations_in_flight",
			Help: "Operation attempts currently running.",
		}, []string{"operation"}),
	}
	reg.MustRegister(r.started, r.succeeded, r.failed, r.retries, r.exhausted, r.inFlight)
	return r
}

func (r *Recorder) OperationStarted(id string) {
	r.started.WithLabelValues(id).Inc()
	r.inFlight.WithLabelValues(id).Inc()
}

func (r *Recorder) OperationSucceeded(id string) {
	r.succeeded.WithLabelValues(id).Inc()
	r.inFlight.WithLabelValues(id).Dec()
}

func (r *Recorder) OperationFailed(id string) {
	r.failed.WithLabelValues(id).Inc()
	r.inFlight.WithLabelValues(id).Dec()
}

func (r *Recorder) RetryScheduled(id string, _ int, _ time.Duration) {
	r.retries.WithLabelValues(id).Inc()
}

func (r *Recorder) RetriesExhausted(id string) {
	r.exhausted.WithLabelValues(id).Inc()
}
