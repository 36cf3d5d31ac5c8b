// Package metrics records export progress as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rdf_export"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder collects export metrics. A nil *Recorder records nothing.
type Recorder struct {
	units       *prometheus.CounterVec
	statements  prometheus.Counter
	bytes       prometheus.Counter
	jobs        *prometheus.CounterVec
	jobDuration prometheus.Histogram
}

// NewRecorder creates a recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Export units executed, by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		statements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements rendered from tuple query results.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes written to output sinks.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Export jobs finished, by final state.",
		}, []string{"state"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall clock duration of export jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{r.units, r.statements, r.bytes, r.jobs, r.jobDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// UnitFinished records one executed unit.
func (r *Recorder) UnitFinished(strategy string, failed bool, statements, bytes int64) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if failed {
		outcome = OutcomeFailure
	}
	r.units.WithLabelValues(strategy, outcome).Inc()
	r.statements.Add(float64(statements))
	r.bytes.Add(float64(bytes))
}

// JobFinished records a job reaching a terminal state.
func (r *Recorder) JobFinished(state string, d time.Duration) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(state).Inc()
	r.jobDuration.Observe(d.Seconds())
}
