package job

import (
	"time"

	"github.com/c360studio/rdf-export/query"
	"github.com/c360studio/rdf-export/scope"
)

// Report summarises a job run.
type Report struct {
	JobID    string       `json:"job_id" yaml:"job_id"`
	Scope    scope.Kind   `json:"scope" yaml:"scope"`
	State    State        `json:"state" yaml:"state"`
	Units    []UnitReport `json:"units" yaml:"units"`
	Started  time.Time    `json:"started" yaml:"started"`
	Finished time.Time    `json:"finished" yaml:"finished"`
}

// UnitReport describes one attempted unit.
type UnitReport struct {
	Unit       string         `json:"unit" yaml:"unit"`
	Kind       string         `json:"kind" yaml:"kind"`
	Strategy   query.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Endpoint   string         `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Statements int64          `json:"statements" yaml:"statements"`
	Bytes      int64          `json:"bytes" yaml:"bytes"`
	Duration   time.Duration  `json:"duration" yaml:"duration"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration is the wall clock time of the run.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Statements totals statements rendered by tuple units. Bulk units pass
// bytes through and do not count statements.
func (r Report) Statements() int64 {
	var n int64
	for _, u := range r.Units {
		n += u.Statements
	}
	return n
}

// Bytes totals bytes written across units.
func (r Report) Bytes() int64 {
	var n int64
	for _, u := range r.Units {
		n += u.Bytes
	}
	return n
}
