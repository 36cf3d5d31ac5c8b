// Package job drives an export plan unit by unit against an executor,
// writing each unit to its own sink.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/rdf-export/events"
	"github.com/c360studio/rdf-export/metrics"
	"github.com/c360studio/rdf-export/query"
	"github.com/c360studio/rdf-export/scope"
	"github.com/c360studio/rdf-export/sink"
	"github.com/c360studio/rdf-export/sparql"
)

// State is the lifecycle state of a job.
type State string

const (
	// StateCreated is a job that has not started running.
	StateCreated State = "created"
	// StateRunning is a job executing its plan.
	StateRunning State = "running"
	// StateCompleted is a job whose every unit succeeded.
	StateCompleted State = "completed"
	// StateFailed is a job stopped by a unit or sink error.
	StateFailed State = "failed"
)

// ErrAlreadyRun is returned when Run is called on a job that has left the
// created state.
var ErrAlreadyRun = errors.New("job already run")

// Executor runs a compiled unit and writes its statements to w.
// *sparql.Client implements it.
type Executor interface {
	Execute(ctx context.Context, compiled query.Compiled, w io.Writer) (sparql.Stats, error)
}

// Dependencies are the collaborators a job needs. Logger, Metrics and
// Events are optional.
type Dependencies struct {
	Executor Executor
	Sinks    sink.Factory
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Events   *events.Notifier
}

// UnitError reports the unit that stopped a job.
type UnitError struct {
	Index int
	Unit  scope.Unit
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("export %s (unit %d): %v", e.Unit, e.Index+1, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// Job exports one plan. A job runs at most once.
type Job struct {
	id     string
	plan   scope.Plan
	deps   Dependencies
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a job for plan.
func New(plan scope.Plan, deps Dependencies) (*Job, error) {
	if deps.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if deps.Sinks == nil {
		return nil, errors.New("sink factory is required")
	}
	if plan.Len() == 0 {
		return nil, scope.ErrEmptyPlan
	}

	id := uuid.New().String()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		id:     id,
		plan:   plan,
		deps:   deps,
		logger: logger.With(slog.String("job_id", id)),
		state:  StateCreated,
	}, nil
}

// Create resolves sel and returns a job for the resulting plan. Selection
// parameters the scope does not use are logged and ignored.
func Create(sel scope.Selection, deps Dependencies) (*Job, error) {
	plan, err := scope.Resolve(sel)
	if err != nil {
		return nil, err
	}
	j, err := New(plan, deps)
	if err != nil {
		return nil, err
	}
	if ignored := sel.Ignored(); len(ignored) > 0 {
		j.logger.Warn("Ignoring parameters not used by scope",
			slog.String("scope", string(sel.Kind)),
			slog.Any("parameters", ignored))
	}
	return j, nil
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Plan returns the plan the job exports.
func (j *Job) Plan() scope.Plan { return j.plan }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Run exports every unit in plan order. The first failing unit stops the
// job and is returned as a *UnitError; its sink, like every other sink the
// job opened, is closed before Run returns.
func (j *Job) Run(ctx context.Context) (Report, error) {
	j.mu.Lock()
	if j.state != StateCreated {
		j.mu.Unlock()
		return Report{}, ErrAlreadyRun
	}
	j.state = StateRunning
	j.mu.Unlock()

	report := Report{
		JobID:   j.id,
		Scope:   j.plan.Kind(),
		Started: time.Now(),
	}

	j.logger.Info("Export job started",
		slog.String("scope", string(j.plan.Kind())),
		slog.Int("units", j.plan.Len()))
	j.notify(events.Event{
		Type:  events.TypeJobStarted,
		Scope: string(j.plan.Kind()),
		Units: j.plan.Len(),
	})

	runErr := j.runUnits(ctx, &report)

	report.Finished = time.Now()
	report.State = StateCompleted
	if runErr != nil {
		report.State = StateFailed
	}
	j.setState(report.State)
	j.deps.Metrics.JobFinished(string(report.State), report.Duration())

	finished := events.Event{
		Type:       events.TypeJobFinished,
		Scope:      string(j.plan.Kind()),
		State:      string(report.State),
		Units:      len(report.Units),
		Statements: report.Statements(),
		Bytes:      report.Bytes(),
	}
	if runErr != nil {
		finished.Error = runErr.Error()
		j.logger.Error("Export job failed",
			slog.Duration("duration", report.Duration()),
			slog.Any("error", runErr))
	} else {
		j.logger.Info("Export job completed",
			slog.Int("units", len(report.Units)),
			slog.Int64("bytes", report.Bytes()),
			slog.Duration("duration", report.Duration()))
	}
	j.notify(finished)

	return report, runErr
}

func (j *Job) runUnits(ctx context.Context, report *Report) error {
	for i, unit := range j.plan.Units() {
		if err := ctx.Err(); err != nil {
			return &UnitError{Index: i, Unit: unit, Err: &sparql.RequestError{
				Kind: sparql.ErrTransport,
				Op:   "export",
				Err:  err,
			}}
		}

		ur, err := j.runUnit(ctx, unit)
		report.Units = append(report.Units, ur)
		j.deps.Metrics.UnitFinished(string(ur.Strategy), err != nil, ur.Statements, ur.Bytes)

		ev := events.Event{
			Type:       events.TypeUnitFinished,
			Unit:       unit.String(),
			Strategy:   string(ur.Strategy),
			Statements: ur.Statements,
			Bytes:      ur.Bytes,
			Error:      ur.Error,
		}
		j.notify(ev)

		if err != nil {
			return &UnitError{Index: i, Unit: unit, Err: err}
		}
		j.logger.Info("Exported unit",
			slog.String("unit", unit.String()),
			slog.String("strategy", string(ur.Strategy)),
			slog.String("endpoint", ur.Endpoint),
			slog.Int64("bytes", ur.Bytes),
			slog.Duration("duration", ur.Duration))
	}
	return nil
}

func (j *Job) runUnit(ctx context.Context, unit scope.Unit) (UnitReport, error) {
	compiled := query.Compile(unit)
	start := time.Now()

	var stats sparql.Stats
	err := sink.With(j.deps.Sinks, unit, func(w io.Writer) error {
		var err error
		stats, err = j.deps.Executor.Execute(ctx, compiled, w)
		return err
	})

	ur := UnitReport{
		Unit:       unit.String(),
		Kind:       unit.Kind().String(),
		Strategy:   stats.Strategy,
		Endpoint:   stats.Endpoint,
		Statements: stats.Statements,
		Bytes:      stats.Bytes,
		Duration:   time.Since(start),
	}
	if err != nil {
		ur.Error = err.Error()
	}
	return ur, err
}

func (j *Job) notify(ev events.Event) {
	ev.JobID = j.id
	if err := j.deps.Events.Notify(ev); err != nil {
		j.logger.Warn("Failed to publish export event",
			slog.String("type", ev.Type),
			slog.Any("error", err))
	}
}
