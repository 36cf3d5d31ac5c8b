package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/rdf-export/config"
	"github.com/c360studio/rdf-export/events"
	"github.com/c360studio/rdf-export/job"
	"github.com/c360studio/rdf-export/metrics"
	"github.com/c360studio/rdf-export/scope"
	"github.com/c360studio/rdf-export/sink"
	"github.com/c360studio/rdf-export/sparql"
)

// App wires the configured exports to shared metrics and events.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer

	registry *prometheus.Registry
	recorder *metrics.Recorder

	natsConn *nats.Conn
	notifier *events.Notifier
}

// exportReport is the outcome of one configured export.
type exportReport struct {
	Name   string      `json:"name"`
	Report *job.Report `json:"report,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
		registry: registry,
		recorder: recorder,
	}, nil
}

// Start connects to NATS when events are configured.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.NATS.URL == "" {
		a.logger.Debug("No NATS URL configured, lifecycle events disabled")
		return nil
	}

	a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
	conn, err := events.Connect(a.cfg.NATS.URL)
	if err != nil {
		return err
	}
	a.natsConn = conn
	a.notifier = events.NewNotifier(conn, a.cfg.NATS.SubjectPrefix)
	a.logger.Info("Connected to NATS", "url", a.cfg.NATS.URL)
	return nil
}

// Run executes every configured export, at most parallel at a time, and
// returns their reports in configuration order. Exports are independent:
// one failing does not stop the others.
func (a *App) Run(ctx context.Context, parallel int) ([]exportReport, error) {
	reports := make([]exportReport, len(a.cfg.Exports))
	errs := make([]error, len(a.cfg.Exports))

	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, e := range a.cfg.Exports {
		g.Go(func() error {
			reports[i].Name = e.Name
			report, err := a.runExport(ctx, e)
			reports[i].Report = report
			if err != nil {
				reports[i].Error = err.Error()
				errs[i] = fmt.Errorf("export %s: %w", e.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

func (a *App) runExport(ctx context.Context, e config.ExportConfig) (*job.Report, error) {
	logger := a.logger.With("export", e.Name)

	j, err := a.newJob(e, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting export",
		"job_id", j.ID(),
		"scope", kindName(e),
		"units", j.Plan().Len(),
		"format", e.Format,
		"dir", e.Dir)

	report, err := j.Run(ctx)
	return &report, err
}

// newJob builds a job with its own endpoint election, client and sinks.
func (a *App) newJob(e config.ExportConfig, logger *slog.Logger) (*job.Job, error) {
	format, err := e.OutputFormat()
	if err != nil {
		return nil, err
	}
	toggles, err := e.Toggles()
	if err != nil {
		return nil, err
	}

	candidates, err := a.cfg.Connection.Candidates()
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: a.cfg.Connection.Timeout}
	chooser, err := sparql.NewCandidateSet(candidates, sparql.HTTPConnector(httpClient),
		sparql.WithProbe(sparql.DialProbe(a.cfg.Connection.ProbeTimeout)))
	if err != nil {
		return nil, err
	}

	client, err := sparql.NewClient(chooser, toggles, format, logger)
	if err != nil {
		return nil, err
	}

	var sinks sink.Factory
	if e.Dir == config.StdoutDir {
		sinks = sink.WriterFactory{W: a.stdout}
	} else {
		files, err := sink.NewFileFactory(e.Dir, format)
		if err != nil {
			return nil, err
		}
		sinks = files
	}

	deps := job.Dependencies{
		Executor: client,
		Sinks:    sinks,
		Logger:   logger,
		Metrics:  a.recorder,
		Events:   a.notifier,
	}

	sel := e.Selection()
	if e.WithDefaultGraph {
		plan, err := scope.NewPlan(scope.WholeGraph{NamedGraphs: sel.NamedGraphs})
		if err != nil {
			return nil, err
		}
		return job.New(plan, deps)
	}
	return job.Create(sel, deps)
}

// Shutdown writes the metrics textfile and closes the NATS connection.
func (a *App) Shutdown() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
			a.logger.Error("Failed to write metrics textfile", "path", path, "error", err)
		} else {
			a.logger.Debug("Wrote metrics textfile", "path", path)
		}
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("Failed to drain NATS connection", "error", err)
		}
		a.natsConn.Close()
	}
}
