// Package main provides the rdf-export binary entry point.
// rdf-export dumps the contents of an RDF store reachable over SPARQL
// into N-Triples, N-Quads or Turtle files.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/rdf-export/config"
	"github.com/c360studio/rdf-export/export"
	"github.com/c360studio/rdf-export/features"
	"github.com/c360studio/rdf-export/scope"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "rdf-export"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exportFlags holds command line overrides for the configuration.
type exportFlags struct {
	configPath       string
	endpoints        []string
	port             int
	scheme           string
	dir              string
	format           string
	scope            string
	namedGraphs      []string
	query            string
	withDefaultGraph bool
	features         []string
	logLevel         string
	logFile          string
	metricsFile      string
	natsURL          string
	reportPath       string
	parallel         int
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Export RDF statements from a SPARQL store",
		Long: `rdf-export dumps the contents of an RDF quad store reachable over
a SPARQL endpoint into local files.

Scopes:
- graph: the default graph, or the named graphs given with --named-graph
- edges: statements whose object is a resource, excluding rdf:type
- query: the results of a SELECT query binding ?s ?p ?o and optionally ?g

Graph scopes use the Graph Store Protocol unless the no-bulk-protocol
feature is enabled.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(exportCmd())
	cmd.AddCommand(configCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "formats",
		Short: "List supported output formats",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range export.FormatNames() {
				info, _ := export.GetFormatInfo(export.Format(name))
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-22s %s\n", info.Name, info.MIMEType, info.Description)
			}
		},
	})

	return cmd
}

func exportCmd() *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run the configured exports",
		Example: `  rdf-export export --endpoint db.local --named-graph http://example.com/g1 --dir out
  rdf-export export --endpoint db.local --scope query --sparql 'SELECT ?s ?p ?o WHERE { ?s ?p ?o } LIMIT 10' --dir -
  rdf-export export --config exports.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringSliceVarP(&f.endpoints, "endpoint", "e", nil, "Store endpoint, repeatable; the first reachable one is used")
	flags.IntVar(&f.port, "port", 0, "Port for endpoints given without one (default 8182)")
	flags.StringVar(&f.scheme, "scheme", "", "Scheme for endpoints given without one (default https)")
	flags.StringVarP(&f.dir, "dir", "d", "", `Output directory, "-" for stdout`)
	flags.StringVarP(&f.format, "format", "f", "", "Output format ("+strings.Join(export.FormatNames(), ", ")+")")
	flags.StringVarP(&f.scope, "scope", "s", "", "Export scope (graph, edges, query)")
	flags.StringSliceVar(&f.namedGraphs, "named-graph", nil, "Named graph IRI to export, repeatable")
	flags.StringVar(&f.query, "sparql", "", "SELECT query for the query scope")
	flags.BoolVar(&f.withDefaultGraph, "with-default-graph", false, "Also export the default graph when named graphs are given")
	flags.StringSliceVar(&f.features, "feature", nil, "Feature toggle, repeatable ("+string(features.NoBulkProtocol)+")")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&f.logFile, "log-file", "", "Write logs to a rotated file instead of stderr")
	flags.StringVar(&f.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file when done")
	flags.StringVar(&f.natsURL, "nats-url", "", "Publish lifecycle events to this NATS server")
	flags.StringVar(&f.reportPath, "report", "", `Write the job reports as JSON to this file, "-" for stderr`)
	flags.IntVar(&f.parallel, "parallel", 4, "Maximum number of exports run at once")

	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	var endpoints []string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Example: `  rdf-export config init
  rdf-export config init exports.yaml --endpoint db.local`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := appName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("check %s: %w", path, err)
				}
			}

			cfg := config.DefaultConfig()
			cfg.Connection.Endpoints = endpoints
			e := config.DefaultExport()
			e.Name = "default-graph"
			cfg.Exports = []config.ExportConfig{e}

			if err := cfg.SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringSliceVarP(&endpoints, "endpoint", "e", []string{"localhost"}, "Store endpoint, repeatable")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

// loadConfig layers the config files and applies flag overrides.
func loadConfig(cmd *cobra.Command, f *exportFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(newBootstrapLogger(cmd.ErrOrStderr(), f.logLevel)).Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	changed := cmd.Flags().Changed
	applyFlags(cfg, f, changed)
	cfg.ApplyExportDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags that were set. Scope flags
// replace the configured exports with a single export; format, feature
// and dir flags apply to every export.
func applyFlags(cfg *config.Config, f *exportFlags, changed func(name string) bool) {
	if changed("endpoint") {
		cfg.Connection.Endpoints = f.endpoints
	}
	if changed("port") {
		cfg.Connection.Port = f.port
	}
	if changed("scheme") {
		cfg.Connection.Scheme = f.scheme
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.metricsFile
	}
	if changed("nats-url") {
		cfg.NATS.URL = f.natsURL
	}

	scopeFlags := changed("scope") || changed("named-graph") || changed("sparql") || changed("with-default-graph")
	if scopeFlags || len(cfg.Exports) == 0 {
		e := config.DefaultExport()
		if f.scope != "" {
			e.Scope = f.scope
		}
		e.NamedGraphs = f.namedGraphs
		e.Query = f.query
		e.WithDefaultGraph = f.withDefaultGraph
		cfg.Exports = []config.ExportConfig{e}
	}

	for i := range cfg.Exports {
		e := &cfg.Exports[i]
		if changed("format") {
			e.Format = f.format
		}
		if changed("feature") {
			e.Features = f.features
		}
		if changed("dir") {
			e.Dir = f.dir
		}
	}
}

func run(ctx context.Context, cfg *config.Config, f exportFlags, stdout, stderr io.Writer) error {
	logger, closeLog := newLogger(cfg.Log, stderr)
	defer closeLog()

	app, err := NewApp(cfg, logger, stdout)
	if err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Shutdown()

	reports, runErr := app.Run(ctx, f.parallel)

	if f.reportPath != "" {
		if err := writeReports(f.reportPath, reports, stderr); err != nil {
			logger.Error("Failed to write report", "path", f.reportPath, "error", err)
		}
	}
	return runErr
}

func writeReports(path string, reports []exportReport, stderr io.Writer) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal reports: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = stderr.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// kindName renders the scope of an export for logs.
func kindName(e config.ExportConfig) string {
	kind := e.Selection().Kind
	if kind == scope.KindGraph && e.WithDefaultGraph {
		return "graph+default"
	}
	return string(kind)
}
