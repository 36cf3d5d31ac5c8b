// Package config provides configuration loading and management for
// rdf-export.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/rdf-export/export"
	"github.com/c360studio/rdf-export/features"
	"github.com/c360studio/rdf-export/scope"
	"github.com/c360studio/rdf-export/sparql"
)

// StdoutDir is the output directory value that selects standard output.
const StdoutDir = "-"

// Config represents the complete rdf-export configuration
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Exports    []ExportConfig   `yaml:"exports"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	NATS       NATSConfig       `yaml:"nats"`
}

// ConnectionConfig describes how to reach the store
type ConnectionConfig struct {
	// Endpoints are tried in order; the first reachable one serves a job.
	// Entries are host names, host:port pairs or URLs.
	Endpoints []string `yaml:"endpoints"`
	// Port is used for entries that do not name one (default: 8182)
	Port int `yaml:"port"`
	// Scheme is used for entries that are not URLs (default: https)
	Scheme string `yaml:"scheme"`
	// Timeout bounds each HTTP request, zero means no limit
	Timeout time.Duration `yaml:"timeout"`
	// ProbeTimeout bounds the reachability check per candidate
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// ExportConfig describes one export job
type ExportConfig struct {
	// Name identifies the job in logs (default: export-<n>)
	Name string `yaml:"name"`
	// Scope is graph, edges or query (default: graph)
	Scope       string   `yaml:"scope"`
	NamedGraphs []string `yaml:"named_graphs"`
	// Query is the SELECT query of the query scope. Config files are
	// environment expanded, so write variables as ?x rather than $x.
	Query string `yaml:"query"`
	// WithDefaultGraph also exports the default graph when named graphs
	// are listed
	WithDefaultGraph bool     `yaml:"with_default_graph"`
	Features         []string `yaml:"features"`
	// Format is turtle, ntriples or nquads (default: nquads)
	Format string `yaml:"format"`
	// Dir is the output directory, "-" for stdout (default: export)
	Dir string `yaml:"dir"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is debug, info, warn or error (default: info)
	Level string `yaml:"level"`
	// File routes logs to a rotated file instead of stderr
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig configures metrics output
type MetricsConfig struct {
	// Textfile is written in Prometheus text format after all jobs finish
	Textfile string `yaml:"textfile"`
}

// NATSConfig configures lifecycle event publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty = events disabled)
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Port:         8182,
			Scheme:       "https",
			Timeout:      0, // Exports can be long running
			ProbeTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		NATS: NATSConfig{
			SubjectPrefix: "rdf.export",
		},
	}
}

// DefaultExport returns an export entry with defaults applied.
func DefaultExport() ExportConfig {
	return ExportConfig{
		Scope:  string(scope.KindGraph),
		Format: string(export.FormatNQuads),
		Dir:    "export",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return err
	}
	if len(c.Exports) == 0 {
		return fmt.Errorf("at least one export is required")
	}

	stdout := 0
	dirs := make(map[string]int, len(c.Exports))
	for i := range c.Exports {
		e := &c.Exports[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("exports[%d]: %w", i, err)
		}
		if e.Dir == StdoutDir {
			stdout++
			continue
		}
		dir := filepath.Clean(e.Dir)
		if prev, ok := dirs[dir]; ok {
			return fmt.Errorf("exports[%d]: dir %s is already used by exports[%d]", i, e.Dir, prev)
		}
		dirs[dir] = i
	}
	if stdout > 0 && len(c.Exports) > 1 {
		return fmt.Errorf("stdout output requires a single export, got %d", len(c.Exports))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// Validate checks the connection settings
func (c ConnectionConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("connection.endpoints is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("connection.port must be between 1 and 65535")
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("connection.scheme must be http or https")
	}
	if c.Timeout < 0 || c.ProbeTimeout < 0 {
		return fmt.Errorf("connection timeouts must not be negative")
	}
	_, err := c.Candidates()
	return err
}

// Candidates returns the endpoints as ordered candidates.
func (c ConnectionConfig) Candidates() ([]sparql.Candidate, error) {
	cands := make([]sparql.Candidate, 0, len(c.Endpoints))
	for _, raw := range c.Endpoints {
		endpoint := strings.TrimSpace(raw)
		if endpoint == "" {
			return nil, fmt.Errorf("connection.endpoints contains an empty entry")
		}
		if !strings.Contains(endpoint, "://") {
			host := endpoint
			if _, _, err := net.SplitHostPort(endpoint); err != nil {
				host = net.JoinHostPort(endpoint, strconv.Itoa(c.Port))
			}
			endpoint = c.Scheme + "://" + host
		}
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid endpoint %q", raw)
		}
		cands = append(cands, sparql.Candidate{URL: strings.TrimRight(endpoint, "/")})
	}
	return cands, nil
}

// Validate checks one export entry
func (e *ExportConfig) Validate() error {
	if _, err := e.OutputFormat(); err != nil {
		return err
	}
	if _, err := e.Toggles(); err != nil {
		return err
	}
	if _, err := scope.Select(e.Selection()); err != nil {
		return err
	}
	if e.WithDefaultGraph && e.Selection().Kind != scope.KindGraph {
		return fmt.Errorf("with_default_graph requires the graph scope")
	}
	if e.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	return nil
}

// Selection returns the scope request described by the entry.
func (e *ExportConfig) Selection() scope.Selection {
	kind := scope.Kind(strings.ToLower(strings.TrimSpace(e.Scope)))
	if kind == "" {
		kind = scope.KindGraph
	}
	return scope.Selection{
		Kind:        kind,
		NamedGraphs: e.NamedGraphs,
		Query:       e.Query,
	}
}

// Toggles parses the feature toggles of the entry.
func (e *ExportConfig) Toggles() (features.Toggles, error) {
	return features.Parse(e.Features)
}

// OutputFormat parses the output format of the entry.
func (e *ExportConfig) OutputFormat() (export.Format, error) {
	if e.Format == "" {
		return export.FormatNQuads, nil
	}
	return export.ParseFormat(e.Format)
}

// LoadFromFile loads configuration from a YAML file. Environment
// variables in the file are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal([]byte(ExpandEnvWithDefaults(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Connection
	if len(other.Connection.Endpoints) > 0 {
		c.Connection.Endpoints = other.Connection.Endpoints
	}
	if other.Connection.Port != 0 {
		c.Connection.Port = other.Connection.Port
	}
	if other.Connection.Scheme != "" {
		c.Connection.Scheme = other.Connection.Scheme
	}
	if other.Connection.Timeout != 0 {
		c.Connection.Timeout = other.Connection.Timeout
	}
	if other.Connection.ProbeTimeout != 0 {
		c.Connection.ProbeTimeout = other.Connection.ProbeTimeout
	}

	// Exports are replaced as a whole
	if len(other.Exports) > 0 {
		c.Exports = other.Exports
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.File != "" {
		c.Log.File = other.Log.File
	}
	if other.Log.MaxSizeMB != 0 {
		c.Log.MaxSizeMB = other.Log.MaxSizeMB
	}
	if other.Log.MaxBackups != 0 {
		c.Log.MaxBackups = other.Log.MaxBackups
	}

	// Metrics
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}
}

// ApplyExportDefaults fills unset export fields and names.
func (c *Config) ApplyExportDefaults() {
	def := DefaultExport()
	for i := range c.Exports {
		e := &c.Exports[i]
		if e.Name == "" {
			e.Name = fmt.Sprintf("export-%d", i+1)
		}
		if e.Scope == "" {
			e.Scope = def.Scope
		}
		if e.Format == "" {
			e.Format = def.Format
		}
		if e.Dir == "" {
			e.Dir = def.Dir
		}
	}
}
