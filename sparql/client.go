package sparql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/c360studio/rdf-export/export"
	"github.com/c360studio/rdf-export/features"
	"github.com/c360studio/rdf-export/query"
	"github.com/c360studio/rdf-export/scope"
)

// Stats describes one executed unit.
type Stats struct {
	Strategy   query.Strategy
	Endpoint   string
	Statements int64
	Bytes      int64
}

// Client executes export units against the endpoint elected by its
// chooser. It performs no retries.
type Client struct {
	chooser Chooser
	toggles features.Toggles
	format  export.FormatInfo
	logger  *slog.Logger
}

// NewClient creates a client writing the given format.
func NewClient(chooser Chooser, toggles features.Toggles, format export.Format, logger *slog.Logger) (*Client, error) {
	if chooser == nil {
		return nil, errors.New("endpoint chooser is required")
	}
	info, ok := export.GetFormatInfo(format)
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		chooser: chooser,
		toggles: toggles,
		format:  info,
		logger:  logger,
	}, nil
}

// ExecuteUnit compiles and executes one unit, writing its statements to w.
func (c *Client) ExecuteUnit(ctx context.Context, unit scope.Unit, w io.Writer) (Stats, error) {
	return c.Execute(ctx, query.Compile(unit), w)
}

// Strategy reports which strategy Execute uses for compiled.
func (c *Client) Strategy(compiled query.Compiled) query.Strategy {
	if compiled.Bulk != nil && !c.toggles.Enabled(features.NoBulkProtocol) {
		return query.StrategyBulk
	}
	return query.StrategyTuple
}

// Execute runs a compiled unit, writing its statements to w.
func (c *Client) Execute(ctx context.Context, compiled query.Compiled, w io.Writer) (Stats, error) {
	strategy := c.Strategy(compiled)
	stats := Stats{Strategy: strategy}

	ep, err := c.chooser.Choose(ctx)
	if err != nil {
		return stats, err
	}
	stats.Endpoint = ep.Address()

	c.logger.Debug("Executing export unit",
		slog.String("unit", compiled.Unit.String()),
		slog.String("strategy", string(strategy)),
		slog.String("endpoint", ep.Address()))

	switch strategy {
	case query.StrategyBulk:
		err = c.bulk(ctx, ep, compiled.Bulk.Target, w, &stats)
	default:
		err = c.tuple(ctx, ep, compiled.Tuple.Query, w, &stats)
	}
	if errors.Is(err, ErrEndpointUnreachable) {
		c.chooser.MarkUnreachable(ep)
	}
	return stats, err
}

// bulk copies the Graph Store Protocol response to w unchanged.
func (c *Client) bulk(ctx context.Context, ep Endpoint, target string, w io.Writer, stats *Stats) error {
	body, err := ep.GraphStore(ctx, target, c.format.MIMEType)
	if err != nil {
		return err
	}
	defer body.Close()

	n, err := io.Copy(w, &bodyReader{r: body})
	stats.Bytes = n
	var rf *readFailure
	if errors.As(err, &rf) {
		return classifyRead(ep, rf.err)
	}
	return err
}

// tuple renders each result row as one statement.
func (c *Client) tuple(ctx context.Context, ep Endpoint, q string, w io.Writer, stats *Stats) error {
	rows, err := ep.Select(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	cw := &countingWriter{w: w}
	sw, err := export.NewWriter(cw, c.format.Name)
	if err != nil {
		return err
	}

	for {
		b, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return classifyRead(ep, err)
		}
		stmt, err := statementFromBinding(b)
		if err != nil {
			return protocolError("read results", ep.Address(), "%v", err)
		}
		if err := sw.Write(stmt); err != nil {
			return err
		}
		stats.Statements++
	}

	err = sw.Close()
	stats.Bytes = cw.n
	return err
}

// statementFromBinding maps the s, p, o and optional g variables of a row
// to a statement.
func statementFromBinding(b Binding) (export.Statement, error) {
	stmt := export.Statement{
		Subject:   b["s"],
		Predicate: b["p"],
		Object:    b["o"],
		Graph:     b["g"],
	}
	if stmt.Subject.IsZero() || stmt.Predicate.IsZero() || stmt.Object.IsZero() {
		return export.Statement{}, fmt.Errorf("row does not bind ?s, ?p and ?o")
	}
	if err := stmt.Validate(); err != nil {
		return export.Statement{}, err
	}
	return stmt, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// bodyReader tags response body failures so they are not mistaken for
// sink write failures.
type bodyReader struct {
	r io.Reader
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		err = &readFailure{err: err}
	}
	return n, err
}

type readFailure struct {
	err error
}

func (e *readFailure) Error() string { return e.err.Error() }

func (e *readFailure) Unwrap() error { return e.err }

func classifyRead(ep Endpoint, err error) error {
	var re *RequestError
	if errors.As(err, &re) {
		return err
	}
	return &RequestError{Kind: ErrTransport, Op: "read response", Endpoint: ep.Address(), Err: err}
}
