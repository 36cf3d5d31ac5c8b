package sparql

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rdf-export/export"
	"github.com/c360studio/rdf-export/features"
	"github.com/c360studio/rdf-export/query"
	"github.com/c360studio/rdf-export/scope"
)

// stubEndpoint records requests and serves canned responses.
type stubEndpoint struct {
	gspTargets []string
	gspAccept  []string
	queries    []string

	gspBody   string
	gspErr    error
	rows      []Binding
	selectErr error
	rowErr    error
}

func (s *stubEndpoint) Address() string { return "stub" }

func (s *stubEndpoint) GraphStore(_ context.Context, target, accept string) (io.ReadCloser, error) {
	s.gspTargets = append(s.gspTargets, target)
	s.gspAccept = append(s.gspAccept, accept)
	if s.gspErr != nil {
		return nil, s.gspErr
	}
	return io.NopCloser(strings.NewReader(s.gspBody)), nil
}

func (s *stubEndpoint) Select(_ context.Context, q string) (Rows, error) {
	s.queries = append(s.queries, q)
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	return &sliceRows{rows: s.rows, err: s.rowErr}, nil
}

type sliceRows struct {
	rows   []Binding
	err    error
	closed int
}

func (r *sliceRows) Next() (Binding, error) {
	if len(r.rows) == 0 {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}
	b := r.rows[0]
	r.rows = r.rows[1:]
	return b, nil
}

func (r *sliceRows) Close() error {
	r.closed++
	return nil
}

// stubChooser always elects the same endpoint.
type stubChooser struct {
	ep       Endpoint
	err      error
	chosen   int
	markedDn int
}

func (c *stubChooser) Choose(context.Context) (Endpoint, error) {
	c.chosen++
	if c.err != nil {
		return nil, c.err
	}
	return c.ep, nil
}

func (c *stubChooser) MarkUnreachable(Endpoint) {
	c.markedDn++
}

func newTestClient(t *testing.T, ep *stubEndpoint, format export.Format, toggles ...features.Toggle) *Client {
	t.Helper()
	c, err := NewClient(&stubChooser{ep: ep}, features.New(toggles...), format, nil)
	require.NoError(t, err)
	return c
}

func versionRow() Binding {
	return Binding{
		"s": export.IRI("http://aws.amazon.com/neptune/csv2rdf/resource/0"),
		"p": export.IRI("http://aws.amazon.com/neptune/csv2rdf/datatypeProperty/code"),
		"o": export.Literal("0.77"),
		"g": export.IRI("http://aws.amazon.com/neptune/csv2rdf/graph/version"),
	}
}

func TestDefaultGraphUsesGraphStore(t *testing.T) {
	ep := &stubEndpoint{gspBody: "<a> <b> <c> .\n"}
	c := newTestClient(t, ep, export.FormatNQuads)

	var out bytes.Buffer
	stats, err := c.ExecuteUnit(context.Background(), scope.DefaultGraph(), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"default"}, ep.gspTargets)
	assert.Equal(t, []string{"application/n-quads"}, ep.gspAccept)
	assert.Empty(t, ep.queries)
	assert.Equal(t, "<a> <b> <c> .\n", out.String())
	assert.Equal(t, query.StrategyBulk, stats.Strategy)
	assert.Equal(t, int64(len("<a> <b> <c> .\n")), stats.Bytes)
}

func TestDefaultGraphWithoutBulkProtocol(t *testing.T) {
	ep := &stubEndpoint{}
	c := newTestClient(t, ep, export.FormatNQuads, features.NoBulkProtocol)

	stats, err := c.ExecuteUnit(context.Background(), scope.DefaultGraph(), io.Discard)
	require.NoError(t, err)

	assert.Empty(t, ep.gspTargets)
	assert.Equal(t, []string{"SELECT * WHERE { GRAPH ?g { ?s ?p ?o } }"}, ep.queries)
	assert.Equal(t, query.StrategyTuple, stats.Strategy)
}

func TestNamedGraphUsesGraphStore(t *testing.T) {
	ep := &stubEndpoint{}
	c := newTestClient(t, ep, export.FormatNQuads)

	_, err := c.ExecuteUnit(context.Background(), scope.NamedGraph("GraphName"), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"graph=GraphName"}, ep.gspTargets)
	assert.Empty(t, ep.queries)
}

func TestNamedGraphWithoutBulkProtocol(t *testing.T) {
	ep := &stubEndpoint{}
	c := newTestClient(t, ep, export.FormatNQuads, features.NoBulkProtocol)

	_, err := c.ExecuteUnit(context.Background(), scope.NamedGraph("http://example.com"), io.Discard)
	require.NoError(t, err)

	assert.Empty(t, ep.gspTargets)
	assert.Equal(t, []string{"SELECT * WHERE { GRAPH ?g { ?s ?p ?o } FILTER(?g = <http://example.com>) .}"}, ep.queries)
}

func TestAdHocQueryAlwaysUsesTupleQuery(t *testing.T) {
	ep := &stubEndpoint{rows: []Binding{versionRow()}}
	c := newTestClient(t, ep, export.FormatNTriples)

	q := "SELECT * WHERE { BIND(<http://aws.amazon.com/neptune/csv2rdf/graph/version> AS ?g) ?s ?p ?o }"
	var out bytes.Buffer
	stats, err := c.ExecuteUnit(context.Background(), scope.AdHocQuery(q), &out)
	require.NoError(t, err)

	assert.Empty(t, ep.gspTargets)
	assert.Equal(t, []string{q}, ep.queries)
	assert.Equal(t,
		"<http://aws.amazon.com/neptune/csv2rdf/resource/0> <http://aws.amazon.com/neptune/csv2rdf/datatypeProperty/code> \"0.77\" .\n",
		out.String())
	assert.Equal(t, int64(1), stats.Statements)
	assert.Equal(t, int64(out.Len()), stats.Bytes)
}

func TestTupleQueryRendersGraphForQuadFormats(t *testing.T) {
	ep := &stubEndpoint{rows: []Binding{versionRow()}}
	c := newTestClient(t, ep, export.FormatNQuads, features.NoBulkProtocol)

	var out bytes.Buffer
	_, err := c.ExecuteUnit(context.Background(), scope.DefaultGraph(), &out)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.String(), " <http://aws.amazon.com/neptune/csv2rdf/graph/version> .\n"))
}

func TestTupleQueryRowWithoutStatementIsProtocolError(t *testing.T) {
	ep := &stubEndpoint{rows: []Binding{{"x": export.Literal("1")}}}
	c := newTestClient(t, ep, export.FormatNQuads)

	_, err := c.ExecuteUnit(context.Background(), scope.AdHocQuery("SELECT ?x WHERE {}"), io.Discard)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestTupleQueryRowError(t *testing.T) {
	ep := &stubEndpoint{rows: []Binding{versionRow()}, rowErr: errors.New("connection reset")}
	c := newTestClient(t, ep, export.FormatNQuads)

	_, err := c.ExecuteUnit(context.Background(), scope.AdHocQuery("SELECT * WHERE { ?s ?p ?o }"), io.Discard)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBulkFailureDoesNotFallBack(t *testing.T) {
	ep := &stubEndpoint{gspErr: &RequestError{Kind: ErrTransport, Op: "graph store request", Err: errors.New("reset")}}
	c := newTestClient(t, ep, export.FormatNQuads)

	_, err := c.ExecuteUnit(context.Background(), scope.DefaultGraph(), io.Discard)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Len(t, ep.gspTargets, 1)
	assert.Empty(t, ep.queries)
}

func TestUnreachableEndpointIsMarked(t *testing.T) {
	ep := &stubEndpoint{gspErr: &RequestError{Kind: ErrEndpointUnreachable, Op: "graph store request"}}
	chooser := &stubChooser{ep: ep}
	c, err := NewClient(chooser, features.Toggles{}, export.FormatNQuads, nil)
	require.NoError(t, err)

	_, err = c.ExecuteUnit(context.Background(), scope.DefaultGraph(), io.Discard)
	assert.ErrorIs(t, err, ErrEndpointUnreachable)
	assert.Equal(t, 1, chooser.markedDn)
}

func TestChooserFailure(t *testing.T) {
	chooser := &stubChooser{err: &RequestError{Kind: ErrEndpointUnreachable, Op: "choose endpoint"}}
	c, err := NewClient(chooser, features.Toggles{}, export.FormatNQuads, nil)
	require.NoError(t, err)

	_, err = c.ExecuteUnit(context.Background(), scope.DefaultGraph(), io.Discard)
	assert.ErrorIs(t, err, ErrEndpointUnreachable)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestBulkSinkFailureIsNotTransport(t *testing.T) {
	ep := &stubEndpoint{gspBody: "<a> <b> <c> .\n"}
	c := newTestClient(t, ep, export.FormatNQuads)

	_, err := c.ExecuteUnit(context.Background(), scope.DefaultGraph(), failingWriter{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil, features.Toggles{}, export.FormatNQuads, nil)
	assert.Error(t, err)

	_, err = NewClient(&stubChooser{}, features.Toggles{}, export.Format("rdfxml"), nil)
	assert.Error(t, err)
}
