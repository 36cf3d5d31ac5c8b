package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rdf-export/scope"
)

func TestCompileDefaultGraph(t *testing.T) {
	c := Compile(scope.DefaultGraph())

	require.NotNil(t, c.Bulk)
	assert.Equal(t, "default", c.Bulk.Target)
	assert.Equal(t, "SELECT * WHERE { GRAPH ?g { ?s ?p ?o } }", c.Tuple.Query)
	assert.Equal(t, scope.DefaultGraph(), c.Unit)
}

func TestCompileNamedGraph(t *testing.T) {
	c := Compile(scope.NamedGraph("http://example.com"))

	require.NotNil(t, c.Bulk)
	assert.Equal(t, "graph=http://example.com", c.Bulk.Target)
	assert.Equal(t, "SELECT * WHERE { GRAPH ?g { ?s ?p ?o } FILTER(?g = <http://example.com>) .}", c.Tuple.Query)
}

func TestCompileNamedGraphCalledDefault(t *testing.T) {
	c := Compile(scope.NamedGraph("default"))

	require.NotNil(t, c.Bulk)
	assert.Equal(t, "graph=default", c.Bulk.Target)
}

func TestCompileAdHocQuery(t *testing.T) {
	q := "SELECT ?s ?p ?o WHERE { BIND(<http://g> AS ?g) ?s ?p ?o }"
	c := Compile(scope.AdHocQuery(q))

	assert.Nil(t, c.Bulk)
	assert.Equal(t, q, c.Tuple.Query)
}

func TestCompileEdges(t *testing.T) {
	plan, err := scope.Resolve(scope.Selection{Kind: scope.KindEdges})
	require.NoError(t, err)

	c := Compile(plan.Units()[0])
	assert.Nil(t, c.Bulk)
	assert.Equal(t, scope.EdgesQuery, c.Tuple.Query)
}
