// Package query compiles export units into the protocol requests that
// realize them. It produces every applicable form; the endpoint client
// chooses between them.
package query

import (
	"github.com/c360studio/rdf-export/scope"
)

// DefaultGraphTarget is the Graph Store Protocol target for the default graph.
const DefaultGraphTarget = "default"

// AllQuadsQuery selects every quad across all graphs.
const AllQuadsQuery = "SELECT * WHERE { GRAPH ?g { ?s ?p ?o } }"

// Strategy identifies how a unit was fetched.
type Strategy string

const (
	StrategyBulk  Strategy = "bulk"
	StrategyTuple Strategy = "tuple"
)

// BulkDump addresses a whole graph through the Graph Store Protocol.
type BulkDump struct {
	// Target is "default" or "graph=<iri>".
	Target string
}

// TupleQuery is a SELECT query whose rows are rendered as statements.
type TupleQuery struct {
	Query string
}

// Compiled holds the candidate request forms for one unit. Bulk is nil
// when the unit cannot be fetched in bulk.
type Compiled struct {
	Unit  scope.Unit
	Bulk  *BulkDump
	Tuple TupleQuery
}

// Compile returns the request forms for unit.
func Compile(unit scope.Unit) Compiled {
	switch unit.Kind() {
	case scope.UnitDefaultGraph:
		return Compiled{
			Unit:  unit,
			Bulk:  &BulkDump{Target: DefaultGraphTarget},
			Tuple: TupleQuery{Query: AllQuadsQuery},
		}
	case scope.UnitNamedGraph:
		return Compiled{
			Unit:  unit,
			Bulk:  &BulkDump{Target: NamedGraphTarget(unit.Graph())},
			Tuple: TupleQuery{Query: NamedGraphQuery(unit.Graph())},
		}
	default:
		return Compiled{
			Unit:  unit,
			Tuple: TupleQuery{Query: unit.Query()},
		}
	}
}

// NamedGraphTarget returns the Graph Store Protocol target for a graph.
func NamedGraphTarget(iri string) string {
	return "graph=" + iri
}

// NamedGraphQuery selects the quads of one named graph. The IRI is
// inserted as given.
func NamedGraphQuery(iri string) string {
	return "SELECT * WHERE { GRAPH ?g { ?s ?p ?o } FILTER(?g = <" + iri + ">) .}"
}
