package scope

import (
	"fmt"
	"strings"
)

// UnitKind identifies what a unit exports.
type UnitKind int

const (
	UnitDefaultGraph UnitKind = iota
	UnitNamedGraph
	UnitQuery
)

func (k UnitKind) String() string {
	switch k {
	case UnitDefaultGraph:
		return "default-graph"
	case UnitNamedGraph:
		return "named-graph"
	case UnitQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Unit is one addressable export target. Units are immutable.
type Unit struct {
	kind  UnitKind
	graph string
	query string
}

// DefaultGraph returns the unit for the default graph.
func DefaultGraph() Unit {
	return Unit{kind: UnitDefaultGraph}
}

// NamedGraph returns the unit for the graph identified by iri.
func NamedGraph(iri string) Unit {
	return Unit{kind: UnitNamedGraph, graph: iri}
}

// AdHocQuery returns the unit for an arbitrary query.
func AdHocQuery(query string) Unit {
	return Unit{kind: UnitQuery, query: query}
}

// Kind returns the unit kind.
func (u Unit) Kind() UnitKind { return u.kind }

// Graph returns the named graph identifier; empty for other kinds.
func (u Unit) Graph() string { return u.graph }

// Query returns the query text of an ad hoc query unit.
func (u Unit) Query() string { return u.query }

// String describes the unit for logs and error messages.
func (u Unit) String() string {
	switch u.kind {
	case UnitDefaultGraph:
		return "default graph"
	case UnitNamedGraph:
		return fmt.Sprintf("named graph <%s>", u.graph)
	default:
		return fmt.Sprintf("query %q", abbreviate(u.query, 80))
	}
}

// Plan is the ordered, non-empty list of units derived from a scope.
type Plan struct {
	kind  Kind
	units []Unit
}

// NewPlan compiles a scope into a plan.
func NewPlan(s Scope) (Plan, error) {
	var units []Unit
	switch v := s.(type) {
	case WholeGraph:
		units = append(units, DefaultGraph())
		for _, g := range v.NamedGraphs {
			units = append(units, NamedGraph(g))
		}
	case NamedGraphs:
		for _, g := range v.Graphs {
			units = append(units, NamedGraph(g))
		}
	case EdgesOnly:
		units = append(units, AdHocQuery(EdgesQuery))
	case CustomQuery:
		if strings.TrimSpace(v.Query) == "" {
			return Plan{}, invalid(ErrMissingQuery,
				"a SPARQL query must be supplied when exporting from a query")
		}
		units = append(units, AdHocQuery(v.Query))
	case nil:
		return Plan{}, invalid(ErrUnknownScope, "no export scope given")
	default:
		return Plan{}, invalid(ErrUnknownScope, "unknown export scope: %T", s)
	}

	if len(units) == 0 {
		return Plan{}, invalid(ErrEmptyPlan, "export scope %q produced no units", s.Kind())
	}
	return Plan{kind: s.Kind(), units: units}, nil
}

// Kind returns the scope kind the plan was built from.
func (p Plan) Kind() Kind { return p.kind }

// Len returns the number of units.
func (p Plan) Len() int { return len(p.units) }

// Units returns a copy of the units in execution order.
func (p Plan) Units() []Unit {
	return append([]Unit(nil), p.units...)
}

func abbreviate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
