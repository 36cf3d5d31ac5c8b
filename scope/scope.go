// Package scope resolves a requested export scope into an ordered export
// plan. Resolution is pure validation; it performs no I/O.
package scope

import (
	"fmt"
	"strings"

	"github.com/c360studio/rdf-export/vocabulary/w3c"
)

// Kind is the user facing scope selector.
type Kind string

const (
	// KindGraph exports whole graphs, either all of them or a named subset.
	KindGraph Kind = "graph"
	// KindEdges exports only resource-to-resource statements.
	KindEdges Kind = "edges"
	// KindQuery exports the results of a caller-supplied query.
	KindQuery Kind = "query"
)

// Kinds lists every recognized scope kind.
var Kinds = []Kind{KindGraph, KindEdges, KindQuery}

// EdgesQuery selects resource-to-resource statements, leaving out
// literal-valued properties and rdf:type assertions.
const EdgesQuery = "SELECT * WHERE { GRAPH ?g { ?s ?p ?o } FILTER(!isLiteral(?o) && ?p != <" + w3c.RDFType + ">) }"

// Scope is one export scope variant: WholeGraph, NamedGraphs, EdgesOnly or
// CustomQuery. The set is closed.
type Scope interface {
	Kind() Kind
	scope()
}

// WholeGraph exports the default graph followed by any declared named
// graphs.
type WholeGraph struct {
	NamedGraphs []string
}

// NamedGraphs exports exactly the listed graphs and not the default graph.
type NamedGraphs struct {
	Graphs []string
}

// EdgesOnly exports statements linking two resources.
type EdgesOnly struct{}

// CustomQuery exports the result of a user supplied query.
type CustomQuery struct {
	Query string
}

func (WholeGraph) Kind() Kind  { return KindGraph }
func (NamedGraphs) Kind() Kind { return KindGraph }
func (EdgesOnly) Kind() Kind   { return KindEdges }
func (CustomQuery) Kind() Kind { return KindQuery }

func (WholeGraph) scope()  {}
func (NamedGraphs) scope() {}
func (EdgesOnly) scope()   {}
func (CustomQuery) scope() {}

// Selection is the raw scope request as supplied by a caller.
type Selection struct {
	Kind        Kind
	NamedGraphs []string
	Query       string
}

// Ignored returns the names of supplied parameters that the selected
// scope does not use.
func (s Selection) Ignored() []string {
	var ignored []string
	if s.Kind != KindQuery && strings.TrimSpace(s.Query) != "" {
		ignored = append(ignored, "query")
	}
	return ignored
}

// Select validates a selection and returns the matching scope variant.
func Select(sel Selection) (Scope, error) {
	switch sel.Kind {
	case KindGraph:
		if len(sel.NamedGraphs) == 0 {
			return WholeGraph{}, nil
		}
		return NamedGraphs{Graphs: append([]string(nil), sel.NamedGraphs...)}, nil
	case KindEdges:
		if len(sel.NamedGraphs) != 0 {
			return nil, invalid(ErrInvalidScopeCombination,
				"named graphs can only be used with scope %q", KindGraph)
		}
		return EdgesOnly{}, nil
	case KindQuery:
		if len(sel.NamedGraphs) != 0 {
			return nil, invalid(ErrInvalidScopeCombination,
				"named graphs can only be used with scope %q", KindGraph)
		}
		if strings.TrimSpace(sel.Query) == "" {
			return nil, invalid(ErrMissingQuery,
				"a SPARQL query must be supplied when exporting from a query")
		}
		return CustomQuery{Query: sel.Query}, nil
	default:
		return nil, invalid(ErrUnknownScope, "unknown export scope: %q", sel.Kind)
	}
}

// Resolve validates a selection and compiles it into a plan.
func Resolve(sel Selection) (Plan, error) {
	s, err := Select(sel)
	if err != nil {
		return Plan{}, err
	}
	return NewPlan(s)
}

// ParseKind converts a string to a scope kind.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", invalid(ErrUnknownScope, "unknown export scope: %q", value)
}

func invalid(kind error, format string, args ...any) error {
	return &ValidationError{Err: kind, Msg: fmt.Sprintf(format, args...)}
}
