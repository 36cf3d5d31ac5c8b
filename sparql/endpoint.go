// Package sparql drives SPARQL endpoints for export: it elects an active
// endpoint candidate, picks between Graph Store Protocol downloads and
// tuple queries, and streams results into an output sink.
package sparql

import (
	"context"
	"io"

	"github.com/c360studio/rdf-export/export"
)

// Endpoint is one SPARQL service.
type Endpoint interface {
	// Address identifies the endpoint in logs and errors.
	Address() string

	// GraphStore fetches a whole graph. target is "default" or
	// "graph=<iri>"; accept is the MIME type of the wanted serialization.
	GraphStore(ctx context.Context, target, accept string) (io.ReadCloser, error)

	// Select runs a SELECT query. Rows are produced lazily.
	Select(ctx context.Context, query string) (Rows, error)
}

// Binding is one result row keyed by variable name.
type Binding map[string]export.Term

// Rows iterates a SELECT result. Next returns io.EOF after the last row.
type Rows interface {
	Next() (Binding, error)
	Close() error
}

// Chooser elects the endpoint used for requests.
type Chooser interface {
	// Choose returns the active endpoint, electing one on first use.
	Choose(ctx context.Context) (Endpoint, error)

	// MarkUnreachable drops ep as the active endpoint so the next Choose
	// elects again.
	MarkUnreachable(ep Endpoint)
}
