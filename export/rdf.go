// Package export provides the RDF term model and streaming serializers
// used to write exported statements.
package export

import (
	"fmt"
	"strings"

	"github.com/c360studio/rdf-export/vocabulary/w3c"
)

// TermKind identifies the kind of an RDF term.
type TermKind uint8

const (
	// KindIRI is an IRI reference.
	KindIRI TermKind = iota
	// KindBlank is a blank node.
	KindBlank
	// KindLiteral is a literal value.
	KindLiteral
)

// Term is a single RDF term.
type Term struct {
	Kind TermKind

	// Value is the IRI, the blank node label, or the literal lexical form.
	Value string

	// Datatype is the literal datatype IRI, if any.
	Datatype string

	// Lang is the literal language tag, if any.
	Lang string
}

// IRI returns an IRI term.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Blank returns a blank node term.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// Literal returns a plain literal term.
func Literal(lexical string) Term {
	return Term{Kind: KindLiteral, Value: lexical}
}

// TypedLiteral returns a literal with a datatype.
func TypedLiteral(lexical, datatype string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(lexical, lang string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Lang: lang}
}

// IsZero reports whether the term is unset.
func (t Term) IsZero() bool {
	return t == Term{}
}

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case KindBlank:
		return "_:" + t.Value
	default:
		lit := "\"" + escapeString(t.Value) + "\""
		if t.Lang != "" {
			return lit + "@" + t.Lang
		}
		// xsd:string is the implicit datatype of a plain literal.
		if t.Datatype != "" && t.Datatype != w3c.XSDString {
			return lit + "^^<" + escapeIRI(t.Datatype) + ">"
		}
		return lit
	}
}

// Statement is one RDF statement. Graph is zero for the default graph.
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// InDefaultGraph reports whether the statement has no graph component.
func (s Statement) InDefaultGraph() bool {
	return s.Graph.IsZero()
}

// Validate checks that the statement is well formed enough to serialize.
func (s Statement) Validate() error {
	if s.Subject.IsZero() || s.Predicate.IsZero() || s.Object.IsZero() {
		return fmt.Errorf("statement is missing subject, predicate or object")
	}
	if s.Subject.Kind == KindLiteral {
		return fmt.Errorf("literal subject %s", s.Subject)
	}
	if s.Predicate.Kind != KindIRI {
		return fmt.Errorf("non-IRI predicate %s", s.Predicate)
	}
	if !s.Graph.IsZero() && s.Graph.Kind == KindLiteral {
		return fmt.Errorf("literal graph name %s", s.Graph)
	}
	return nil
}

// escapeString escapes special characters in literals for RDF serialization.
func escapeString(s string) string {
	if !strings.ContainsAny(s, "\\\"\n\r\t") {
		return s
	}
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

// escapeIRI escapes the characters N-Triples forbids inside an IRIREF.
func escapeIRI(s string) string {
	if strings.IndexFunc(s, iriForbidden) < 0 {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if iriForbidden(r) {
			fmt.Fprintf(&sb, "\\u%04X", r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func iriForbidden(r rune) bool {
	if r <= 0x20 {
		return true
	}
	return strings.ContainsRune("<>\"{}|^`\\", r)
}
