// Package w3c provides the W3C namespace and term IRIs the exporter
// refers to when building queries and rendering literals.
package w3c

// Namespaces.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// RDF terms.
const (
	// RDFType links a resource to its class. The edges scope excludes it.
	RDFType = RDFNamespace + "type"

	// RDFLangString is the datatype of language tagged literals.
	RDFLangString = RDFNamespace + "langString"
)

// XSD datatypes.
const (
	// XSDString is the implicit datatype of plain literals; serializers
	// omit it.
	XSDString   = XSDNamespace + "string"
	XSDInteger  = XSDNamespace + "integer"
	XSDBoolean  = XSDNamespace + "boolean"
	XSDDateTime = XSDNamespace + "dateTime"
)
