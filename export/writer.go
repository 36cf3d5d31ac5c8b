package export

import (
	"bufio"
	"fmt"
	"io"
)

// Writer streams statements to an output. Close flushes buffered output
// but never closes the underlying stream.
type Writer interface {
	Write(Statement) error
	Close() error
}

// NewWriter creates a statement writer for the given format.
func NewWriter(w io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatNTriples:
		return &lineWriter{w: bufio.NewWriter(w)}, nil
	case FormatNQuads:
		return &lineWriter{w: bufio.NewWriter(w), quads: true}, nil
	case FormatTurtle:
		return &TurtleWriter{w: bufio.NewWriter(w)}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// lineWriter writes N-Triples, or N-Quads when quads is set.
type lineWriter struct {
	w     *bufio.Writer
	quads bool
	err   error
}

func (l *lineWriter) Write(s Statement) error {
	if l.err != nil {
		return l.err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	line := s.Subject.String() + " " + s.Predicate.String() + " " + s.Object.String()
	if l.quads && !s.InDefaultGraph() {
		line += " " + s.Graph.String()
	}
	_, l.err = l.w.WriteString(line + " .\n")
	return l.err
}

func (l *lineWriter) Close() error {
	if l.err != nil {
		return l.err
	}
	l.err = l.w.Flush()
	return l.err
}

// TurtleWriter writes Turtle, grouping consecutive statements that share
// a subject into one predicate list. Graph components are dropped.
type TurtleWriter struct {
	w       *bufio.Writer
	subject Term
	open    bool
	err     error
}

// Write appends one statement.
func (t *TurtleWriter) Write(s Statement) error {
	if t.err != nil {
		return t.err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if t.open && s.Subject == t.subject {
		t.printf(" ;\n    %s %s", s.Predicate, s.Object)
		return t.err
	}
	if t.open {
		t.printf(" .\n")
	}
	t.subject = s.Subject
	t.open = true
	t.printf("%s\n    %s %s", s.Subject, s.Predicate, s.Object)
	return t.err
}

// Close terminates the last subject block and flushes.
func (t *TurtleWriter) Close() error {
	if t.err != nil {
		return t.err
	}
	if t.open {
		t.printf(" .\n")
		t.open = false
	}
	if t.err == nil {
		t.err = t.w.Flush()
	}
	return t.err
}

func (t *TurtleWriter) printf(format string, args ...any) {
	if t.err == nil {
		_, t.err = fmt.Fprintf(t.w, format, args...)
	}
}
