// Package sink manages the output resources that export units write to.
// Every sink obtained through With is closed exactly once, whatever the
// outcome of the work done with it.
package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/c360studio/rdf-export/scope"
)

// ErrSink marks failures to open, write or close an output sink.
var ErrSink = errors.New("sink error")

// Error describes a sink failure.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s sink %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap exposes ErrSink and the cause.
func (e *Error) Unwrap() []error {
	return []error{ErrSink, e.Err}
}

// Sink is a writable destination for one unit. Close flushes and releases
// it.
type Sink interface {
	io.Writer
	Close() error
}

// Factory creates a fresh sink per unit.
type Factory interface {
	Create(unit scope.Unit) (Sink, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(unit scope.Unit) (Sink, error)

// Create implements Factory.
func (f FactoryFunc) Create(unit scope.Unit) (Sink, error) {
	return f(unit)
}

// With acquires a sink for unit, hands it to run, and closes it when run
// returns or panics. A close failure is reported even when run succeeded.
func With(f Factory, unit scope.Unit, run func(w io.Writer) error) (err error) {
	name := Name(unit)
	s, err := f.Create(unit)
	if err != nil {
		return wrap("open", name, err)
	}

	guarded := &onceSink{sink: s, name: name}
	defer func() {
		if cerr := guarded.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return run(guarded)
}

// onceSink guarantees the wrapped sink is closed at most once. Later
// calls to Close are no-ops.
type onceSink struct {
	sink Sink
	name string
	once sync.Once
}

func (o *onceSink) Write(p []byte) (int, error) {
	n, err := o.sink.Write(p)
	if err != nil {
		return n, wrap("write", o.name, err)
	}
	return n, nil
}

func (o *onceSink) Close() error {
	var err error
	o.once.Do(func() {
		if cerr := o.sink.Close(); cerr != nil {
			err = wrap("close", o.name, cerr)
		}
	})
	return err
}

func wrap(op, name string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Name: name, Err: err}
}
