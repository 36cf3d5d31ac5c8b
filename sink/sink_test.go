package sink

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rdf-export/export"
	"github.com/c360studio/rdf-export/scope"
)

type recordingSink struct {
	bytes.Buffer
	closes   int
	closeErr error
	writeErr error
}

func (r *recordingSink) Write(p []byte) (int, error) {
	if r.writeErr != nil {
		return 0, r.writeErr
	}
	return r.Buffer.Write(p)
}

func (r *recordingSink) Close() error {
	r.closes++
	return r.closeErr
}

func factoryFor(s *recordingSink) Factory {
	return FactoryFunc(func(scope.Unit) (Sink, error) { return s, nil })
}

func TestWithClosesOnSuccess(t *testing.T) {
	s := &recordingSink{}
	err := With(factoryFor(s), scope.DefaultGraph(), func(w io.Writer) error {
		_, err := io.WriteString(w, "data")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "data", s.String())
	assert.Equal(t, 1, s.closes)
}

func TestWithClosesOnFailure(t *testing.T) {
	s := &recordingSink{}
	boom := errors.New("boom")
	err := With(factoryFor(s), scope.DefaultGraph(), func(io.Writer) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.closes)
}

func TestWithClosesOnPanic(t *testing.T) {
	s := &recordingSink{}
	assert.Panics(t, func() {
		_ = With(factoryFor(s), scope.DefaultGraph(), func(io.Writer) error {
			panic("unexpected")
		})
	})
	assert.Equal(t, 1, s.closes)
}

func TestWithDoubleCloseIsNoop(t *testing.T) {
	s := &recordingSink{}
	err := With(factoryFor(s), scope.DefaultGraph(), func(w io.Writer) error {
		c, ok := w.(io.Closer)
		require.True(t, ok)
		require.NoError(t, c.Close())
		return c.Close()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.closes)
}

func TestWithSurfacesCloseErrorAfterSuccess(t *testing.T) {
	s := &recordingSink{closeErr: errors.New("flush failed")}
	err := With(factoryFor(s), scope.NamedGraph("http://a"), func(io.Writer) error {
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSink)
	assert.Contains(t, err.Error(), "flush failed")
}

func TestWithJoinsRunAndCloseErrors(t *testing.T) {
	s := &recordingSink{closeErr: errors.New("flush failed")}
	boom := errors.New("boom")
	err := With(factoryFor(s), scope.DefaultGraph(), func(io.Writer) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrSink)
}

func TestWithWrapsWriteErrors(t *testing.T) {
	s := &recordingSink{writeErr: errors.New("disk full")}
	err := With(factoryFor(s), scope.DefaultGraph(), func(w io.Writer) error {
		_, err := w.Write([]byte("x"))
		return err
	})
	assert.ErrorIs(t, err, ErrSink)
	assert.Equal(t, 1, s.closes)
}

func TestWithOpenFailure(t *testing.T) {
	f := FactoryFunc(func(scope.Unit) (Sink, error) { return nil, errors.New("permission denied") })
	called := false
	err := With(f, scope.DefaultGraph(), func(io.Writer) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrSink)
	assert.False(t, called)
}

func TestName(t *testing.T) {
	assert.Equal(t, "default", Name(scope.DefaultGraph()))
	assert.Equal(t, "query", Name(scope.AdHocQuery("SELECT * WHERE { ?s ?p ?o }")))

	a := Name(scope.NamedGraph("http://example.com/a"))
	assert.True(t, strings.HasPrefix(a, "graph-"))
	assert.Equal(t, a, Name(scope.NamedGraph("http://example.com/a")))
	assert.NotEqual(t, a, Name(scope.NamedGraph("http://example.com/b")))

	// A graph literally named "default" does not collide with the default graph.
	assert.NotEqual(t, Name(scope.DefaultGraph()), Name(scope.NamedGraph("default")))
}

func TestFileFactory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "statements")
	f, err := NewFileFactory(dir, export.FormatNQuads)
	require.NoError(t, err)

	err = With(f, scope.DefaultGraph(), func(w io.Writer) error {
		_, err := io.WriteString(w, "<a> <b> <c> .\n")
		return err
	})
	require.NoError(t, err)

	path := f.Path(scope.DefaultGraph())
	assert.Equal(t, filepath.Join(dir, "default.nq"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<a> <b> <c> .\n", string(data))
}

func TestNewFileFactoryValidation(t *testing.T) {
	_, err := NewFileFactory("", export.FormatNQuads)
	assert.Error(t, err)

	_, err = NewFileFactory(t.TempDir(), export.Format("csv"))
	assert.Error(t, err)
}

func TestWriterFactoryLeavesStreamOpen(t *testing.T) {
	var out bytes.Buffer
	f := WriterFactory{W: &out}

	for _, unit := range []scope.Unit{scope.NamedGraph("http://a"), scope.NamedGraph("http://b")} {
		err := With(f, unit, func(w io.Writer) error {
			_, err := io.WriteString(w, unit.Graph()+"\n")
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, "http://a\nhttp://b\n", out.String())
}
