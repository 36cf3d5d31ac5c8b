package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/c360studio/rdf-export/export"
	"github.com/c360studio/rdf-export/scope"
)

// Name returns the base name used for a unit's output. Named graph names
// are derived from the graph IRI so they are stable across runs and safe
// as file names.
func Name(unit scope.Unit) string {
	switch unit.Kind() {
	case scope.UnitDefaultGraph:
		return "default"
	case scope.UnitNamedGraph:
		return "graph-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(unit.Graph())).String()
	default:
		return "query"
	}
}

// FileFactory writes each unit to its own file in Dir.
type FileFactory struct {
	Dir    string
	Format export.Format
}

// NewFileFactory returns a factory for dir. The directory is created on
// first use.
func NewFileFactory(dir string, format export.Format) (*FileFactory, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if _, ok := export.GetFormatInfo(format); !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &FileFactory{Dir: dir, Format: format}, nil
}

// Path returns the file a unit is written to.
func (f *FileFactory) Path(unit scope.Unit) string {
	info, _ := export.GetFormatInfo(f.Format)
	return filepath.Join(f.Dir, Name(unit)+info.Extension)
}

// Create implements Factory.
func (f *FileFactory) Create(unit scope.Unit) (Sink, error) {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(f.Path(unit))
	if err != nil {
		return nil, err
	}
	return &fileSink{file: file, buf: bufio.NewWriter(file)}, nil
}

type fileSink struct {
	file *os.File
	buf  *bufio.Writer
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *fileSink) Close() error {
	ferr := s.buf.Flush()
	cerr := s.file.Close()
	return errors.Join(ferr, cerr)
}

// WriterFactory hands out sinks over a caller owned stream such as stdout.
// Closing a sink flushes it but leaves the stream open.
type WriterFactory struct {
	W io.Writer
}

// Create implements Factory.
func (f WriterFactory) Create(scope.Unit) (Sink, error) {
	if f.W == nil {
		return nil, errors.New("no output stream")
	}
	return &streamSink{buf: bufio.NewWriter(f.W)}, nil
}

type streamSink struct {
	buf *bufio.Writer
}

func (s *streamSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *streamSink) Close() error {
	return s.buf.Flush()
}
