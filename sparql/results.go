package sparql

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/c360studio/rdf-export/export"
)

// jsonRows streams the bindings array of a SPARQL JSON results document
// one row at a time.
type jsonRows struct {
	body     io.ReadCloser
	dec      *json.Decoder
	endpoint string
	done     bool
	err      error
}

// newJSONRows positions the decoder on the first element of
// results.bindings.
func newJSONRows(body io.ReadCloser) (*jsonRows, error) {
	dec := json.NewDecoder(body)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "results":
			if err := seekBindings(dec); err != nil {
				return nil, err
			}
			return &jsonRows{body: body, dec: dec}, nil
		case "boolean":
			return nil, errors.New("got an ASK result, a SELECT query is required")
		default:
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	return nil, errors.New("results document has no results member")
}

func seekBindings(dec *json.Decoder) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return err
		}
		if key == "bindings" {
			return expectDelim(dec, '[')
		}
		if err := skipValue(dec); err != nil {
			return err
		}
	}
	return errors.New("results member has no bindings array")
}

// Next implements Rows.
func (r *jsonRows) Next() (Binding, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, io.EOF
	}
	if !r.dec.More() {
		// More also reports false when the body ends or fails, so only a
		// closing bracket ends the bindings.
		if err := expectDelim(r.dec, ']'); err != nil {
			r.err = r.readError(err)
			return nil, r.err
		}
		r.done = true
		return nil, io.EOF
	}

	var raw json.RawMessage
	if err := r.dec.Decode(&raw); err != nil {
		r.err = r.readError(err)
		return nil, r.err
	}
	b, err := parseBinding(raw)
	if err != nil {
		r.err = protocolError("read results", r.endpoint, "%v", err)
		return nil, r.err
	}
	return b, nil
}

// readError classifies a failure while streaming rows. Malformed JSON is a
// protocol error; a body that ends early or fails to read is a transport
// error.
func (r *jsonRows) readError(err error) error {
	var syntaxErr *json.SyntaxError
	var delimErr *delimError
	if errors.As(err, &syntaxErr) || errors.As(err, &delimErr) {
		return protocolError("read results", r.endpoint, "%v", err)
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &RequestError{Kind: ErrTransport, Op: "read results", Endpoint: r.endpoint, Err: err}
}

// Close implements Rows.
func (r *jsonRows) Close() error {
	return r.body.Close()
}

func parseBinding(raw []byte) (Binding, error) {
	row := gjson.ParseBytes(raw)
	if !row.IsObject() {
		return nil, fmt.Errorf("binding is not an object: %s", abbreviate(raw))
	}

	b := make(Binding)
	var err error
	row.ForEach(func(key, value gjson.Result) bool {
		var term export.Term
		term, err = parseTerm(value)
		if err != nil {
			err = fmt.Errorf("variable %s: %w", key.String(), err)
			return false
		}
		b[key.String()] = term
		return true
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func parseTerm(v gjson.Result) (export.Term, error) {
	value := v.Get("value")
	if !value.Exists() {
		return export.Term{}, errors.New("term has no value")
	}
	switch t := v.Get("type").String(); t {
	case "uri":
		return export.IRI(value.String()), nil
	case "bnode":
		return export.Blank(value.String()), nil
	case "literal", "typed-literal":
		if lang := v.Get("xml:lang").String(); lang != "" {
			return export.LangLiteral(value.String(), lang), nil
		}
		return export.TypedLiteral(value.String(), v.Get("datatype").String()), nil
	default:
		return export.Term{}, fmt.Errorf("unsupported term type %q", t)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &delimError{want: want, got: tok}
	}
	return nil
}

// delimError is an unexpected token where a delimiter was required.
type delimError struct {
	want json.Delim
	got  json.Token
}

func (e *delimError) Error() string {
	return fmt.Sprintf("expected %q, got %v", e.want, e.got)
}

func nextKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func skipValue(dec *json.Decoder) error {
	var skip json.RawMessage
	return dec.Decode(&skip)
}

func abbreviate(b []byte) string {
	if len(b) > 80 {
		return string(b[:80]) + "..."
	}
	return string(b)
}
