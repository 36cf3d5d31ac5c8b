package sparql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

const (
	queryPath      = "/sparql"
	graphStorePath = "/sparql/gsp/"

	sparqlResultsJSON = "application/sparql-results+json"

	errorExcerptBytes = 512
)

// HTTPEndpoint talks to a Neptune-style SPARQL service over HTTP.
type HTTPEndpoint struct {
	base   string
	client *http.Client
}

// NewHTTPEndpoint creates an endpoint rooted at base. A nil client uses
// http.DefaultClient.
func NewHTTPEndpoint(base string, client *http.Client) *HTTPEndpoint {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEndpoint{
		base:   strings.TrimRight(base, "/"),
		client: client,
	}
}

// HTTPConnector returns a connect function for NewCandidateSet.
func HTTPConnector(client *http.Client) func(Candidate) Endpoint {
	return func(c Candidate) Endpoint {
		return NewHTTPEndpoint(c.URL, client)
	}
}

// Address implements Endpoint.
func (e *HTTPEndpoint) Address() string {
	return e.base
}

// GraphStore implements Endpoint.
func (e *HTTPEndpoint) GraphStore(ctx context.Context, target, accept string) (io.ReadCloser, error) {
	const op = "graph store request"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.base+graphStorePath+"?"+encodeTarget(target), nil)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", op, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := e.do(op, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Select implements Endpoint.
func (e *HTTPEndpoint) Select(ctx context.Context, query string) (Rows, error) {
	const op = "query request"

	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+queryPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", sparqlResultsJSON)

	resp, err := e.do(op, req)
	if err != nil {
		return nil, err
	}

	rows, err := newJSONRows(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, protocolError(op, e.base, "decode results: %v", err)
	}
	rows.endpoint = e.base
	return rows, nil
}

// do sends req and classifies failures. On success the caller owns the
// response body.
func (e *HTTPEndpoint) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &RequestError{Kind: classifyTransport(err), Op: op, Endpoint: e.base, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorExcerptBytes))
		return nil, protocolError(op, e.base, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	return resp, nil
}

// classifyTransport separates failures to connect from failures on an
// established connection.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTransport
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ErrEndpointUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrEndpointUnreachable
	}
	return ErrTransport
}

// encodeTarget escapes the graph IRI of a "graph=<iri>" target and leaves
// bare targets such as "default" alone.
func encodeTarget(target string) string {
	key, value, ok := strings.Cut(target, "=")
	if !ok {
		return target
	}
	return key + "=" + url.QueryEscape(value)
}
