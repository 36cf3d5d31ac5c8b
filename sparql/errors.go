package sparql

import (
	"errors"
	"fmt"
)

// Endpoint failure classes.
var (
	// ErrEndpointUnreachable means no candidate accepted a connection.
	ErrEndpointUnreachable = errors.New("endpoint unreachable")

	// ErrTransport is a network failure after a connection was made.
	ErrTransport = errors.New("transport error")

	// ErrProtocol means the endpoint answered with an error or a malformed
	// response.
	ErrProtocol = errors.New("protocol error")
)

// RequestError describes a failed request against an endpoint.
type RequestError struct {
	// Kind is ErrEndpointUnreachable, ErrTransport or ErrProtocol.
	Kind     error
	Op       string
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Op, e.Endpoint, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the failure class and the cause.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func protocolError(op, endpoint string, format string, args ...any) error {
	return &RequestError{Kind: ErrProtocol, Op: op, Endpoint: endpoint, Err: fmt.Errorf(format, args...)}
}
