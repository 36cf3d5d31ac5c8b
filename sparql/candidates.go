package sparql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Candidate is the base URL of an endpoint, e.g. https://host:8182.
type Candidate struct {
	URL string
}

// Probe checks whether a candidate accepts connections.
type Probe func(ctx context.Context, c Candidate) error

// CandidateSet elects the first reachable candidate, in order, the first
// time an endpoint is needed and keeps it until it is marked unreachable.
// A CandidateSet belongs to one job and is not safe for concurrent use.
type CandidateSet struct {
	candidates []Candidate
	probe      Probe
	connect    func(Candidate) Endpoint

	active    Endpoint
	activeIdx int
	down      map[int]bool
}

// CandidateOption configures a CandidateSet.
type CandidateOption func(*CandidateSet)

// WithProbe replaces the default TCP probe.
func WithProbe(p Probe) CandidateOption {
	return func(s *CandidateSet) {
		s.probe = p
	}
}

// NewCandidateSet returns a chooser over candidates. connect turns an
// elected candidate into an endpoint.
func NewCandidateSet(candidates []Candidate, connect func(Candidate) Endpoint, opts ...CandidateOption) (*CandidateSet, error) {
	if len(candidates) == 0 {
		return nil, errors.New("at least one endpoint candidate is required")
	}
	for _, c := range candidates {
		if _, err := hostPort(c); err != nil {
			return nil, err
		}
	}
	s := &CandidateSet{
		candidates: append([]Candidate(nil), candidates...),
		probe:      DialProbe(5 * time.Second),
		connect:    connect,
		activeIdx:  -1,
		down:       make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Choose implements Chooser.
func (s *CandidateSet) Choose(ctx context.Context) (Endpoint, error) {
	if s.active != nil {
		return s.active, nil
	}

	var errs []error
	for i, c := range s.candidates {
		if s.down[i] {
			continue
		}
		if err := s.probe(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.URL, err))
			continue
		}
		s.active = s.connect(c)
		s.activeIdx = i
		return s.active, nil
	}

	// Every candidate has been marked down; give them all another chance
	// on the next election.
	if len(errs) == 0 {
		errs = append(errs, errors.New("all candidates previously marked unreachable"))
		s.down = make(map[int]bool)
	}
	return nil, &RequestError{Kind: ErrEndpointUnreachable, Op: "choose endpoint", Err: errors.Join(errs...)}
}

// MarkUnreachable implements Chooser.
func (s *CandidateSet) MarkUnreachable(ep Endpoint) {
	if s.active == nil || ep != s.active {
		return
	}
	s.down[s.activeIdx] = true
	s.active = nil
	s.activeIdx = -1
}

// DialProbe returns a probe that opens and closes a TCP connection.
func DialProbe(timeout time.Duration) Probe {
	return func(ctx context.Context, c Candidate) error {
		addr, err := hostPort(c)
		if err != nil {
			return err
		}
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

func hostPort(c Candidate) (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", c.URL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", c.URL)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	switch u.Scheme {
	case "https":
		return net.JoinHostPort(u.Hostname(), "443"), nil
	case "http":
		return net.JoinHostPort(u.Hostname(), "80"), nil
	default:
		return "", fmt.Errorf("invalid endpoint %q: unsupported scheme %q", c.URL, u.Scheme)
	}
}
