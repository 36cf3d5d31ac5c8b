// Package events publishes export lifecycle events to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "rdf.export"

// Event types.
const (
	TypeJobStarted   = "job.started"
	TypeUnitFinished = "unit.finished"
	TypeJobFinished  = "job.finished"
)

// Event is the message published for each lifecycle step.
type Event struct {
	Type       string    `json:"type"`
	JobID      string    `json:"job_id"`
	Scope      string    `json:"scope,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	State      string    `json:"state,omitempty"`
	Units      int       `json:"units,omitempty"`
	Statements int64     `json:"statements,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publishes events under a subject prefix. A nil *Notifier, or
// one without a publisher, drops events.
type Notifier struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

// NewNotifier returns a notifier publishing to pub.
func NewNotifier(pub Publisher, prefix string) *Notifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Notifier{pub: pub, prefix: prefix, now: time.Now}
}

// Subject returns the subject an event type is published on.
func (n *Notifier) Subject(eventType string) string {
	return n.prefix + "." + eventType
}

// Notify stamps and publishes ev.
func (n *Notifier) Notify(ev Event) error {
	if n == nil || n.pub == nil {
		return nil // Skip publishing if no NATS connection
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = n.now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	if err := n.pub.Publish(n.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Connect opens a NATS connection for publishing events.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("rdf-export"),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}
